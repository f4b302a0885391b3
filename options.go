package slabwheel

// default is a wheel of 4 levels with 64 slots each, covering 64^4 ticks.
const (
	defaultLevels   = 4
	defaultSlotBits = 6
	defaultCapacity = 1024

	maxLevels   = 8
	maxSlotBits = 16
	// levels*slotBits must leave the horizon representable in a uint64.
	maxWheelBits = 63
)

// Options is common options
type Options struct {
	Logger   Logger
	Levels   int // number of wheel levels
	SlotBits int // log2 of the number of slots per level
	Capacity int // initial slab capacity
}

// NewOptions creates options with defaults.
func NewOptions(opts ...Option) Options {
	var options = Options{
		Logger:   defaultLogger,
		Levels:   defaultLevels,
		SlotBits: defaultSlotBits,
		Capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.Levels*options.SlotBits > maxWheelBits {
		options.Logger.Printf("wheel of %d levels x %d bits does not fit in 64 bits, using %d x %d\n",
			options.Levels, options.SlotBits, defaultLevels, defaultSlotBits)
		options.Levels = defaultLevels
		options.SlotBits = defaultSlotBits
	}

	return options
}

// Option is for setting options.
type Option func(*Options)

// WithLogger sets logger.
func WithLogger(logger Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithLevels sets the number of levels, must be in [1, 8].
// If not, it will be ignored.
func WithLevels(n int) Option {
	return func(o *Options) {
		if n > 0 && n <= maxLevels {
			o.Levels = n
		}
	}
}

// WithSlotBits sets the number of slots per level to 1<<bits, bits must be
// in [1, 16]. If not, it will be ignored.
func WithSlotBits(bits int) Option {
	return func(o *Options) {
		if bits > 0 && bits <= maxSlotBits {
			o.SlotBits = bits
		}
	}
}

// WithCapacity sets the initial slab capacity, must not be negative.
// If not, it will be ignored.
func WithCapacity(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.Capacity = n
		}
	}
}
