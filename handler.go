package slabwheel

// Handler receives the payloads of expired timers from Advance.
type Handler[T any] interface {
	Handle(task T)
}

// HandlerFunc is a function type that implements the Handler interface.
type HandlerFunc[T any] func(task T)

func (f HandlerFunc[T]) Handle(task T) {
	f(task)
}

// NewHandlerFunc creates a Handler from a function without having to spell
// out the conversion and its type parameter.
func NewHandlerFunc[T any](f func(task T)) Handler[T] {
	return HandlerFunc[T](f)
}
