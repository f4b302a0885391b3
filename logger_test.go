package slabwheel_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/hyperjiang/slabwheel"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger(t *testing.T) {
	should := require.New(t)

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	slabwheel.NewSlogLogger(l, slog.LevelDebug).Printf("dropped %d\n", 1)
	should.Zero(buf.Len())

	tw := slabwheel.New[int](slabwheel.WithLogger(slabwheel.NewSlogLogger(l, slog.LevelWarn)))
	tw.Tick(new([]int))
	tw.Insert(7, 1)
	should.Contains(buf.String(), "level=WARN")
	should.Contains(buf.String(), `msg="[1] timer due at 1 is overdue, firing on next tick"`)
}
