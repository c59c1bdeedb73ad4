package testkit

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestMustPanic(t *testing.T) {
	t.Parallel()

	MustPanic(t, func() {
		panic("boom")
	})
}

func TestMustNotPanic(t *testing.T) {
	t.Parallel()

	MustNotPanic(t, func() {
		// no panic
	})
}

func TestMustContain(t *testing.T) {
	t.Parallel()

	haystack := "alpha beta gamma"
	MustContain(t, haystack, "beta")
}

func TestEventually(t *testing.T) {
	t.Parallel()

	var n atomic.Int32
	Eventually(t, time.Second, time.Millisecond, func() bool {
		return n.Add(1) >= 3
	})
}
