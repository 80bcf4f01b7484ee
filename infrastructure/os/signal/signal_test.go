package signal

import (
	"testing"
	"time"
)

func TestRequestShutdown(t *testing.T) {
	interrupt := InterruptListener()
	if InterruptRequested(interrupt) {
		t.Fatalf("TestRequestShutdown: interrupt requested before any shutdown request")
	}

	// The listener goroutine may not be receiving yet.
	deadline := time.After(5 * time.Second)
	for !InterruptRequested(interrupt) {
		RequestShutdown()
		select {
		case <-deadline:
			t.Fatalf("TestRequestShutdown: shutdown request was not delivered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Further requests never block.
	RequestShutdown()
	RequestShutdown()
}
