package session

import "time"

// Observer receives session lifecycle and traffic events. Implementations
// must be safe for concurrent use and must not block.
type Observer interface {
	StateChanged(from, to State)
	RequestIssued(uri string)
	RequestCompleted(uri string, elapsed time.Duration)
	RequestAbandoned(uri string, reason string)
	PendingChanged(n int)
	FrameDropped(reason string)
	UnsolicitedFrame(delivered bool)
}

type nopObserver struct{}

func (nopObserver) StateChanged(State, State) {}
func (nopObserver) RequestIssued(string) {}
func (nopObserver) RequestCompleted(string, time.Duration) {}
func (nopObserver) RequestAbandoned(string, string) {}
func (nopObserver) PendingChanged(int) {}
func (nopObserver) FrameDropped(string) {}
func (nopObserver) UnsolicitedFrame(bool) {}
