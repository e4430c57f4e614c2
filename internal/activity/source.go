package activity

// InputSource delivers user input signals.
type InputSource interface {
	Signals() <-chan Signal
}

// VisibilitySource delivers surface visibility changes.
type VisibilitySource interface {
	Visibility() <-chan bool
}

// Feed is a push-based source for hosts that observe input themselves,
// such as the terminal UI. Pushes never block; a full buffer drops the
// signal.
type Feed struct {
	signals    chan Signal
	visibility chan bool
}

// NewFeed creates a feed with the given buffer per channel.
func NewFeed(buffer int) *Feed {
	if buffer < 1 {
		buffer = 1
	}
	return &Feed{
		signals:    make(chan Signal, buffer),
		visibility: make(chan bool, buffer),
	}
}

// Push queues an input signal.
func (f *Feed) Push(sig Signal) bool {
	select {
	case f.signals <- sig:
		return true
	default:
		return false
	}
}

// SetVisible queues a visibility change.
func (f *Feed) SetVisible(visible bool) bool {
	select {
	case f.visibility <- visible:
		return true
	default:
		return false
	}
}

// Signals implements InputSource.
func (f *Feed) Signals() <-chan Signal { return f.signals }

// Visibility implements VisibilitySource.
func (f *Feed) Visibility() <-chan bool { return f.visibility }

// Nop is a source that never delivers anything. Headless runs use it.
type Nop struct{}

// Signals implements InputSource.
func (Nop) Signals() <-chan Signal { return nil }

// Visibility implements VisibilitySource.
func (Nop) Visibility() <-chan bool { return nil }
