package events

import "time"

// ChannelStateEvent reports a realtime channel state transition.
type ChannelStateEvent struct { //nolint:govet // fieldalignment: preserving logical field order
	State     string
	Attempt   int
	Timestamp time.Time

	// Optional fields
	RetryIn time.Duration // set when a reconnect was scheduled
	Error   error         // failure that caused the transition
}

// Kind implements Event.
func (ChannelStateEvent) Kind() Kind { return KindChannelState }

// NewChannelStateEvent creates a channel-state event.
func NewChannelStateEvent(state string, attempt int, retryIn time.Duration, err error) ChannelStateEvent {
	return ChannelStateEvent{
		State:     state,
		Attempt:   attempt,
		RetryIn:   retryIn,
		Error:     err,
		Timestamp: time.Now(),
	}
}

// ChannelMessageEvent carries an inbound realtime message that no
// dedicated event kind claims.
type ChannelMessageEvent struct { //nolint:govet // fieldalignment: preserving logical field order
	Type      string
	Data      []byte
	Timestamp time.Time
}

// Kind implements Event.
func (ChannelMessageEvent) Kind() Kind { return KindChannelMessage }

// NewChannelMessageEvent creates a channel-message event.
func NewChannelMessageEvent(typ string, data []byte) ChannelMessageEvent {
	return ChannelMessageEvent{Type: typ, Data: data, Timestamp: time.Now()}
}

// ReconnectExhaustedEvent reports that the channel gave up reconnecting.
type ReconnectExhaustedEvent struct {
	Timestamp time.Time
	LastError error
	Attempts  int
}

// Kind implements Event.
func (ReconnectExhaustedEvent) Kind() Kind { return KindReconnectExhausted }

// NewReconnectExhaustedEvent creates a reconnect-exhausted event.
func NewReconnectExhaustedEvent(attempts int, lastErr error) ReconnectExhaustedEvent {
	return ReconnectExhaustedEvent{Attempts: attempts, LastError: lastErr, Timestamp: time.Now()}
}
