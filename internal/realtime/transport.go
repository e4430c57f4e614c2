package realtime

import "context"

// Conn is an open bidirectional channel.
type Conn interface {
	Write(ctx context.Context, payload []byte) error
	// Read blocks until a message arrives or the connection fails. Close
	// must unblock it.
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens a Conn authenticated with token.
type Dialer interface {
	Dial(ctx context.Context, token string) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, token string) (Conn, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context, token string) (Conn, error) {
	return f(ctx, token)
}
