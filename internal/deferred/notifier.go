package deferred

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// TerminalNotifier rings the terminal bell and prints a line. Permission is
// granted only when enabled and writing to a terminal.
type TerminalNotifier struct {
	out        io.Writer
	isTerminal func() bool
	enabled    bool

	mu         sync.Mutex
	permission Permission
}

// NewTerminalNotifier creates a notifier writing to f.
func NewTerminalNotifier(f *os.File, enabled bool) *TerminalNotifier {
	return &TerminalNotifier{
		out:        f,
		isTerminal: func() bool { return term.IsTerminal(int(f.Fd())) },
		enabled:    enabled,
		permission: PermissionDefault,
	}
}

// Permission implements Notifier.
func (n *TerminalNotifier) Permission() Permission {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.permission
}

// RequestPermission implements Notifier.
func (n *TerminalNotifier) RequestPermission(context.Context) (Permission, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.enabled && n.isTerminal() {
		n.permission = PermissionGranted
	} else {
		n.permission = PermissionDenied
	}
	return n.permission, nil
}

// Notify implements Notifier.
func (n *TerminalNotifier) Notify(_ context.Context, title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.permission != PermissionGranted {
		return nil
	}
	if _, err := fmt.Fprintf(n.out, "\a[%s] %s\n", title, body); err != nil {
		return fmt.Errorf("writing notification: %w", err)
	}
	return nil
}
