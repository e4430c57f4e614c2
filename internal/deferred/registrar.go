// Package deferred registers sync work to be performed later by the host,
// outside the interactive session, and gates user-facing notifications on
// permission. Every operation is best effort: failures are logged, never
// returned.
package deferred

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/guilhermegouw/cadence/internal/debug"
)

// Registration tags.
const (
	TagReminderSync = "reminder-sync"
	TagFullSync     = "full-sync"
	TagAllDataSync  = "all-data-sync"
)

// ErrCapabilityDisabled is returned by a Capability the host turned off.
// The registrar treats it as a silent no-op.
var ErrCapabilityDisabled = errors.New("deferred sync disabled")

// Capability is the host facility that runs registered syncs later.
type Capability interface {
	Supported() bool
	Register(ctx context.Context, tag string) error
}

// Permission is the state of the user's consent to notifications.
type Permission string

// Notification permission states.
const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Notifier shows notifications once permission is granted.
type Notifier interface {
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
	Notify(ctx context.Context, title, body string) error
}

// Status is a snapshot of the registrar.
type Status struct {
	NotificationPermission Permission
	Tags                   []string
	Supported              bool
	Registered             bool
}

// Registrar records deferred-sync registrations with the host capability.
type Registrar struct { //nolint:govet // fieldalignment: preserving logical field order
	capability Capability
	notifier   Notifier
	supported  bool

	mu         sync.Mutex
	registered map[string]time.Time
	permission Permission
}

// New probes capability once. A nil capability or notifier is replaced by
// its no-op stub.
func New(capability Capability, notifier Notifier) *Registrar {
	if capability == nil {
		capability = NopCapability{}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	r := &Registrar{
		capability: capability,
		notifier:   notifier,
		registered: make(map[string]time.Time),
		permission: PermissionDefault,
	}
	r.supported = probe(capability)
	if p, ok := safePermission(notifier); ok {
		r.permission = p
	}
	return r
}

func probe(c Capability) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			debug.Warn("deferred", "capability probe panicked", "panic", r)
			ok = false
		}
	}()
	return c.Supported()
}

func safePermission(n Notifier) (p Permission, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return n.Permission(), true
}

// RegisterReminderSync asks the host to sync reminders later.
func (r *Registrar) RegisterReminderSync(ctx context.Context) bool {
	return r.register(ctx, TagReminderSync)
}

// RegisterFullSync asks the host to run a full sync later.
func (r *Registrar) RegisterFullSync(ctx context.Context) bool {
	return r.register(ctx, TagFullSync)
}

// RegisterAllDataSync asks the host to sync every data category later.
func (r *Registrar) RegisterAllDataSync(ctx context.Context) bool {
	return r.register(ctx, TagAllDataSync)
}

// register reports whether the host accepted the tag.
func (r *Registrar) register(ctx context.Context, tag string) (ok bool) {
	if !r.supported {
		return false
	}

	defer func() {
		if rec := recover(); rec != nil {
			debug.Warn("deferred", "registration panicked", "tag", tag, "panic", rec)
			ok = false
		}
	}()

	err := r.capability.Register(ctx, tag)
	switch {
	case err == nil:
		r.mu.Lock()
		r.registered[tag] = time.Now()
		r.mu.Unlock()
		debug.Event("deferred", "registered", tag)
		return true
	case errors.Is(err, ErrCapabilityDisabled):
		return false
	default:
		debug.Warn("deferred", "registration failed", "tag", tag, "error", err)
		return false
	}
}

// RequestNotificationPermission asks the notifier for consent and returns
// the resulting permission.
func (r *Registrar) RequestNotificationPermission(ctx context.Context) Permission {
	p, err := r.requestPermission(ctx)
	if err != nil {
		debug.Warn("deferred", "notification permission request failed", "error", err)
		return r.Permission()
	}

	r.mu.Lock()
	r.permission = p
	r.mu.Unlock()
	return p
}

func (r *Registrar) requestPermission(ctx context.Context) (p Permission, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("notifier panicked: %v", rec)
		}
	}()
	return r.notifier.RequestPermission(ctx)
}

// Notify shows a notification when permission is granted. It reports
// whether one was shown.
func (r *Registrar) Notify(ctx context.Context, title, body string) (shown bool) {
	if r.Permission() != PermissionGranted {
		return false
	}

	defer func() {
		if rec := recover(); rec != nil {
			debug.Warn("deferred", "notification panicked", "title", title, "panic", rec)
			shown = false
		}
	}()

	if err := r.notifier.Notify(ctx, title, body); err != nil {
		debug.Warn("deferred", "notification failed", "title", title, "error", fmt.Sprint(err))
		return false
	}
	return true
}

// Permission returns the last known notification permission.
func (r *Registrar) Permission() Permission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.permission
}

// Status returns a snapshot of the registrar.
func (r *Registrar) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	tags := make([]string, 0, len(r.registered))
	for tag := range r.registered {
		tags = append(tags, tag)
	}
	slices.Sort(tags)

	return Status{
		Supported:              r.supported,
		Registered:             len(tags) > 0,
		NotificationPermission: r.permission,
		Tags:                   tags,
	}
}

// NopCapability is the capability of a host without deferred sync.
type NopCapability struct{}

// Supported implements Capability.
func (NopCapability) Supported() bool { return false }

// Register implements Capability.
func (NopCapability) Register(context.Context, string) error { return ErrCapabilityDisabled }

// NopNotifier never shows anything and never gets permission.
type NopNotifier struct{}

// Permission implements Notifier.
func (NopNotifier) Permission() Permission { return PermissionDefault }

// RequestPermission implements Notifier.
func (NopNotifier) RequestPermission(context.Context) (Permission, error) {
	return PermissionDenied, nil
}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, string, string) error { return nil }
