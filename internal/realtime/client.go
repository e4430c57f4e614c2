// Package realtime maintains the push channel to the cadence backend,
// reconnecting with exponential backoff and queueing outbound messages
// while it is down.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"

	"github.com/guilhermegouw/cadence/internal/debug"
	"github.com/guilhermegouw/cadence/internal/events"
	"github.com/guilhermegouw/cadence/internal/pubsub"
)

// State is the connection state of the channel.
type State int

// Connection states.
const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "idle"
	}
}

// Inbound message types with a dedicated event kind.
const MessageTypeNotification = "notification"

// Config controls reconnection.
type Config struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// DefaultConfig returns a 1s base delay doubling up to 30s, for at most 10
// consecutive failed attempts.
func DefaultConfig() Config {
	return Config{
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		MaxAttempts: 10,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.BaseDelay <= 0 {
		c.BaseDelay = def.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	return c
}

// newPolicy returns a jitter-free exponential policy: base, 2×base, 4×base
// and so on, capped at max.
func newPolicy(cfg Config) *backoff.ExponentialBackOff {
	p := backoff.NewExponentialBackOff()
	p.InitialInterval = cfg.BaseDelay
	p.MaxInterval = cfg.MaxDelay
	p.Multiplier = 2
	p.RandomizationFactor = 0
	p.Reset()
	return p
}

// Status is a snapshot of the client.
type Status struct { //nolint:govet // fieldalignment: preserving logical field order
	State          State
	Attempt        int
	Queued         int
	Exhausted      bool
	Manual         bool
	LastError      string
	ConnectedAt    time.Time
	TokenExpiresAt time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithConfig sets the reconnection parameters.
func WithConfig(cfg Config) Option {
	return func(c *Client) {
		c.cfg = cfg.withDefaults()
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// Client is the reconnecting realtime channel.
type Client struct { //nolint:govet // fieldalignment: preserving logical field order
	dialer  Dialer
	tokens  TokenProvider
	emitter pubsub.Emitter
	cfg     Config
	now     func() time.Time

	// wmu serializes writes and queue changes so that a slow Write does not
	// hold mu. It is always taken before mu.
	wmu sync.Mutex

	mu          sync.Mutex
	ctx         context.Context //nolint:containedctx // reused by retry timers
	state       State
	attempt     int
	policy      *backoff.ExponentialBackOff
	conn        Conn
	gen         uint64
	queue       []QueuedMessage
	retry       *time.Timer
	manual      bool
	exhausted   bool
	lastErr     error
	connectedAt time.Time
	tokenExpiry time.Time
}

// New creates an idle client. Nothing is dialed until Connect.
func New(dialer Dialer, tokens TokenProvider, emitter pubsub.Emitter, opts ...Option) *Client {
	if tokens == nil {
		tokens = StaticToken("")
	}
	c := &Client{
		dialer:  dialer,
		tokens:  tokens,
		emitter: emitter,
		cfg:     DefaultConfig(),
		now:     time.Now,
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.policy = newPolicy(c.cfg)
	return c
}

// Connect opens the channel. It returns immediately; progress is reported
// with channel-state events. It is a no-op while open or connecting, and
// re-enables automatic reconnection after Disconnect or exhaustion.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	c.manual = false
	c.exhausted = false
	c.ctx = ctx
	gen, ok := c.beginLocked()
	c.mu.Unlock()

	if ok {
		c.startDial(ctx, gen)
	}
}

// CheckHealth reconnects a closed channel unless it was disconnected on
// purpose or gave up. A pending retry is skipped in favour of dialing now.
func (c *Client) CheckHealth(ctx context.Context) bool {
	c.mu.Lock()
	if c.manual || c.exhausted {
		c.mu.Unlock()
		return false
	}
	c.ctx = ctx
	gen, ok := c.beginLocked()
	c.mu.Unlock()

	if ok {
		c.startDial(ctx, gen)
	}
	return ok
}

func (c *Client) reconnect() {
	c.mu.Lock()
	c.retry = nil
	if c.manual || c.exhausted {
		c.mu.Unlock()
		return
	}
	ctx := c.ctx
	gen, ok := c.beginLocked()
	c.mu.Unlock()

	if ok {
		c.startDial(ctx, gen)
	}
}

// beginLocked moves to connecting and returns the new dial generation.
func (c *Client) beginLocked() (uint64, bool) {
	if c.state == StateOpen || c.state == StateConnecting {
		return 0, false
	}
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	c.state = StateConnecting
	c.gen++
	return c.gen, true
}

func (c *Client) startDial(ctx context.Context, gen uint64) {
	c.emitState(ctx, StateConnecting, 0, nil)
	go c.dial(ctx, gen)
}

func (c *Client) dial(ctx context.Context, gen uint64) {
	token, err := c.tokens.Token(ctx)
	var conn Conn
	if err == nil {
		conn, err = c.dialer.Dial(ctx, token)
	}
	if err != nil {
		c.fail(gen, nil, fmt.Errorf("connecting: %w", err))
		return
	}

	c.wmu.Lock()
	c.mu.Lock()
	if gen != c.gen || c.state != StateConnecting {
		c.mu.Unlock()
		c.wmu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.attempt = 0
	c.policy.Reset()
	c.lastErr = nil
	c.connectedAt = c.now()
	c.tokenExpiry = tokenExpiry(token)
	c.mu.Unlock()

	opened, flushErr := c.openWriteLocked(ctx, gen, conn)
	c.wmu.Unlock()

	if flushErr != nil {
		c.fail(gen, conn, flushErr)
		return
	}
	if !opened {
		return
	}

	debug.Event("realtime", "open", fmt.Sprintf("generation %d", gen))
	c.emitState(ctx, StateOpen, 0, nil)
	go c.readLoop(ctx, gen, conn)
}

// openWriteLocked writes queued messages in order and marks the channel
// open once the queue is empty. The caller holds wmu, so mu is free while
// a Write blocks. On a write error the unsent messages stay queued. It
// reports false when a Disconnect replaced the connection meanwhile.
func (c *Client) openWriteLocked(ctx context.Context, gen uint64, conn Conn) (bool, error) {
	for {
		c.mu.Lock()
		if gen != c.gen || c.conn != conn {
			c.mu.Unlock()
			return false, nil
		}
		if len(c.queue) == 0 {
			c.queue = nil
			c.state = StateOpen
			c.mu.Unlock()
			return true, nil
		}
		next := c.queue[0]
		c.mu.Unlock()

		if err := conn.Write(ctx, next.Payload); err != nil {
			return false, fmt.Errorf("flushing queue: %w", err)
		}

		c.mu.Lock()
		c.queue = c.queue[1:]
		c.mu.Unlock()
	}
}

func (c *Client) readLoop(ctx context.Context, gen uint64, conn Conn) {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			c.fail(gen, conn, err)
			return
		}
		c.route(ctx, data)
	}
}

func (c *Client) route(ctx context.Context, data []byte) {
	if !gjson.ValidBytes(data) {
		debug.Log("[realtime] dropping malformed message (%d bytes)", len(data))
		return
	}
	msg := gjson.ParseBytes(data)
	typ := msg.Get("type").String()

	if typ == MessageTypeNotification {
		if id := msg.Get("data.id").String(); id != "" {
			c.emitter.Emit(ctx, events.NewNotificationReceivedEvent(
				id, msg.Get("data.title").String(), msg.Get("data.body").String(), "realtime"))
			return
		}
	}
	c.emitter.Emit(ctx, events.NewChannelMessageEvent(typ, data))
}

// fail handles a dial, read or write failure of generation gen. Stale
// failures, from a connection that was already replaced or closed, are
// ignored.
func (c *Client) fail(gen uint64, conn Conn, err error) {
	c.mu.Lock()
	current := c.state == StateConnecting || (c.state == StateOpen && c.conn == conn)
	if gen != c.gen || !current {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.state = StateClosed
	c.lastErr = err
	ctx := c.ctx

	if c.manual {
		c.mu.Unlock()
		return
	}

	if c.attempt >= c.cfg.MaxAttempts {
		c.exhausted = true
		attempts := c.attempt
		c.mu.Unlock()

		debug.Warn("realtime", "reconnect attempts exhausted", "attempts", attempts, "error", err)
		c.emitState(ctx, StateClosed, attempts, err)
		c.emitter.Emit(ctx, events.NewReconnectExhaustedEvent(attempts, err))
		return
	}

	delay := c.policy.NextBackOff()
	c.attempt++
	attempt := c.attempt
	c.retry = time.AfterFunc(delay, c.reconnect)
	c.mu.Unlock()

	debug.Warn("realtime", "channel closed, reconnecting", "attempt", attempt, "delay", delay, "error", err)
	c.emitter.Emit(ctx, events.NewChannelStateEvent(StateClosed.String(), attempt, delay, err))
}

// Send writes msg when the channel is open and queues it otherwise. Only an
// encoding failure is returned; delivery is best effort.
func (c *Client) Send(msg Message) error {
	if msg.Timestamp == "" {
		msg.Timestamp = c.now().UTC().Format(time.RFC3339Nano)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	c.mu.Lock()
	if c.state != StateOpen || c.conn == nil || len(c.queue) > 0 {
		c.queue = append(c.queue, QueuedMessage{Payload: payload, EnqueuedAt: c.now()})
		c.mu.Unlock()
		return nil
	}
	conn, gen, ctx := c.conn, c.gen, c.ctx
	c.mu.Unlock()

	if werr := conn.Write(ctx, payload); werr != nil {
		c.mu.Lock()
		c.queue = append([]QueuedMessage{{Payload: payload, EnqueuedAt: c.now()}}, c.queue...)
		c.mu.Unlock()
		c.fail(gen, conn, werr)
	}
	return nil
}

// Disconnect closes the channel, cancels any scheduled retry and keeps the
// client closed until the next Connect. Queued messages are kept.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.manual = true
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	c.gen++
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	prev := c.state
	c.state = StateClosed
	ctx := c.ctx
	c.mu.Unlock()

	if prev != StateClosed {
		c.emitState(ctx, StateClosed, 0, nil)
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns a snapshot of the client.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:          c.state,
		Attempt:        c.attempt,
		Queued:         len(c.queue),
		Exhausted:      c.exhausted,
		Manual:         c.manual,
		ConnectedAt:    c.connectedAt,
		TokenExpiresAt: c.tokenExpiry,
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}

func (c *Client) emitState(ctx context.Context, s State, attempt int, err error) {
	c.emitter.Emit(ctx, events.NewChannelStateEvent(s.String(), attempt, 0, err))
}
