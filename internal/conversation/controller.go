// Package conversation owns the visible message sequence for one user
// session and drives the optimistic-update protocol: a provisional
// exchange appears in the list before any network call, and is later
// swapped for the durable record or an error placeholder.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kilincarslan-Enterprises/lyra-app/internal/domain"
)

// FailureReply is shown in place of an assistant reply when the relay
// call or the history write fails. Failed turns stay in memory only.
const FailureReply = "Sorry, I couldn't process your message. Please try again."

var (
	// ErrEmptyPrompt rejects submissions that are blank after trimming.
	ErrEmptyPrompt = errors.New("conversation: prompt must not be empty")
	// ErrSubmissionPending rejects a submission while another is in
	// flight for this session.
	ErrSubmissionPending = errors.New("conversation: a submission is already pending")
)

// RelayCaller forwards one prompt through the relay boundary.
type RelayCaller interface {
	Relay(ctx context.Context, req domain.RelayRequest) (domain.RelayResponse, error)
}

// HistoryStore is the slice of the history surface the controller
// needs.
type HistoryStore interface {
	CreateExchange(ctx context.Context, ex domain.Exchange) (domain.Exchange, error)
	ListExchanges(ctx context.Context, owner string) ([]domain.Exchange, error)
}

// Controller is safe for concurrent use, though the intended caller is
// a single UI loop. The mutex covers the exchange list and the
// single-submission gate; relay calls and store writes happen outside
// it.
type Controller struct {
	owner   string
	relay   RelayCaller
	history HistoryStore
	logger  *slog.Logger

	clock    func() time.Time
	newID    func() string
	onChange func([]domain.Exchange)

	mu        sync.Mutex
	exchanges []domain.Exchange
	inFlight  bool
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger.With("component", "conversation")
		}
	}
}

// WithClock overrides the timestamp source for provisional entries.
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithIDGenerator overrides the temporary-id source.
func WithIDGenerator(gen func() string) Option {
	return func(c *Controller) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// WithOnChange registers a render callback. It receives a fresh
// snapshot after every list mutation and is invoked without the
// controller lock held, so it may call back into the controller.
func WithOnChange(fn func([]domain.Exchange)) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

func New(owner string, relay RelayCaller, history HistoryStore, opts ...Option) (*Controller, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, errors.New("conversation: owner must not be empty")
	}
	if relay == nil {
		return nil, errors.New("conversation: relay caller must not be nil")
	}
	if history == nil {
		return nil, errors.New("conversation: history store must not be nil")
	}
	c := &Controller{
		owner:   owner,
		relay:   relay,
		history: history,
		logger:  slog.Default().With("component", "conversation"),
		clock:   time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// LoadHistory rebuilds the in-memory list from the store. On failure
// the current list is kept and the error returned alongside it. Either
// way the single-submission gate is cleared: a reload is the escape
// hatch for a session stuck behind a call that never returned.
func (c *Controller) LoadHistory(ctx context.Context) ([]domain.Exchange, error) {
	stored, err := c.history.ListExchanges(ctx, c.owner)
	if err != nil {
		c.logger.Error("history load failed", "owner", c.owner, "error", err)
	}

	c.mu.Lock()
	c.inFlight = false
	if err == nil {
		c.exchanges = append([]domain.Exchange(nil), stored...)
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snapshot)

	if err != nil {
		return snapshot, fmt.Errorf("conversation: load history: %w", err)
	}
	return snapshot, nil
}

// Submit runs one optimistic round trip: append a provisional entry,
// call the relay, persist on success, and swap the provisional entry
// for the outcome. Only the preconditions return an error; once a
// submission is accepted its failures surface as a failed exchange
// with FailureReply, never as a Submit error.
func (c *Controller) Submit(ctx context.Context, prompt string) (domain.Exchange, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return domain.Exchange{}, ErrEmptyPrompt
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return domain.Exchange{}, ErrSubmissionPending
	}
	c.inFlight = true
	provisional := domain.Exchange{
		ID:        domain.ProvisionalIDPrefix + c.newID(),
		Owner:     c.owner,
		Prompt:    prompt,
		Status:    domain.StatusPending,
		CreatedAt: c.clock().UTC(),
	}
	c.exchanges = append(c.exchanges, provisional)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snapshot)

	resolved := c.completeExchange(ctx, provisional)

	c.mu.Lock()
	c.resolveLocked(provisional.ID, resolved)
	c.inFlight = false
	snapshot = c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snapshot)

	return resolved, nil
}

// Exchanges returns a snapshot of the current list.
func (c *Controller) Exchanges() []domain.Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Pending reports whether a submission is in flight.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// completeExchange performs the relay call and, on success, the store
// write. It always returns a terminal exchange: the durable record, or
// the provisional one converted to a failed state.
func (c *Controller) completeExchange(ctx context.Context, provisional domain.Exchange) domain.Exchange {
	resp, err := c.relay.Relay(ctx, domain.RelayRequest{
		Message: provisional.Prompt,
		UserID:  c.owner,
	})
	if err != nil {
		c.logger.Error("relay call failed",
			"exchange_id", provisional.ID, "error", err)
		return failed(provisional)
	}
	if !resp.Success {
		c.logger.Error("relay rejected submission",
			"exchange_id", provisional.ID, "response", resp.Response)
		return failed(provisional)
	}

	completed := provisional
	completed.Reply = resp.Response
	completed.Status = domain.StatusComplete

	saved, err := c.history.CreateExchange(ctx, completed)
	if err != nil {
		// The reply is discarded with the failed turn; log its size so
		// lost content is at least visible to operators.
		c.logger.Error("history write failed",
			"exchange_id", provisional.ID,
			"reply_chars", len(resp.Response),
			"error", err)
		return failed(provisional)
	}
	return saved
}

func failed(provisional domain.Exchange) domain.Exchange {
	provisional.Reply = FailureReply
	provisional.Status = domain.StatusFailed
	return provisional
}

// resolveLocked swaps the provisional entry for the resolved one,
// preserving its position. The temporary id is matched explicitly so
// the swap stays correct when a concurrent reload reshuffled the list:
// if the reload already brought in the durable record the provisional
// copy is dropped, and if it removed the provisional entry entirely
// the resolved record is appended.
func (c *Controller) resolveLocked(tempID string, resolved domain.Exchange) {
	if resolved.ID != tempID && c.indexOfLocked(resolved.ID) >= 0 {
		if i := c.indexOfLocked(tempID); i >= 0 {
			c.exchanges = append(c.exchanges[:i], c.exchanges[i+1:]...)
		}
		return
	}
	if i := c.indexOfLocked(tempID); i >= 0 {
		c.exchanges[i] = resolved
		return
	}
	c.exchanges = append(c.exchanges, resolved)
}

func (c *Controller) indexOfLocked(id string) int {
	for i := range c.exchanges {
		if c.exchanges[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) snapshotLocked() []domain.Exchange {
	return append([]domain.Exchange(nil), c.exchanges...)
}

func (c *Controller) notify(snapshot []domain.Exchange) {
	if c.onChange != nil {
		c.onChange(snapshot)
	}
}
