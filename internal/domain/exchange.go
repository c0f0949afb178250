package domain

import (
	"strings"
	"time"
)

// ExchangeStatus tracks where an exchange is in its lifecycle. A new
// exchange starts pending and resolves to exactly one of complete or
// failed; there are no further transitions.
type ExchangeStatus string

const (
	StatusPending  ExchangeStatus = "pending"
	StatusComplete ExchangeStatus = "complete"
	StatusFailed   ExchangeStatus = "failed"
)

// ProvisionalIDPrefix marks client-generated exchange identifiers. Store
// identifiers are bare UUIDs, so a provisional identifier can never be
// mistaken for a durable one.
const ProvisionalIDPrefix = "local-"

// Exchange is one user prompt plus its assistant reply. Owner and Prompt
// are immutable once created; Reply and Status change exactly once when
// the exchange resolves.
type Exchange struct {
	ID        string
	Owner     string
	Prompt    string
	Reply     string
	Status    ExchangeStatus
	CreatedAt time.Time
	Metadata  map[string]any
}

// Pending reports whether the exchange is still waiting on a reply.
func (e Exchange) Pending() bool {
	return e.Status == StatusPending
}

// Provisional reports whether the exchange still carries a
// client-generated identifier.
func (e Exchange) Provisional() bool {
	return strings.HasPrefix(e.ID, ProvisionalIDPrefix)
}
