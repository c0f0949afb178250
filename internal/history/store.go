// Package history persists completed exchanges per dashboard user.
// Two backends implement the same surface: DynamoDB for the Lambda
// deployment and Postgres for the long-lived server deployment.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Kilincarslan-Enterprises/lyra-app/internal/domain"
)

// Store is the persistence surface the conversation controller writes
// through.
type Store interface {
	// CreateExchange persists one exchange and returns it with its
	// store-assigned identity filled in.
	CreateExchange(ctx context.Context, ex domain.Exchange) (domain.Exchange, error)
	// ListExchanges returns the owner's exchanges in chronological
	// order, oldest first.
	ListExchanges(ctx context.Context, owner string) ([]domain.Exchange, error)
}

var (
	newUUID = uuid.NewString
	timeNow = time.Now
)

// assignIdentity fills in the store-assigned fields. Provisional ids
// minted by an optimistic client never reach storage.
func assignIdentity(ex domain.Exchange) domain.Exchange {
	if ex.ID == "" || ex.Provisional() {
		ex.ID = newUUID()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = timeNow().UTC()
	}
	if ex.Status == "" {
		ex.Status = domain.StatusComplete
	}
	return ex
}
