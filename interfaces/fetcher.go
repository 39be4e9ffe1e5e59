package interfaces

import (
	"context"

	"github.com/customeros/attachstack/internal/models"
)

// TokenProvider supplies a valid, already-refreshed access credential for
// every remote call. Token acquisition and refresh live outside this core.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// MailFetcher retrieves message envelopes and attachment bytes in bounded
// batches. Every requested id has exactly one entry in the returned map; a
// single item's failure never aborts its siblings.
type MailFetcher interface {
	FetchMessages(ctx context.Context, messageIDs []string) (map[string]*models.MessageFetchResult, error)
}
