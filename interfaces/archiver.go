package interfaces

import (
	"context"

	"github.com/customeros/attachstack/internal/models"
)

// DedupIndex is the externally supplied lookup of already processed message
// ids. This core consults it and records hits as skipped; it never writes it.
type DedupIndex interface {
	Exists(ctx context.Context, messageID string) (bool, error)
}

// ArchiverService runs one fetch -> convert -> store pass over a set of
// message ids. Per-item failures are captured in the result list; only
// call-level misconfiguration returns an error.
type ArchiverService interface {
	Process(ctx context.Context, request *models.ProcessRequest) (*models.RunResult, error)
}

// EventPublisher notifies the surrounding system about completed runs
type EventPublisher interface {
	PublishRunCompleted(ctx context.Context, run *models.RunResult) error
	Close() error
}
