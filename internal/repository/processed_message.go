package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/customeros/attachstack/internal/models"
	"github.com/customeros/attachstack/internal/tracing"
	"github.com/customeros/attachstack/internal/utils"
)

// ProcessedMessageRepository is the dedup index over already archived
// messages. The archival core only calls Exists; MarkProcessed is for the
// caller that owns the run outcome.
type ProcessedMessageRepository interface {
	Exists(ctx context.Context, messageID string) (bool, error)
	MarkProcessed(ctx context.Context, messageID string, metadata map[string]interface{}) error
}

type processedMessageRepository struct {
	db *gorm.DB
}

func NewProcessedMessageRepository(db *gorm.DB) ProcessedMessageRepository {
	return &processedMessageRepository{
		db: db,
	}
}

func (r *processedMessageRepository) Exists(ctx context.Context, messageID string) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processedMessageRepository.Exists")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMessage(span, messageID)

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProcessedMessage{}).
		Where("message_id = ?", messageID).
		Count(&count).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return false, err
	}

	return count > 0, nil
}

func (r *processedMessageRepository) MarkProcessed(ctx context.Context, messageID string, metadata map[string]interface{}) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processedMessageRepository.MarkProcessed")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagMessage(span, messageID)

	record := &models.ProcessedMessage{
		MessageID:   messageID,
		ProcessedAt: utils.Now(),
		Metadata:    metadata,
	}

	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil {
		var existing models.ProcessedMessage
		lookupErr := r.db.WithContext(ctx).
			Where("message_id = ?", messageID).
			First(&existing).Error
		if lookupErr == nil {
			// already marked, unique index hit
			span.SetTag("duplicate", true)
			return nil
		}
		if !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			tracing.TraceErr(span, lookupErr)
			return lookupErr
		}
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}
