package archiver

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/customeros/attachstack/internal/enum"
	er "github.com/customeros/attachstack/internal/errors"
	"github.com/customeros/attachstack/internal/logger"
	"github.com/customeros/attachstack/internal/models"
	"github.com/customeros/attachstack/internal/tracing"
	"github.com/customeros/attachstack/internal/utils"
	"github.com/customeros/attachstack/interfaces"
	"github.com/customeros/attachstack/services/storage"
)

const (
	bodyFileName      = "mail_content.txt"
	defaultRunWorkers = 4
	runIDLength       = 12
)

type archiverService struct {
	fetcher   interfaces.MailFetcher
	converter interfaces.ConversionService
	backends  interfaces.StorageProvider
	dedup     interfaces.DedupIndex
	events    interfaces.EventPublisher
	workers   int
	log       logger.Logger
}

// NewArchiverService wires the full fetch -> convert -> store pass.
// dedup and events may be nil; the run proceeds without them.
func NewArchiverService(
	fetcher interfaces.MailFetcher,
	converter interfaces.ConversionService,
	backends interfaces.StorageProvider,
	dedup interfaces.DedupIndex,
	events interfaces.EventPublisher,
	workers int,
	log logger.Logger,
) interfaces.ArchiverService {
	if workers <= 0 {
		workers = defaultRunWorkers
	}
	return &archiverService{
		fetcher:   fetcher,
		converter: converter,
		backends:  backends,
		dedup:     dedup,
		events:    events,
		workers:   workers,
		log:       log,
	}
}

func (s *archiverService) Process(ctx context.Context, request *models.ProcessRequest) (*models.RunResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ArchiverService.Process")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	run := &models.RunResult{
		RunID:     utils.GenerateNanoIDWithPrefix("run", runIDLength),
		StartedAt: time.Now().UTC(),
	}
	tracing.TagRun(span, run.RunID)

	if len(request.MessageIDs) == 0 {
		tracing.TraceErr(span, er.ErrNoMessageIDs)
		return nil, er.ErrNoMessageIDs
	}

	backend, err := s.backends.Backend(request.Storage)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if err := backend.CreateFolder(ctx, request.Destination); err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(er.ErrDestinationUnusable, err.Error())
	}

	skipped, pending := s.partitionProcessed(ctx, request.MessageIDs)
	run.Results = append(run.Results, skipped...)

	if len(pending) > 0 {
		fetched, err := s.fetcher.FetchMessages(ctx, pending)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		run.Results = append(run.Results, s.processFetched(ctx, request, backend, pending, fetched)...)
	}

	run.CompletedAt = time.Now().UTC()
	run.Tally()
	s.log.Infof("run %s completed: %d succeeded, %d failed, %d skipped",
		run.RunID, run.Summary.Succeeded, run.Summary.Failed, run.Summary.Skipped)

	if s.events != nil {
		if err := s.events.PublishRunCompleted(ctx, run); err != nil {
			tracing.TraceErr(span, err)
			s.log.Warnf("failed to publish run completed event for %s: %v", run.RunID, err)
		}
	}

	return run, nil
}

// partitionProcessed splits ids into already-archived (skipped results) and
// ids still to fetch. A dedup lookup failure counts as not seen; re-archiving
// a message is harmless, losing one is not.
func (s *archiverService) partitionProcessed(ctx context.Context, ids []string) ([]*models.ItemResult, []string) {
	var skipped []*models.ItemResult
	var pending []string

	for _, id := range ids {
		if s.dedup == nil {
			pending = append(pending, id)
			continue
		}
		exists, err := s.dedup.Exists(ctx, id)
		if err != nil {
			s.log.Warnf("dedup lookup failed for message %s: %v", id, err)
			pending = append(pending, id)
			continue
		}
		if exists {
			skipped = append(skipped, &models.ItemResult{
				MessageID: id,
				Outcome:   enum.OutcomeSkipped,
				Reason:    "already archived",
			})
			continue
		}
		pending = append(pending, id)
	}
	return skipped, pending
}

func (s *archiverService) processFetched(
	ctx context.Context,
	request *models.ProcessRequest,
	backend interfaces.StorageBackend,
	ids []string,
	fetched map[string]*models.MessageFetchResult,
) []*models.ItemResult {
	results := make([]*models.ItemResult, len(ids))
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.workers)

	for i, id := range ids {
		i, id := i, id
		group.Go(func() error {
			var item *models.ItemResult
			if err := groupCtx.Err(); err != nil {
				item = &models.ItemResult{MessageID: id, Outcome: enum.OutcomeFailed, Reason: "run canceled"}
			} else {
				item = s.processMessage(groupCtx, request, backend, id, fetched[id])
			}
			mu.Lock()
			results[i] = item
			mu.Unlock()
			return nil
		})
	}
	group.Wait()

	return results
}

func (s *archiverService) processMessage(
	ctx context.Context,
	request *models.ProcessRequest,
	backend interfaces.StorageBackend,
	id string,
	fetchResult *models.MessageFetchResult,
) *models.ItemResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ArchiverService.processMessage")
	defer span.Finish()
	tracing.TagMessage(span, id)

	if fetchResult == nil {
		return &models.ItemResult{MessageID: id, Outcome: enum.OutcomeFailed, Reason: "message missing from fetch response"}
	}
	if fetchResult.Err != nil {
		tracing.TraceErr(span, fetchResult.Err)
		return &models.ItemResult{MessageID: id, Outcome: enum.OutcomeFailed, Reason: er.Reason(fetchResult.Err)}
	}

	folder := path.Join(request.Destination, storage.MessageFolderName(fetchResult.Envelope))
	if err := backend.CreateFolder(ctx, folder); err != nil {
		tracing.TraceErr(span, err)
		return &models.ItemResult{MessageID: id, Outcome: enum.OutcomeFailed, Reason: er.Reason(err)}
	}

	item := &models.ItemResult{MessageID: id, Folder: folder}

	bodyStored, err := backend.SaveText(ctx, folder, bodyFileName, fetchResult.Envelope.BodyText)
	if err != nil {
		tracing.TraceErr(span, err)
		item.Outcome = enum.OutcomeFailed
		item.Reason = er.Reason(err)
		return item
	}
	item.Stored = append(item.Stored, bodyStored)

	if err := s.storeAttachments(ctx, request, backend, folder, fetchResult.Attachments, item); err != nil {
		tracing.TraceErr(span, err)
		item.Outcome = enum.OutcomeFailed
		item.Reason = er.Reason(err)
		return item
	}

	item.Outcome = enum.OutcomeSucceeded
	return item
}

// storeAttachments persists every attachment of one message. With conversion
// enabled, extracted text is stored as <base>.txt; any attachment whose
// conversion fails falls back to its original bytes, unchanged.
func (s *archiverService) storeAttachments(
	ctx context.Context,
	request *models.ProcessRequest,
	backend interfaces.StorageBackend,
	folder string,
	attachments []*models.FetchedAttachment,
	item *models.ItemResult,
) error {
	if len(attachments) == 0 {
		return nil
	}

	if !request.Convert {
		for _, attachment := range attachments {
			stored, err := backend.SaveFile(ctx, folder, attachment.Filename, attachment.Content, attachment.ContentType)
			if err != nil {
				return err
			}
			item.Stored = append(item.Stored, stored)
		}
		return nil
	}

	conversions := s.converter.ConvertAll(ctx, attachments)
	for i, conversion := range conversions {
		attachment := attachments[i]
		if conversion.Succeeded {
			stored, err := backend.SaveText(ctx, folder, textFileName(attachment.Filename), conversion.OutputText)
			if err != nil {
				return err
			}
			item.Stored = append(item.Stored, stored)
			continue
		}

		s.log.Debugf("conversion fallback for %s (%s): %s",
			attachment.Filename, conversion.ErrorKind, conversion.ErrorReason)
		stored, err := backend.SaveFile(ctx, folder, attachment.Filename, attachment.Content, attachment.ContentType)
		if err != nil {
			return err
		}
		item.Stored = append(item.Stored, stored)
	}
	return nil
}

func textFileName(filename string) string {
	ext := path.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	if base == "" {
		base = filename
	}
	return base + ".txt"
}
