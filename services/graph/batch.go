package graph

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/jaytaylor/html2text"
	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/customeros/attachstack/config"
	er "github.com/customeros/attachstack/internal/errors"
	"github.com/customeros/attachstack/internal/logger"
	"github.com/customeros/attachstack/internal/models"
	"github.com/customeros/attachstack/internal/tracing"
	"github.com/customeros/attachstack/internal/utils"
	"github.com/customeros/attachstack/interfaces"
)

// MaxBatchSize is the hard cap on sub-requests per $batch call
const MaxBatchSize = 20

const messageSelectQuery = "?$select=id,subject,from,receivedDateTime,body&$expand=attachments"

type batchSubRequest struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	URL    string `json:"url"`
}

type batchEnvelope struct {
	Requests []batchSubRequest `json:"requests"`
}

type batchSubResponse struct {
	ID     string          `json:"id"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type batchResponseEnvelope struct {
	Responses []batchSubResponse `json:"responses"`
}

type graphRecipient struct {
	EmailAddress struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
	IsInline     bool   `json:"isInline"`
	ContentBytes string `json:"contentBytes"`
}

type graphMessage struct {
	ID               string            `json:"id"`
	Subject          string            `json:"subject"`
	From             graphRecipient    `json:"from"`
	ReceivedDateTime time.Time         `json:"receivedDateTime"`
	Body             graphBody         `json:"body"`
	Attachments      []graphAttachment `json:"attachments"`
}

const fileAttachmentType = "#microsoft.graph.fileAttachment"

// Fetcher retrieves messages and their attachments through the $batch
// endpoint, ceil(N/20) calls for N ids, with bounded concurrent fan-out.
type Fetcher struct {
	client     *Client
	fanOut     int
	maxRetries int
	log        logger.Logger
}

func NewFetcher(client *Client, cfg *config.GraphConfig, log logger.Logger) interfaces.MailFetcher {
	fanOut := cfg.BatchFanOut
	if fanOut <= 0 {
		fanOut = 4
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Fetcher{
		client:     client,
		fanOut:     fanOut,
		maxRetries: maxRetries,
		log:        log,
	}
}

// FetchMessages returns exactly one result per requested id. Per-item
// failures are recorded on their entry and never abort sibling items.
func (f *Fetcher) FetchMessages(ctx context.Context, messageIDs []string) (map[string]*models.MessageFetchResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Fetcher.FetchMessages")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogFields(tracingLog.Int("messageCount", len(messageIDs)))

	results := make(map[string]*models.MessageFetchResult, len(messageIDs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.fanOut)

	for _, group := range chunkIDs(messageIDs, MaxBatchSize) {
		group := group
		g.Go(func() error {
			out := f.fetchGroup(gctx, group)
			mu.Lock()
			for id, result := range out {
				results[id] = result
			}
			mu.Unlock()
			// per-item failures are already recorded, never abort the run
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return results, nil
}

// fetchGroup issues one $batch call for up to MaxBatchSize ids and retries
// items that came back with a transient status, re-batching only those.
func (f *Fetcher) fetchGroup(ctx context.Context, ids []string) map[string]*models.MessageFetchResult {
	out := make(map[string]*models.MessageFetchResult, len(ids))
	pending := ids
	bo := newBackOff()

	for attempt := 0; attempt <= f.maxRetries && len(pending) > 0; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(bo.NextBackOff()):
			case <-ctx.Done():
				f.failAll(out, pending, er.WrapItemError(er.KindNetworkError, ctx.Err(), "fetch cancelled"))
				return out
			}
		}

		responses, err := f.callBatch(ctx, pending)
		if err != nil {
			// the client already retried transient whole-call failures
			f.failAll(out, pending, err)
			return out
		}

		var retry []string
		for _, id := range pending {
			sub, ok := responses[id]
			if !ok {
				out[id] = &models.MessageFetchResult{
					MessageID: id,
					Err:       er.NewItemError(er.KindNetworkError, "missing batch sub-response"),
				}
				continue
			}
			switch {
			case sub.Status >= 200 && sub.Status < 300:
				out[id] = f.decodeMessage(ctx, id, sub.Body)
			case transientStatus(sub.Status):
				retry = append(retry, id)
			case sub.Status == http.StatusUnauthorized || sub.Status == http.StatusForbidden:
				out[id] = &models.MessageFetchResult{
					MessageID: id,
					Err:       er.NewItemError(er.KindAuthError, fmt.Sprintf("message fetch returned status %d", sub.Status)),
				}
			default:
				out[id] = &models.MessageFetchResult{
					MessageID: id,
					Err:       er.NewItemError(er.KindNetworkError, fmt.Sprintf("message fetch returned status %d", sub.Status)),
				}
			}
		}
		pending = retry
	}

	f.failAll(out, pending, er.NewItemError(er.KindNetworkError, "retries exhausted"))
	return out
}

func (f *Fetcher) failAll(out map[string]*models.MessageFetchResult, ids []string, err error) {
	for _, id := range ids {
		out[id] = &models.MessageFetchResult{MessageID: id, Err: err}
	}
}

// callBatch issues one POST $batch with one sub-request per message id,
// correlating sub-responses back by id.
func (f *Fetcher) callBatch(ctx context.Context, ids []string) (map[string]batchSubResponse, error) {
	envelope := batchEnvelope{Requests: make([]batchSubRequest, 0, len(ids))}
	for _, id := range ids {
		envelope.Requests = append(envelope.Requests, batchSubRequest{
			ID:     id,
			Method: http.MethodGet,
			URL:    "/me/messages/" + id + messageSelectQuery,
		})
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal batch request")
	}

	status, body, err := f.client.do(ctx, http.MethodPost, "/$batch", payload, map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, er.NewItemError(er.KindNetworkError, fmt.Sprintf("batch call returned status %d", status))
	}

	var decoded batchResponseEnvelope
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, er.WrapItemError(er.KindNetworkError, err, "failed to decode batch response")
	}

	responses := make(map[string]batchSubResponse, len(decoded.Responses))
	for _, sub := range decoded.Responses {
		responses[sub.ID] = sub
	}
	return responses, nil
}

// decodeMessage turns one sub-response body into the envelope plus fetched
// attachment bytes, pulling any attachment without inline contentBytes
// through its $value endpoint.
func (f *Fetcher) decodeMessage(ctx context.Context, id string, body json.RawMessage) *models.MessageFetchResult {
	var msg graphMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return &models.MessageFetchResult{
			MessageID: id,
			Err:       er.WrapItemError(er.KindNetworkError, err, "failed to decode message"),
		}
	}

	envelope := &models.MessageEnvelope{
		MessageID:     id,
		Subject:       msg.Subject,
		SenderName:    msg.From.EmailAddress.Name,
		SenderAddress: msg.From.EmailAddress.Address,
		ReceivedAt:    msg.ReceivedDateTime,
		BodyText:      normalizeBody(msg.Body),
	}

	result := &models.MessageFetchResult{MessageID: id, Envelope: envelope}
	for _, att := range msg.Attachments {
		if att.ODataType != fileAttachmentType {
			continue
		}
		ref := models.AttachmentRef{
			MessageID:    id,
			AttachmentID: att.ID,
			Filename:     attachmentFilename(att.Name, att.ContentType),
			ContentType:  att.ContentType,
			SizeBytes:    att.Size,
			IsInline:     att.IsInline,
		}

		var content []byte
		if att.ContentBytes != "" {
			decoded, err := base64.StdEncoding.DecodeString(att.ContentBytes)
			if err != nil {
				result.Err = er.WrapItemError(er.KindNetworkError, err, "failed to decode attachment content")
				return result
			}
			content = decoded
		} else {
			raw, err := f.fetchAttachmentContent(ctx, id, att.ID)
			if err != nil {
				result.Err = err
				return result
			}
			content = raw
		}

		result.Attachments = append(result.Attachments, &models.FetchedAttachment{
			AttachmentRef: ref,
			Content:       content,
		})
	}
	return result
}

func (f *Fetcher) fetchAttachmentContent(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	url := fmt.Sprintf("/me/messages/%s/attachments/%s/$value", messageID, attachmentID)
	status, body, err := f.client.do(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, er.NewItemError(er.KindNetworkError, fmt.Sprintf("attachment fetch returned status %d", status))
	}
	return body, nil
}

// attachmentFilename backfills a usable name for attachments that arrive
// without one or without an extension.
func attachmentFilename(name, contentType string) string {
	if name == "" {
		name = "attachment"
	}
	if filepath.Ext(name) == "" {
		return name + "." + utils.GetFileExtensionFromContentType(contentType)
	}
	return name
}

func normalizeBody(body graphBody) string {
	if body.Content == "" {
		return ""
	}
	if body.ContentType == "html" {
		text, err := html2text.FromString(body.Content, html2text.Options{TextOnly: true})
		if err == nil {
			return text
		}
	}
	return body.Content
}

func chunkIDs(ids []string, size int) [][]string {
	var groups [][]string
	for len(ids) > size {
		groups = append(groups, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		groups = append(groups, ids)
	}
	return groups
}
