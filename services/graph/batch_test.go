package graph

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/attachstack/config"
	er "github.com/customeros/attachstack/internal/errors"
	"github.com/customeros/attachstack/internal/logger"
)

func getTestLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func testGraphConfig(baseURL string) *config.GraphConfig {
	return &config.GraphConfig{
		BaseURL:               baseURL,
		AccessToken:           "test-token",
		RequestTimeoutSeconds: 5,
		MaxRetries:            1,
		BatchFanOut:           4,
	}
}

func newTestFetcher(t *testing.T, handler http.Handler) (*Fetcher, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := testGraphConfig(server.URL)
	client := NewClient(cfg, StaticTokenProvider{Token: cfg.AccessToken}, getTestLogger())
	fetcher := NewFetcher(client, cfg, getTestLogger()).(*Fetcher)
	return fetcher, server
}

func messageBody(id, subject string, attachments ...map[string]interface{}) json.RawMessage {
	msg := map[string]interface{}{
		"id":               id,
		"subject":          subject,
		"from":             map[string]interface{}{"emailAddress": map[string]string{"name": "Jane Doe", "address": "jane@acme.com"}},
		"receivedDateTime": "2025-03-01T10:00:00Z",
		"body":             map[string]string{"contentType": "text", "content": "hello"},
		"attachments":      attachments,
	}
	raw, _ := json.Marshal(msg)
	return raw
}

func inlineAttachment(id, name string, content []byte) map[string]interface{} {
	return map[string]interface{}{
		"@odata.type":  "#microsoft.graph.fileAttachment",
		"id":           id,
		"name":         name,
		"contentType":  "application/octet-stream",
		"size":         len(content),
		"contentBytes": base64.StdEncoding.EncodeToString(content),
	}
}

// batchHandler decodes a $batch call and answers each sub-request through
// respond, recording the size of every call it sees.
type batchHandler struct {
	mu        sync.Mutex
	callSizes []int
	respond   func(id string, attempt int) batchSubResponse
	attempts  map[string]int
}

func (h *batchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/$batch" {
		http.NotFound(w, r)
		return
	}

	var envelope batchEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	h.callSizes = append(h.callSizes, len(envelope.Requests))
	if h.attempts == nil {
		h.attempts = make(map[string]int)
	}
	var out batchResponseEnvelope
	for _, req := range envelope.Requests {
		h.attempts[req.ID]++
		out.Responses = append(out.Responses, h.respond(req.ID, h.attempts[req.ID]))
	}
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func okResponse(id string) batchSubResponse {
	return batchSubResponse{ID: id, Status: http.StatusOK, Body: messageBody(id, "subject "+id)}
}

func TestFetchMessages_BatchCallCount(t *testing.T) {
	handler := &batchHandler{
		respond: func(id string, attempt int) batchSubResponse { return okResponse(id) },
	}
	fetcher, _ := newTestFetcher(t, handler)

	ids := make([]string, 45)
	for i := range ids {
		ids[i] = fmt.Sprintf("msg-%02d", i)
	}

	results, err := fetcher.FetchMessages(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, results, 45)

	for _, id := range ids {
		result, ok := results[id]
		require.True(t, ok, "missing result for %s", id)
		assert.NoError(t, result.Err)
		assert.Equal(t, "subject "+id, result.Envelope.Subject)
	}

	// 45 ids must produce exactly ceil(45/20) = 3 calls sized 20, 20 and 5
	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Len(t, handler.callSizes, 3)
	total := 0
	for _, size := range handler.callSizes {
		assert.LessOrEqual(t, size, MaxBatchSize)
		total += size
	}
	assert.Equal(t, 45, total)
}

func TestFetchMessages_PerItemFailureIsolation(t *testing.T) {
	handler := &batchHandler{
		respond: func(id string, attempt int) batchSubResponse {
			if id == "msg-gone" {
				return batchSubResponse{ID: id, Status: http.StatusNotFound}
			}
			return okResponse(id)
		},
	}
	fetcher, _ := newTestFetcher(t, handler)

	results, err := fetcher.FetchMessages(context.Background(), []string{"msg-1", "msg-gone", "msg-2"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results["msg-1"].Err)
	assert.NoError(t, results["msg-2"].Err)
	require.Error(t, results["msg-gone"].Err)
	assert.Equal(t, er.KindNetworkError, er.KindOf(results["msg-gone"].Err))
}

func TestFetchMessages_TransientSubStatusRebatched(t *testing.T) {
	handler := &batchHandler{
		respond: func(id string, attempt int) batchSubResponse {
			if id == "msg-flaky" && attempt == 1 {
				return batchSubResponse{ID: id, Status: http.StatusServiceUnavailable}
			}
			return okResponse(id)
		},
	}
	fetcher, _ := newTestFetcher(t, handler)

	results, err := fetcher.FetchMessages(context.Background(), []string{"msg-flaky", "msg-solid"})
	require.NoError(t, err)

	assert.NoError(t, results["msg-flaky"].Err)
	assert.NoError(t, results["msg-solid"].Err)

	// the retry call re-batches only the flaky id
	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Len(t, handler.callSizes, 2)
	assert.Equal(t, 2, handler.callSizes[0])
	assert.Equal(t, 1, handler.callSizes[1])
}

func TestFetchMessages_RetriesExhausted(t *testing.T) {
	handler := &batchHandler{
		respond: func(id string, attempt int) batchSubResponse {
			return batchSubResponse{ID: id, Status: http.StatusServiceUnavailable}
		},
	}
	fetcher, _ := newTestFetcher(t, handler)

	results, err := fetcher.FetchMessages(context.Background(), []string{"msg-1"})
	require.NoError(t, err)

	require.Error(t, results["msg-1"].Err)
	assert.Contains(t, results["msg-1"].Err.Error(), "retries exhausted")
}

func TestFetchMessages_AuthFailureNotRetried(t *testing.T) {
	handler := &batchHandler{
		respond: func(id string, attempt int) batchSubResponse {
			return batchSubResponse{ID: id, Status: http.StatusForbidden}
		},
	}
	fetcher, _ := newTestFetcher(t, handler)

	results, err := fetcher.FetchMessages(context.Background(), []string{"msg-1"})
	require.NoError(t, err)

	require.Error(t, results["msg-1"].Err)
	assert.Equal(t, er.KindAuthError, er.KindOf(results["msg-1"].Err))

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Len(t, handler.callSizes, 1)
}

func TestFetchMessages_InlineAttachmentDecoded(t *testing.T) {
	content := []byte("attachment payload")
	handler := &batchHandler{
		respond: func(id string, attempt int) batchSubResponse {
			return batchSubResponse{
				ID:     id,
				Status: http.StatusOK,
				Body:   messageBody(id, "with attachment", inlineAttachment("att-1", "report.pdf", content)),
			}
		},
	}
	fetcher, _ := newTestFetcher(t, handler)

	results, err := fetcher.FetchMessages(context.Background(), []string{"msg-1"})
	require.NoError(t, err)

	result := results["msg-1"]
	require.NoError(t, result.Err)
	require.Len(t, result.Attachments, 1)
	assert.Equal(t, "report.pdf", result.Attachments[0].Filename)
	assert.Equal(t, content, result.Attachments[0].Content)
}

func TestFetchMessages_LargeAttachmentFetchedByValue(t *testing.T) {
	content := []byte("large attachment payload")

	mux := http.NewServeMux()
	mux.Handle("/$batch", &batchHandler{
		respond: func(id string, attempt int) batchSubResponse {
			return batchSubResponse{
				ID:     id,
				Status: http.StatusOK,
				Body: messageBody(id, "large", map[string]interface{}{
					"@odata.type": "#microsoft.graph.fileAttachment",
					"id":          "att-big",
					"name":        "big.bin",
					"contentType": "application/octet-stream",
					"size":        len(content),
				}),
			}
		},
	})
	mux.HandleFunc("/me/messages/msg-1/attachments/att-big/$value", func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	})

	fetcher, _ := newTestFetcher(t, mux)

	results, err := fetcher.FetchMessages(context.Background(), []string{"msg-1"})
	require.NoError(t, err)

	result := results["msg-1"]
	require.NoError(t, result.Err)
	require.Len(t, result.Attachments, 1)
	assert.Equal(t, content, result.Attachments[0].Content)
}

func TestFetchMessages_NonFileAttachmentSkipped(t *testing.T) {
	handler := &batchHandler{
		respond: func(id string, attempt int) batchSubResponse {
			return batchSubResponse{
				ID:     id,
				Status: http.StatusOK,
				Body: messageBody(id, "item attachment", map[string]interface{}{
					"@odata.type": "#microsoft.graph.itemAttachment",
					"id":          "att-item",
					"name":        "nested message",
				}),
			}
		},
	}
	fetcher, _ := newTestFetcher(t, handler)

	results, err := fetcher.FetchMessages(context.Background(), []string{"msg-1"})
	require.NoError(t, err)
	require.NoError(t, results["msg-1"].Err)
	assert.Empty(t, results["msg-1"].Attachments)
}

func TestAttachmentFilename(t *testing.T) {
	assert.Equal(t, "report.pdf", attachmentFilename("report.pdf", "application/pdf"))
	assert.Equal(t, "scan.pdf", attachmentFilename("scan", "application/pdf"))
	assert.Equal(t, "attachment.bin", attachmentFilename("", "application/octet-stream"))
}

func TestChunkIDs(t *testing.T) {
	assert.Nil(t, chunkIDs(nil, 20))

	groups := chunkIDs([]string{"a", "b", "c"}, 2)
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"a", "b"}, groups[0])
	assert.Equal(t, []string{"c"}, groups[1])

	groups = chunkIDs([]string{"a", "b"}, 2)
	require.Len(t, groups, 1)
}

func TestNormalizeBody_HTML(t *testing.T) {
	text := normalizeBody(graphBody{ContentType: "html", Content: "<p>Hello <b>world</b></p>"})
	assert.Contains(t, text, "Hello world")
}
