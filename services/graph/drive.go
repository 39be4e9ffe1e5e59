package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"

	er "github.com/customeros/attachstack/internal/errors"
	"github.com/customeros/attachstack/internal/models"
	"github.com/customeros/attachstack/internal/tracing"
)

const (
	// simpleUploadLimit is the branch point between a single PUT and an
	// upload session
	simpleUploadLimit = 4 * 1000 * 1000
	// uploadChunkSize is fixed; only the final remainder chunk is smaller
	uploadChunkSize = 10 * 1000 * 1000
	// maxRemoteFileSize is enforced before any bytes are sent
	maxRemoteFileSize = int64(250) * 1000 * 1000 * 1000
)

type uploadPath int

const (
	uploadPathSimple uploadPath = iota
	uploadPathSession
	uploadPathRejected
)

func uploadPathFor(size int64) uploadPath {
	switch {
	case size > maxRemoteFileSize:
		return uploadPathRejected
	case size > simpleUploadLimit:
		return uploadPathSession
	default:
		return uploadPathSimple
	}
}

type driveItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Size            int64  `json:"size"`
	WebURL          string `json:"webUrl"`
	ParentReference struct {
		Path string `json:"path"`
	} `json:"parentReference"`
}

func (d *driveItem) toRemoteItem() *models.RemoteItem {
	return &models.RemoteItem{
		ID:   d.ID,
		Name: d.Name,
		Path: d.ParentReference.Path + "/" + d.Name,
		Size: d.Size,
	}
}

type createSessionResponse struct {
	UploadURL string `json:"uploadUrl"`
}

// CreateFolder creates the folder path segment by segment. An already
// existing segment (409 nameAlreadyExists) counts as success.
func (c *Client) CreateFolder(ctx context.Context, path string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GraphClient.CreateFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogFields(tracingLog.String("path", path))

	segments := strings.Split(strings.Trim(path, "/"), "/")
	parent := ""
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		if err := c.createChildFolder(ctx, parent, segment); err != nil {
			tracing.TraceErr(span, err)
			return err
		}
		if parent == "" {
			parent = segment
		} else {
			parent = parent + "/" + segment
		}
	}
	return nil
}

func (c *Client) createChildFolder(ctx context.Context, parent, name string) error {
	endpoint := "/me/drive/root/children"
	if parent != "" {
		endpoint = "/me/drive/root:/" + escapeDrivePath(parent) + ":/children"
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"name":                              name,
		"folder":                            map[string]interface{}{},
		"@microsoft.graph.conflictBehavior": "fail",
	})

	status, _, err := c.do(ctx, http.MethodPost, endpoint, payload, map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return err
	}
	switch status {
	case http.StatusCreated, http.StatusOK, http.StatusConflict:
		return nil
	default:
		return er.NewItemError(er.KindNetworkError, fmt.Sprintf("folder create returned status %d", status))
	}
}

// UploadFile stores content at drivePath, branching on size: a single PUT up
// to the simple limit, a chunked upload session above it. Oversized payloads
// are rejected before any network call.
func (c *Client) UploadFile(ctx context.Context, drivePath string, content []byte, contentType string) (*models.RemoteItem, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GraphClient.UploadFile")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogFields(tracingLog.String("path", drivePath), tracingLog.Int("size", len(content)))

	switch uploadPathFor(int64(len(content))) {
	case uploadPathRejected:
		err := er.NewItemError(er.KindSizeExceeded, fmt.Sprintf("payload of %d bytes exceeds the %d byte remote limit", len(content), maxRemoteFileSize))
		tracing.TraceErr(span, err)
		return nil, err
	case uploadPathSession:
		item, err := c.uploadViaSession(ctx, drivePath, content, contentType)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		return item, nil
	default:
		item, err := c.uploadSimple(ctx, drivePath, content, contentType)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		return item, nil
	}
}

func (c *Client) uploadSimple(ctx context.Context, drivePath string, content []byte, contentType string) (*models.RemoteItem, error) {
	endpoint := "/me/drive/root:/" + escapeDrivePath(drivePath) + ":/content"
	status, body, err := c.do(ctx, http.MethodPut, endpoint, content, map[string]string{
		"Content-Type": contentType,
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, er.NewItemError(er.KindNetworkError, fmt.Sprintf("simple upload returned status %d", status))
	}

	var item driveItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, er.WrapItemError(er.KindNetworkError, err, "failed to decode drive item")
	}
	return item.toRemoteItem(), nil
}

// uploadViaSession owns the session handle for the duration of the call:
// every exit path either completes the session or cancels it with an
// explicit DELETE. A session never outlives this call.
func (c *Client) uploadViaSession(ctx context.Context, drivePath string, content []byte, contentType string) (*models.RemoteItem, error) {
	endpoint := "/me/drive/root:/" + escapeDrivePath(drivePath) + ":/createUploadSession"
	payload, _ := json.Marshal(map[string]interface{}{
		"item": map[string]interface{}{
			"@microsoft.graph.conflictBehavior": "rename",
		},
	})

	status, body, err := c.do(ctx, http.MethodPost, endpoint, payload, map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, er.NewItemError(er.KindNetworkError, fmt.Sprintf("create session returned status %d", status))
	}

	var created createSessionResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, er.WrapItemError(er.KindNetworkError, err, "failed to decode upload session")
	}
	if created.UploadURL == "" {
		return nil, er.NewItemError(er.KindNetworkError, "upload session without uploadUrl")
	}

	session := models.NewUploadSession(created.UploadURL, int64(len(content)), uploadChunkSize)
	item, err := c.uploadChunks(ctx, session, content)
	if err != nil {
		c.abortSession(session)
		return nil, err
	}
	return item, nil
}

// uploadChunks sends the chunks in strict sequential byte-range order, as the
// protocol requires. Intermediate chunks answer 202, the final one 200/201
// with the item metadata.
func (c *Client) uploadChunks(ctx context.Context, session *models.UploadSession, content []byte) (*models.RemoteItem, error) {
	for !session.Done() {
		if err := ctx.Err(); err != nil {
			return nil, er.WrapItemError(er.KindNetworkError, err, "upload cancelled")
		}

		start, end := session.NextRange()
		headers := map[string]string{
			"Content-Range": fmt.Sprintf("bytes %d-%d/%d", start, end, session.TotalSize),
		}

		status, body, err := c.doOnce(ctx, http.MethodPut, session.UploadURL, content[start:end+1], headers)
		if err != nil {
			return nil, err
		}

		switch status {
		case http.StatusAccepted:
			session.Advance(end)
		case http.StatusOK, http.StatusCreated:
			session.Advance(end)
			var item driveItem
			if err := json.Unmarshal(body, &item); err != nil {
				return nil, er.WrapItemError(er.KindNetworkError, err, "failed to decode drive item")
			}
			return item.toRemoteItem(), nil
		default:
			return nil, er.NewItemError(er.KindNetworkError, fmt.Sprintf("chunk upload returned status %d", status))
		}
	}
	return nil, er.NewItemError(er.KindNetworkError, "upload session ended without item metadata")
}

// abortSession cancels the session so no handle is left open on a failure
// path. The abort runs on a detached context: it must still fire when the
// caller's context is already cancelled. A failed abort is logged, never
// returned, since the primary error already determines the item's outcome.
func (c *Client) abortSession(session *models.UploadSession) {
	session.Abort()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	status, _, err := c.doOnce(ctx, http.MethodDelete, session.UploadURL, nil, nil)
	if err != nil {
		c.log.Warnf("Failed to cancel upload session: %v", er.WrapItemError(er.KindSessionAbort, err, "session cancel failed"))
		return
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		c.log.Warnf("Upload session cancel returned status %d", status)
	}
}

func escapeDrivePath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
