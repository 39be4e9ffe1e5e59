package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	er "github.com/customeros/attachstack/internal/errors"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := testGraphConfig(server.URL)
	client := NewClient(cfg, StaticTokenProvider{Token: cfg.AccessToken}, getTestLogger())
	return client, server
}

func writeDriveItem(w http.ResponseWriter, status int, name string, size int64) {
	item := map[string]interface{}{
		"id":   "item-1",
		"name": name,
		"size": size,
		"parentReference": map[string]string{
			"path": "/drive/root:/mail-archive",
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(item)
}

func TestUploadPathFor(t *testing.T) {
	assert.Equal(t, uploadPathSimple, uploadPathFor(0))
	assert.Equal(t, uploadPathSimple, uploadPathFor(4*1000*1000))
	assert.Equal(t, uploadPathSession, uploadPathFor(4*1000*1000+1))
	assert.Equal(t, uploadPathSession, uploadPathFor(maxRemoteFileSize))
	assert.Equal(t, uploadPathRejected, uploadPathFor(maxRemoteFileSize+1))
}

func TestUploadFile_SimplePut(t *testing.T) {
	var method, path string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		writeDriveItem(w, http.StatusCreated, "report.pdf", 1024)
	})
	client, _ := newTestClient(t, handler)

	item, err := client.UploadFile(context.Background(), "mail-archive/folder/report.pdf", bytes.Repeat([]byte("a"), 1024), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/me/drive/root:/mail-archive/folder/report.pdf:/content", path)
	assert.Equal(t, int64(1024), item.Size)
	assert.Equal(t, "/drive/root:/mail-archive/report.pdf", item.Path)
}

func TestUploadFile_SessionChunks(t *testing.T) {
	// 12 MB payload splits into a full 10 MB chunk plus a 2 MB remainder
	content := bytes.Repeat([]byte("b"), 12*1000*1000)

	var mu sync.Mutex
	var contentRanges []string
	var chunkSizes []int

	mux := http.NewServeMux()
	mux.HandleFunc("/me/drive/root:/mail-archive/big.bin:/createUploadSession", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"uploadUrl": "http://" + r.Host + "/upload-session/abc",
		})
	})
	mux.HandleFunc("/upload-session/abc", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		contentRanges = append(contentRanges, r.Header.Get("Content-Range"))
		chunkSizes = append(chunkSizes, len(body))
		last := len(contentRanges)
		mu.Unlock()

		if last < 2 {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		writeDriveItem(w, http.StatusCreated, "big.bin", int64(len(content)))
	})

	client, _ := newTestClient(t, mux)

	item, err := client.UploadFile(context.Background(), "mail-archive/big.bin", content, "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), item.Size)

	require.Len(t, contentRanges, 2)
	assert.Equal(t, "bytes 0-9999999/12000000", contentRanges[0])
	assert.Equal(t, "bytes 10000000-11999999/12000000", contentRanges[1])
	assert.Equal(t, []int{10000000, 2000000}, chunkSizes)
}

func TestUploadFile_SessionAbortedOnChunkFailure(t *testing.T) {
	content := bytes.Repeat([]byte("c"), 12*1000*1000)

	var mu sync.Mutex
	var chunkCalls int
	var abortSeen bool

	mux := http.NewServeMux()
	mux.HandleFunc("/me/drive/root:/mail-archive/doomed.bin:/createUploadSession", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"uploadUrl": "http://" + r.Host + "/upload-session/doomed",
		})
	})
	mux.HandleFunc("/upload-session/doomed", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.Method == http.MethodDelete {
			abortSeen = true
			w.WriteHeader(http.StatusNoContent)
			return
		}
		chunkCalls++
		if chunkCalls == 1 {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	client, _ := newTestClient(t, mux)

	_, err := client.UploadFile(context.Background(), "mail-archive/doomed.bin", content, "application/octet-stream")
	require.Error(t, err)
	assert.Equal(t, er.KindNetworkError, er.KindOf(err))

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, abortSeen, "failed session must be cancelled with a DELETE")
}

func TestUploadFile_SessionAbortedOnCancelledContext(t *testing.T) {
	content := bytes.Repeat([]byte("d"), 12*1000*1000)

	var mu sync.Mutex
	var abortSeen bool

	ctx, cancel := context.WithCancel(context.Background())

	mux := http.NewServeMux()
	mux.HandleFunc("/me/drive/root:/mail-archive/cancelled.bin:/createUploadSession", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"uploadUrl": "http://" + r.Host + "/upload-session/cancelled",
		})
	})
	mux.HandleFunc("/upload-session/cancelled", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.Method == http.MethodDelete {
			abortSeen = true
			w.WriteHeader(http.StatusNoContent)
			return
		}
		// cancel mid-session; the abort must still go out on a fresh context
		cancel()
		w.WriteHeader(http.StatusAccepted)
	})

	client, _ := newTestClient(t, mux)

	_, err := client.UploadFile(ctx, "mail-archive/cancelled.bin", content, "application/octet-stream")
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, abortSeen, "cancelled session must still be aborted")
}

func TestCreateFolder_SegmentBySegment(t *testing.T) {
	var mu sync.Mutex
	var endpoints []string
	var names []string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		json.NewDecoder(r.Body).Decode(&payload)
		mu.Lock()
		endpoints = append(endpoints, r.URL.Path)
		names = append(names, fmt.Sprint(payload["name"]))
		mu.Unlock()
		writeDriveItem(w, http.StatusCreated, fmt.Sprint(payload["name"]), 0)
	})
	client, _ := newTestClient(t, handler)

	err := client.CreateFolder(context.Background(), "mail-archive/2025-03-01_jane_subject")
	require.NoError(t, err)

	require.Len(t, endpoints, 2)
	assert.Equal(t, "/me/drive/root/children", endpoints[0])
	assert.Equal(t, "/me/drive/root:/mail-archive:/children", endpoints[1])
	assert.Equal(t, []string{"mail-archive", "2025-03-01_jane_subject"}, names)
}

func TestCreateFolder_ExistingFolderIsSuccess(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	client, _ := newTestClient(t, handler)

	err := client.CreateFolder(context.Background(), "mail-archive/existing")
	assert.NoError(t, err)
}

func TestEscapeDrivePath(t *testing.T) {
	assert.Equal(t, "a/b%20c", escapeDrivePath("a/b c"))
	assert.Equal(t, "folder/file%231.txt", escapeDrivePath("/folder/file#1.txt"))
}
