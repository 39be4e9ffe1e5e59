package models

import "github.com/customeros/attachstack/internal/enum"

// UploadSession tracks one chunked remote upload. It is created, advanced and
// explicitly completed or aborted within a single save call and must never
// outlive it. The upload URL is an ownership token: every exit path either
// completes or cancels it.
type UploadSession struct {
	UploadURL     string
	TotalSize     int64
	BytesUploaded int64
	ChunkSize     int64
	State         enum.UploadState
}

func NewUploadSession(uploadURL string, totalSize, chunkSize int64) *UploadSession {
	return &UploadSession{
		UploadURL: uploadURL,
		TotalSize: totalSize,
		ChunkSize: chunkSize,
		State:     enum.UploadSessionOpen,
	}
}

// NextRange returns the byte range of the next chunk. Ranges are contiguous
// and strictly sequential, as the remote protocol requires.
func (s *UploadSession) NextRange() (start, end int64) {
	start = s.BytesUploaded
	end = start + s.ChunkSize - 1
	if end > s.TotalSize-1 {
		end = s.TotalSize - 1
	}
	return start, end
}

// Advance records a successfully uploaded chunk ending at end (inclusive)
func (s *UploadSession) Advance(end int64) {
	s.BytesUploaded = end + 1
	if s.BytesUploaded >= s.TotalSize {
		s.State = enum.UploadCompleted
	} else {
		s.State = enum.UploadUploading
	}
}

func (s *UploadSession) Abort() {
	s.State = enum.UploadAborted
}

func (s *UploadSession) Done() bool {
	return s.BytesUploaded >= s.TotalSize
}
