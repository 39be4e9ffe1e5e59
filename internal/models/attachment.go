package models

import (
	"github.com/customeros/attachstack/internal/enum"
	"github.com/customeros/attachstack/internal/errors"
)

// AttachmentRef identifies one attachment without its bytes
type AttachmentRef struct {
	MessageID    string `json:"messageId"`
	AttachmentID string `json:"attachmentId"`
	Filename     string `json:"filename"`
	ContentType  string `json:"contentType"`
	SizeBytes    int64  `json:"sizeBytes"`
	IsInline     bool   `json:"isInline"`
}

// FetchedAttachment is an AttachmentRef plus its raw content. Content is
// written once on fetch and never mutated afterwards.
type FetchedAttachment struct {
	AttachmentRef
	Content []byte `json:"-"`
}

// ConversionResult records the outcome of one text extraction attempt.
// Exactly one of OutputText or ErrorKind-with-fallback applies.
type ConversionResult struct {
	SourceRef     AttachmentRef
	Succeeded     bool
	OutputText    string
	ConverterUsed enum.ConverterKind
	ErrorKind     errors.Kind
	ErrorReason   string
}

// StoredItem is the terminal output for one persisted object
type StoredItem struct {
	Destination  string           `json:"destination"`
	BytesWritten int64            `json:"bytesWritten"`
	StorageKind  enum.StorageKind `json:"storageKind"`
	ContentKind  enum.ContentKind `json:"contentKind"`
}

// RemoteItem is the metadata a remote drive returns for an uploaded object
type RemoteItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}
