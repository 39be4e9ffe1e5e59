package models

import "time"

// MessageEnvelope carries the metadata needed to lay out one message folder
// and its mail_content.txt body file.
type MessageEnvelope struct {
	MessageID     string    `json:"messageId"`
	Subject       string    `json:"subject"`
	SenderName    string    `json:"senderName"`
	SenderAddress string    `json:"senderAddress"`
	ReceivedAt    time.Time `json:"receivedAt"`
	BodyText      string    `json:"-"`
}

// MessageFetchResult is the per-message output of one batch fetch pass.
// Err is set when the message itself could not be retrieved; sibling
// messages in the same batch are unaffected.
type MessageFetchResult struct {
	MessageID   string
	Envelope    *MessageEnvelope
	Attachments []*FetchedAttachment
	Err         error
}
