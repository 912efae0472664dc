package models

import "time"

// HeaderRecord holds the identity and threading headers of one message as
// fetched from the server. Records are immutable once fetched; tree linkage
// lives in the threading package, not here.
type HeaderRecord struct {
	MessageID  string   `json:"message_id"`
	InReplyTo  string   `json:"in_reply_to,omitempty"`
	References []string `json:"references,omitempty"`
	Subject    string   `json:"subject"`

	// Positional fields
	Folder string    `json:"folder"`
	SeqNum int64     `json:"seq"` // 1-based position in the mailbox at fetch time
	UID    int64     `json:"uid"` // server-assigned, -1 or 0 when unknown
	Date   time.Time `json:"date,omitempty"`
}

// IsPlaceholder reports whether the record is a synthesized container that
// only exists to hold children. Placeholders have no position and no real
// identity and must never be emitted as a leaf result on their own.
func (r HeaderRecord) IsPlaceholder() bool {
	return r.SeqNum <= 0 && r.MessageID == ""
}
