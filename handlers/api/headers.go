// handlers/api/headers.go
package api

import (
	"bufio"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"net/textproto"

	"github.com/emersion/go-imap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"threadmail/models"
)

// Direction selects which end of the mailbox a bounded fetch window covers.
type Direction int

const (
	OldestFirst Direction = iota
	NewestFirst
)

var threadingFields = []string{"MESSAGE-ID", "IN-REPLY-TO", "REFERENCES", "SUBJECT", "DATE"}

// FetchHeaders retrieves the threading headers for up to maxCount messages
// of a folder in one FETCH. When the mailbox holds more messages than
// maxCount, direction picks the oldest-N or newest-N window. useEnvelope
// selects between the structured ENVELOPE response and individually fetched
// header lines; both normalize into the same HeaderRecord shape.
//
// A single command is issued per call. Per-message parse failures do not
// abort the response: remaining messages are drained to keep the protocol
// stream consistent, and the first failure is returned once after the
// command completes. Transport errors propagate unchanged.
func (c *Client) FetchHeaders(folderName string, maxCount uint32, direction Direction, useEnvelope bool) ([]models.HeaderRecord, error) {
	mbox, err := c.client.Select(folderName, true)
	if err != nil {
		return nil, fmt.Errorf("error selecting folder %s: %v", folderName, err)
	}

	if mbox.Messages == 0 {
		return []models.HeaderRecord{}, nil
	}

	from, to := uint32(1), mbox.Messages
	if maxCount > 0 && mbox.Messages > maxCount {
		if direction == NewestFirst {
			from = mbox.Messages - maxCount + 1
		} else {
			to = maxCount
		}
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddRange(from, to)

	// The envelope form carries everything but References; the header-lines
	// form fetches all threading fields as one peeked section.
	fields := threadingFields
	if useEnvelope {
		fields = []string{"REFERENCES"}
	}
	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{
			Specifier: imap.HeaderSpecifier,
			Fields:    fields,
		},
		Peek: true,
	}

	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}
	if useEnvelope {
		items = append(items, imap.FetchEnvelope)
	}

	messages := make(chan *imap.Message, to-from+1)
	done := make(chan error, 1)
	go func() {
		done <- c.client.Fetch(seqSet, items, messages)
	}()

	var records []models.HeaderRecord
	var firstErr error
	for msg := range messages {
		rec, err := parseHeaderRecord(msg, folderName, section, useEnvelope)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("message %d: %v", msg.SeqNum, err)
			}
			continue
		}
		records = append(records, rec)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("error during fetch: %v", err)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return records, nil
}

// parseHeaderRecord normalizes one fetch response into a HeaderRecord.
func parseHeaderRecord(msg *imap.Message, folderName string, section *imap.BodySectionName, useEnvelope bool) (models.HeaderRecord, error) {
	rec := models.HeaderRecord{
		Folder: folderName,
		SeqNum: int64(msg.SeqNum),
		UID:    int64(msg.Uid),
	}

	r := msg.GetBody(section)
	if r == nil {
		return rec, fmt.Errorf("no header section in response")
	}
	header, err := textproto.NewReader(bufio.NewReader(r)).ReadMIMEHeader()
	if err != nil && err != io.EOF && len(header) == 0 {
		return rec, fmt.Errorf("error parsing header section: %v", err)
	}
	// The raw header value is kept whole: message-ids can be rewrapped
	// mid-id, so splitting on whitespace here would destroy them. The
	// threading parser handles the tokenization.
	if refs := header.Get("References"); refs != "" {
		rec.References = []string{refs}
	}

	if useEnvelope {
		if msg.Envelope == nil {
			return rec, fmt.Errorf("no envelope in response")
		}
		rec.MessageID = msg.Envelope.MessageId
		rec.InReplyTo = msg.Envelope.InReplyTo
		rec.Subject = decodeSubject(msg.Envelope.Subject)
		rec.Date = msg.Envelope.Date
		return rec, nil
	}

	rec.MessageID = header.Get("Message-Id")
	rec.InReplyTo = header.Get("In-Reply-To")
	rec.Subject = decodeSubject(header.Get("Subject"))
	if date, err := mail.ParseDate(header.Get("Date")); err == nil {
		rec.Date = date
	}
	return rec, nil
}

// wordDecoder decodes MIME-encoded header words, with charset support
// beyond UTF-8/ASCII.
var wordDecoder = mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := ianaindex.MIME.Encoding(charset)
		if err != nil || enc == nil {
			return nil, fmt.Errorf("unsupported charset %q", charset)
		}
		return transform.NewReader(input, enc.NewDecoder()), nil
	},
}

func decodeSubject(s string) string {
	decoded, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}
