// Package intake turns RFC 5322 messages into mail records, for letters that
// arrive over SMTP or from an mbox archive.
package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	mboxlib "github.com/emersion/go-mbox"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.io/infrasutra/orgmail/internal/imagepick"
	"github.io/infrasutra/orgmail/internal/store"
)

const (
	noSubject   = "(no subject)"
	unknownName = "unknown"
	dateLayout  = "2006-01-02"
)

type Adder interface {
	AddMail(ctx context.Context, record store.MailRecord) (store.MailRecord, error)
}

type Converter struct {
	picker *imagepick.Picker
	logger *slog.Logger
	now    func() time.Time
}

func NewConverter(picker *imagepick.Picker, logger *slog.Logger) *Converter {
	if picker == nil {
		picker = imagepick.New(0)
	}
	return &Converter{
		picker: picker,
		logger: logger.With("component", "intake"),
		now:    time.Now,
	}
}

// Convert maps a raw message onto a record of type t. The record is complete
// enough to pass validation even when headers are missing.
func (c *Converter) Convert(raw []byte, t store.MailType) (store.MailRecord, error) {
	record := store.MailRecord{
		Type:    t,
		Subject: noSubject,
		Name:    unknownName,
		Date:    c.now().Format(dateLayout),
	}

	reader, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return store.MailRecord{}, fmt.Errorf("parse message: %w", err)
	}

	if subject, err := reader.Header.Subject(); err == nil && strings.TrimSpace(subject) != "" {
		record.Subject = strings.TrimSpace(subject)
	}
	correspondent := "From"
	if t == store.Outgoing {
		correspondent = "To"
	}
	if list, err := reader.Header.AddressList(correspondent); err == nil && len(list) > 0 {
		record.Name = addressName(list[0])
	}
	if date, err := reader.Header.Date(); err == nil && !date.IsZero() {
		record.Date = date.Format(dateLayout)
	}
	if id, err := reader.Header.MessageID(); err == nil && id != "" {
		record.Number = id
	} else {
		record.Number = "MSG-" + strings.ToUpper(uuid.NewString()[:8])
	}

	var notes []string
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.logger.Warn("stop reading message parts", "number", record.Number, "error", err)
			break
		}

		var mediaType string
		switch header := part.Header.(type) {
		case *mail.InlineHeader:
			mediaType, _, _ = header.ContentType()
		case *mail.AttachmentHeader:
			mediaType, _, _ = header.ContentType()
		}
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(mediaType, "image/"):
			if record.Image != "" {
				continue
			}
			dataURL, err := c.picker.FromBytes(body, mediaType)
			if err != nil {
				c.logger.Warn("skip message image", "number", record.Number, "error", err)
				continue
			}
			record.Image = dataURL
		case mediaType == "" || strings.HasPrefix(mediaType, "text/plain"):
			if _, isAttachment := part.Header.(*mail.AttachmentHeader); isAttachment {
				continue
			}
			if text := strings.TrimSpace(string(body)); text != "" {
				notes = append(notes, text)
			}
		}
	}
	record.Notes = strings.Join(notes, "\n")
	return record, nil
}

func addressName(addr *mail.Address) string {
	if name := strings.TrimSpace(addr.Name); name != "" {
		return name
	}
	if address := strings.TrimSpace(addr.Address); address != "" {
		return strings.ToLower(address)
	}
	return unknownName
}

// ImportMbox adds every message of an mbox archive as a record of type t and
// returns how many were added. Messages that cannot be parsed are skipped.
func (c *Converter) ImportMbox(ctx context.Context, r io.Reader, t store.MailType, adder Adder) (int, error) {
	reader := mboxlib.NewReader(r)
	imported := 0
	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return imported, err
		}

		msgReader, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			return imported, nil
		}
		if err != nil {
			return imported, fmt.Errorf("message %d: %w", idx, err)
		}
		raw, err := io.ReadAll(msgReader)
		if err != nil {
			return imported, fmt.Errorf("message %d read: %w", idx, err)
		}

		record, err := c.Convert(raw, t)
		if err != nil {
			c.logger.Warn("skip unparsable message", "index", idx, "error", err)
			continue
		}
		if _, err := adder.AddMail(ctx, record); err != nil {
			return imported, fmt.Errorf("message %d add: %w", idx, err)
		}
		imported++
	}
}
