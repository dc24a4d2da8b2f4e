package view

import (
	"context"
	"fmt"
	"io"

	"github.io/infrasutra/orgmail/internal/imagepick"
	"github.io/infrasutra/orgmail/internal/store"
)

type MailAdder interface {
	AddMail(ctx context.Context, record store.MailRecord) (store.MailRecord, error)
}

// MailForm is the add-letter draft of one mailbox. A MailForm must not be
// copied after first use.
type MailForm struct {
	Type    store.MailType
	Number  string
	Name    string
	Subject string
	Date    string
	Notes   string
	Image   imagepick.Field

	picker *imagepick.Picker
}

func NewMailForm(t store.MailType, picker *imagepick.Picker) *MailForm {
	if picker == nil {
		picker = imagepick.New(0)
	}
	return &MailForm{Type: t, picker: picker}
}

func (f *MailForm) Draft() store.MailRecord {
	return store.MailRecord{
		Type:    f.Type,
		Number:  f.Number,
		Name:    f.Name,
		Subject: f.Subject,
		Date:    f.Date,
		Notes:   f.Notes,
		Image:   f.Image.Value(),
	}
}

// PickImage encodes r into the image field in the background.
func (f *MailForm) PickImage(ctx context.Context, r io.Reader, contentType string) <-chan imagepick.Result {
	return f.Image.Pick(ctx, f.picker, r, contentType)
}

// Submit adds the draft when number, name, subject and date are filled in.
// An incomplete draft never reaches the store. On success the form is reset.
func (f *MailForm) Submit(ctx context.Context, adder MailAdder) (store.MailRecord, error) {
	draft := f.Draft()
	if err := draft.Validate(); err != nil {
		return store.MailRecord{}, err
	}
	if draft.Image != "" {
		if err := f.picker.Check(draft.Image); err != nil {
			return store.MailRecord{}, fmt.Errorf("image: %w", err)
		}
	}
	record, err := adder.AddMail(ctx, draft)
	if err != nil {
		return store.MailRecord{}, err
	}
	f.Reset()
	return record, nil
}

func (f *MailForm) Reset() {
	f.Number = ""
	f.Name = ""
	f.Subject = ""
	f.Date = ""
	f.Notes = ""
	f.Image.Clear()
}
