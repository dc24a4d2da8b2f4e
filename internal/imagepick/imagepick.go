// Package imagepick turns picked image files into data URLs suitable for
// storing inside a mail record or profile.
package imagepick

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
)

var (
	ErrImageTooLarge = errors.New("image too large")
	ErrEmptyImage    = errors.New("image is empty")
)

// Picker enforces a maximum encoded size. MaxBytes <= 0 disables the limit.
type Picker struct {
	MaxBytes int
}

func New(maxBytes int) *Picker {
	return &Picker{MaxBytes: maxBytes}
}

type Result struct {
	DataURL string
	Err     error
}

// Encode reads r fully and returns "data:<type>;base64,<payload>". An empty or
// generic contentType is replaced by one sniffed from the content.
func (p *Picker) Encode(r io.Reader, contentType string) (string, error) {
	reader := r
	if p.MaxBytes > 0 {
		// Base64 turns 3 bytes into 4; a read this long already overflows the limit.
		reader = io.LimitReader(r, int64(p.MaxBytes/4*3+4))
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyImage
	}

	mediaType := normalizeContentType(contentType)
	if mediaType == "" {
		mediaType = normalizeContentType(http.DetectContentType(data))
	}
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	prefix := "data:" + mediaType + ";base64,"
	if err := p.checkLen(len(prefix) + base64.StdEncoding.EncodedLen(len(data))); err != nil {
		return "", err
	}
	return prefix + base64.StdEncoding.EncodeToString(data), nil
}

// Pick encodes in the background and delivers exactly one Result.
func (p *Picker) Pick(ctx context.Context, r io.Reader, contentType string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		dataURL, err := p.Encode(r, contentType)
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			out <- Result{Err: err}
			return
		}
		out <- Result{DataURL: dataURL}
	}()
	return out
}

// Check applies the size policy to an already encoded data URL.
func (p *Picker) Check(dataURL string) error {
	return p.checkLen(len(dataURL))
}

func (p *Picker) checkLen(n int) error {
	if p.MaxBytes > 0 && n > p.MaxBytes {
		return fmt.Errorf("%w: %d bytes encoded, limit %d", ErrImageTooLarge, n, p.MaxBytes)
	}
	return nil
}

func normalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(contentType))
	if err != nil || mediaType == "application/octet-stream" {
		return ""
	}
	return mediaType
}

// Field holds the image of a form that is being edited. When several picks
// overlap, the last one to complete wins. Clear discards picks that are still
// in flight.
type Field struct {
	mu         sync.Mutex
	value      string
	generation uint64
}

func (f *Field) Value() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

func (f *Field) Set(value string) {
	f.mu.Lock()
	f.value = value
	f.mu.Unlock()
}

func (f *Field) Clear() {
	f.mu.Lock()
	f.value = ""
	f.generation++
	f.mu.Unlock()
}

// Pick starts encoding r and stores the result in the field when it
// completes. The returned channel yields the same Result.
func (f *Field) Pick(ctx context.Context, p *Picker, r io.Reader, contentType string) <-chan Result {
	f.mu.Lock()
	generation := f.generation
	f.mu.Unlock()

	out := make(chan Result, 1)
	go func() {
		res := <-p.Pick(ctx, r, contentType)
		if res.Err == nil {
			f.mu.Lock()
			if f.generation == generation {
				f.value = res.DataURL
			}
			f.mu.Unlock()
		}
		out <- res
	}()
	return out
}

// Await blocks until res delivers or ctx ends.
func Await(ctx context.Context, res <-chan Result) (string, error) {
	select {
	case r := <-res:
		return r.DataURL, r.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// FromBytes is a convenience for callers that already hold the image in memory.
func (p *Picker) FromBytes(data []byte, contentType string) (string, error) {
	return p.Encode(bytes.NewReader(data), contentType)
}
