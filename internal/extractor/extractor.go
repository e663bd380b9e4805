// Package extractor turns uploaded or loaded blobs into UTF-8 text. PDF
// decoding goes through ledongthuc/pdf; a panic or hang inside the decoder
// is reported as an extraction failure for that one document.
package extractor

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

// Extractor converts document bytes to text.
type Extractor struct {
	timeout time.Duration
	logger  *slog.Logger
}

// New returns an Extractor that gives up on a single PDF after timeout.
// A non-positive timeout disables the limit.
func New(timeout time.Duration) *Extractor {
	return &Extractor{
		timeout: timeout,
		logger:  slog.Default().With("component", "extractor"),
	}
}

// Extract picks a decoder from the file name: ".pdf" is parsed as PDF and
// everything else is read as text.
func (e *Extractor) Extract(ctx context.Context, name string, data []byte) (string, error) {
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		return e.ExtractPDF(ctx, data)
	}
	return Text(data), nil
}

// Text returns data as stored content. Invalid UTF-8 sequences become
// U+FFFD; everything else, surrounding whitespace included, is kept as is,
// and blank text is a valid (wordless) document.
func Text(data []byte) string {
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}
	return text
}

// ExtractPDF returns the trimmed plain text of a PDF document. A PDF with
// no text layer yields ErrEmptyContent.
func (e *Extractor) ExtractPDF(ctx context.Context, data []byte) (string, error) {
	text, err := resilience.WithTimeout(ctx, e.timeout, "pdf extraction", func(context.Context) (string, error) {
		return readPDF(data)
	})
	if err != nil {
		e.logger.Warn("pdf extraction failed", "size_bytes", len(data), "error", err)
		return "", fmt.Errorf("%w: %v", apperrors.ErrExtractionFailed, err)
	}
	return nonEmpty(text)
}

func readPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf decoder panic: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return buf.String(), nil
}

// DecodeBase64PDF decodes a standard base64 payload as sent by upload
// clients. Surrounding whitespace and a "data:...;base64," prefix are
// tolerated.
func DecodeBase64PDF(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding base64: %v", apperrors.ErrExtractionFailed, err)
	}
	return data, nil
}

func nonEmpty(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.ErrEmptyContent
	}
	return text, nil
}
