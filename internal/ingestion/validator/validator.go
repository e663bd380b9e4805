// Package validator checks upload requests before any extraction work is
// done. Content is not inspected here: blank text is stored as is, and
// undecodable payloads are skipped and reported by the pipeline.
package validator

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
)

const (
	maxNameLength = 1024
	maxItems      = 10000
)

// ValidationError maps request fields to what is wrong with them. It is
// returned whole so the client sees every problem in one response.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", k, e.Fields[k])
	}
	return b.String()
}

func (e *ValidationError) add(field, format string, args ...any) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = fmt.Sprintf(format, args...)
}

// ValidateUploadItems checks the batch size and each item's name and
// encoding.
func ValidateUploadItems(items []ingestion.UploadItem) error {
	verr := &ValidationError{}
	switch {
	case len(items) == 0:
		verr.add("items", "at least one document is required")
	case len(items) > maxItems:
		verr.add("items", "at most %d documents per upload", maxItems)
	}
	for i, it := range items {
		if msg := checkName(it.Name); msg != "" {
			verr.add(fmt.Sprintf("items[%d].name", i), "%s", msg)
		}
		switch it.Encoding {
		case "", ingestion.EncodingText, ingestion.EncodingPDFBase64:
		default:
			verr.add(fmt.Sprintf("items[%d].encoding", i), "unsupported encoding %q", it.Encoding)
		}
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func checkName(name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "name is required"
	case len(name) > maxNameLength:
		return fmt.Sprintf("name must be at most %d bytes", maxNameLength)
	case !utf8.ValidString(name):
		return "name must be valid UTF-8"
	case strings.ContainsFunc(name, unicode.IsControl):
		return "name must not contain control characters"
	}
	return ""
}
