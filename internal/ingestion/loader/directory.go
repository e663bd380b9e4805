package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
)

var extensions = map[string]ingestion.Kind{
	".pdf": ingestion.KindPDF,
	".txt": ingestion.KindText,
	".md":  ingestion.KindText,
}

// Directory loads the top-level .pdf, .txt and .md files of Dir in name
// order. A missing directory yields no documents.
type Directory struct {
	Dir string
}

func (d Directory) Name() string { return "dataset" }

func (d Directory) Load(ctx context.Context) ([]ingestion.RawDocument, error) {
	logger := slog.Default().With("component", "loader", "dir", d.Dir)
	entries, err := os.ReadDir(d.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("dataset directory not found")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading dataset directory %s: %w", d.Dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	docs := make([]ingestion.RawDocument, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		kind, ok := extensions[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(d.Dir, entry.Name()))
		if err != nil {
			logger.Warn("skipping unreadable file", "file", entry.Name(), "error", err)
			continue
		}
		docs = append(docs, ingestion.RawDocument{Name: entry.Name(), Data: data, Kind: kind})
	}
	logger.Info("dataset files found", "count", len(docs))
	return docs, nil
}
