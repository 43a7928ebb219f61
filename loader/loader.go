package loader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ragchat/types"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported source format")
	ErrMissingCredential = errors.New("missing credential")
)

type loadFunc func(ctx context.Context, src types.SourceDescriptor) ([]types.Document, error)

// Loader resolves source descriptors to format-specific loaders and merges
// their output. Loading is all-or-nothing: one failing source aborts the
// whole batch.
type Loader struct {
	client *http.Client
	byExt  map[string]loadFunc
}

func New() *Loader {
	l := &Loader{
		client: &http.Client{Timeout: 60 * time.Second},
	}
	l.byExt = map[string]loadFunc{
		".txt":  l.loadText,
		".md":   l.loadText,
		".json": l.loadText,
		".pdf":  l.loadPDF,
		".csv":  l.loadCSV,
		".html": l.loadHTML,
		".htm":  l.loadHTML,
		".xml":  l.loadXML,
		".xls":  l.loadLegacySpreadsheet,
		".xlsx": l.loadSpreadsheet,
	}
	return l
}

// Load turns every descriptor into documents and merges the results in
// input order.
func (l *Loader) Load(ctx context.Context, sources []types.SourceDescriptor) ([]types.Document, error) {
	var docs []types.Document
	for _, src := range sources {
		loaded, err := l.loadOne(ctx, src)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}
	return docs, nil
}

func (l *Loader) loadOne(ctx context.Context, src types.SourceDescriptor) ([]types.Document, error) {
	switch src.Kind {
	case types.SourceFile:
		ext := strings.ToLower(filepath.Ext(src.Path))
		fn, ok := l.byExt[ext]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, src.Path)
		}
		return fn(ctx, src)
	case types.SourceURL:
		u, err := url.Parse(src.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, src.URL)
		}
		return l.loadWeb(ctx, src)
	case types.SourceConfluence:
		return l.loadConfluence(ctx, src)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, string(src.Kind))
}

func newDocument(text string, meta map[string]string) types.Document {
	return types.Document{
		ID:       uuid.New(),
		Text:     text,
		Metadata: meta,
	}
}

// titleFromPath turns "some_report-2024.pdf" into "some report 2024".
func titleFromPath(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return name
}
