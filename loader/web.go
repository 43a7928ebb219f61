package loader

import (
	"context"
	"fmt"
	"net/http"

	"ragchat/types"
)

func (l *Loader) loadWeb(ctx context.Context, src types.SourceDescriptor) ([]types.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", src.URL, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", src.URL, resp.StatusCode)
	}

	text, title, err := extractHTMLText(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.URL, err)
	}
	if title == "" {
		title = src.URL
	}
	doc := newDocument(text, map[string]string{
		"source": src.Key(),
		"title":  title,
	})
	return []types.Document{doc}, nil
}
