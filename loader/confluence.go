package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ragchat/types"
)

type confluencePage struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
}

type confluenceContent struct {
	Results []confluencePage `json:"results"`
}

// loadConfluence fetches every page of a wiki space over the Confluence
// REST API. All five descriptor fields are required.
func (l *Loader) loadConfluence(ctx context.Context, src types.SourceDescriptor) ([]types.Document, error) {
	for field, value := range map[string]string{
		"base_url":  src.BaseURL,
		"username":  src.Username,
		"api_key":   src.APIKey,
		"space_key": src.SpaceKey,
	} {
		if value == "" {
			return nil, fmt.Errorf("%w: confluence %s", ErrMissingCredential, field)
		}
	}
	if src.PageLimit <= 0 {
		return nil, fmt.Errorf("%w: confluence page_limit", ErrMissingCredential)
	}

	endpoint := strings.TrimRight(src.BaseURL, "/") + "/rest/api/content"
	query := url.Values{
		"spaceKey": {src.SpaceKey},
		"type":     {"page"},
		"limit":    {strconv.Itoa(src.PageLimit)},
		"expand":   {"body.storage"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build confluence request: %w", err)
	}
	req.SetBasicAuth(src.Username, src.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch confluence space %s: %w", src.SpaceKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch confluence space %s: status %d", src.SpaceKey, resp.StatusCode)
	}

	var content confluenceContent
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return nil, fmt.Errorf("decode confluence response: %w", err)
	}

	var docs []types.Document
	for _, page := range content.Results {
		text, _, err := extractHTMLText(strings.NewReader(page.Body.Storage.Value))
		if err != nil {
			return nil, fmt.Errorf("parse confluence page %s: %w", page.ID, err)
		}
		docs = append(docs, newDocument(text, map[string]string{
			"source":  src.Key(),
			"title":   page.Title,
			"page_id": page.ID,
		}))
	}
	return docs, nil
}
