package loader

import (
	"context"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ragchat/types"
)

func (l *Loader) loadText(_ context.Context, src types.SourceDescriptor) ([]types.Document, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.Path, err)
	}
	doc := newDocument(string(data), map[string]string{
		"source": src.Key(),
		"title":  titleFromPath(src.Path),
	})
	return []types.Document{doc}, nil
}

// loadCSV renders every record as a comma-joined line, one document per
// file.
func (l *Loader) loadCSV(_ context.Context, src types.SourceDescriptor) ([]types.Document, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src.Path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var b strings.Builder
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv %s: %w", src.Path, err)
		}
		b.WriteString(strings.Join(record, ", "))
		b.WriteString("\n")
	}
	doc := newDocument(b.String(), map[string]string{
		"source": src.Key(),
		"title":  titleFromPath(src.Path),
	})
	return []types.Document{doc}, nil
}

func (l *Loader) loadHTML(_ context.Context, src types.SourceDescriptor) ([]types.Document, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src.Path, err)
	}
	defer f.Close()

	text, title, err := extractHTMLText(f)
	if err != nil {
		return nil, fmt.Errorf("parse html %s: %w", src.Path, err)
	}
	if title == "" {
		title = titleFromPath(src.Path)
	}
	doc := newDocument(text, map[string]string{
		"source": src.Key(),
		"title":  title,
	})
	return []types.Document{doc}, nil
}

// extractHTMLText strips markup and collapses whitespace. Script and style
// bodies are dropped entirely.
func extractHTMLText(r io.Reader) (text, title string, err error) {
	q, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", "", err
	}
	q.Find("script, style, noscript").Remove()
	title = strings.TrimSpace(q.Find("title").First().Text())

	raw := q.Find("body").Text()
	if strings.TrimSpace(raw) == "" {
		raw = q.Text()
	}
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), title, nil
}

func (l *Loader) loadXML(_ context.Context, src types.SourceDescriptor) ([]types.Document, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src.Path, err)
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml %s: %w", src.Path, err)
		}
		if cd, ok := tok.(xml.CharData); ok {
			s := strings.TrimSpace(string(cd))
			if s != "" {
				b.WriteString(s)
				b.WriteString("\n")
			}
		}
	}
	doc := newDocument(b.String(), map[string]string{
		"source": src.Key(),
		"title":  titleFromPath(src.Path),
	})
	return []types.Document{doc}, nil
}
