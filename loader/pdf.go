package loader

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"ragchat/types"
)

// loadPDF produces one document per page, so retrieval hits keep their
// page number in the metadata.
func (l *Loader) loadPDF(_ context.Context, src types.SourceDescriptor) ([]types.Document, error) {
	pageCount, err := pdfapi.PageCountFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("validate pdf %s: %w", src.Path, err)
	}

	f, r, err := pdf.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", src.Path, err)
	}
	defer f.Close()

	title := titleFromPath(src.Path)
	var docs []types.Document
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract pdf %s page %d: %w", src.Path, i, err)
		}
		docs = append(docs, newDocument(text, map[string]string{
			"source": src.Key(),
			"title":  title,
			"page":   strconv.Itoa(i),
		}))
	}
	log.Printf("[LOADER] pdf %s: %d pages (%d with text)", src.Path, pageCount, len(docs))
	return docs, nil
}
