package splitter

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"ragchat/types"
)

// Separator order: paragraph, line, sentence, word, hard character cut.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter breaks documents into chunks of at most ChunkSize runes, with
// roughly ChunkOverlap runes shared between neighbours. Splitting is
// deterministic for a given input and configuration.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
}

func New(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = types.DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = types.DefaultChunkOverlap
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10
	}
	return &Splitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
}

// Split chunks every document, carrying the parent metadata into each
// chunk. Chunk indexes restart per document.
func (s *Splitter) Split(docs []types.Document) []types.Chunk {
	var chunks []types.Chunk
	for _, doc := range docs {
		for i, part := range s.splitText(doc.Text, separators) {
			meta := make(map[string]string, len(doc.Metadata))
			for k, v := range doc.Metadata {
				meta[k] = v
			}
			chunks = append(chunks, types.Chunk{
				ID:       uuid.New(),
				DocID:    doc.ID,
				Index:    i,
				Content:  part,
				Metadata: meta,
			})
		}
	}
	return chunks
}

// splitText recursively splits on the first separator present in the text,
// descending to finer separators for pieces that are still too long.
func (s *Splitter) splitText(text string, seps []string) []string {
	if utf8.RuneCountInString(text) <= s.ChunkSize {
		t := strings.TrimSpace(text)
		if t == "" {
			return nil
		}
		return []string{t}
	}

	sep := ""
	var rest []string
	for i, sp := range seps {
		if sp == "" {
			break
		}
		if strings.Contains(text, sp) {
			sep, rest = sp, seps[i+1:]
			break
		}
	}
	if sep == "" {
		return s.hardCut(text)
	}

	pieces := strings.SplitAfter(text, sep)
	var out []string
	var short []string
	for _, piece := range pieces {
		if utf8.RuneCountInString(piece) <= s.ChunkSize {
			short = append(short, piece)
			continue
		}
		if len(short) > 0 {
			out = append(out, s.merge(short)...)
			short = nil
		}
		out = append(out, s.splitText(piece, rest)...)
	}
	if len(short) > 0 {
		out = append(out, s.merge(short)...)
	}
	return out
}

// merge greedily packs separator-delimited pieces into chunks, keeping a
// tail of up to ChunkOverlap runes as the start of the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var cur []string
	curLen := 0
	for _, p := range pieces {
		pl := utf8.RuneCountInString(p)
		if curLen+pl > s.ChunkSize && curLen > 0 {
			if joined := strings.TrimSpace(strings.Join(cur, "")); joined != "" {
				chunks = append(chunks, joined)
			}
			for len(cur) > 0 && (curLen > s.ChunkOverlap || curLen+pl > s.ChunkSize) {
				curLen -= utf8.RuneCountInString(cur[0])
				cur = cur[1:]
			}
		}
		cur = append(cur, p)
		curLen += pl
	}
	if joined := strings.TrimSpace(strings.Join(cur, "")); joined != "" {
		chunks = append(chunks, joined)
	}
	return chunks
}

// hardCut slices text into ChunkSize windows stepping by
// ChunkSize-ChunkOverlap. Last resort for text without any separator.
func (s *Splitter) hardCut(text string) []string {
	runes := []rune(text)
	step := s.ChunkSize - s.ChunkOverlap
	if step <= 0 {
		step = s.ChunkSize
	}
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
