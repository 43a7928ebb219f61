package bot

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"ragchat/types"
)

const defaultSystemPrompt = `Answer the question based on the given context. If there is no information in the provided context or the context is empty then answer 'No information for this request.' Nothing else.`

// buildPrompt renders the four prompt slots in fixed order: system
// instruction, retrieved context, question, chat history.
func buildPrompt(system string, hits []types.ScoredChunk, question, history string) string {
	if system == "" {
		system = defaultSystemPrompt
	}

	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n\nContext:\n")
	for _, h := range hits {
		b.WriteString(h.Content)
		b.WriteString("\n\n")
	}
	b.WriteString("Question:\n")
	b.WriteString(question)
	b.WriteString("\n\nChat history:\n")
	b.WriteString(history)
	b.WriteString("\nAnswer:")
	return b.String()
}

// promptTokens counts prompt tokens with a tiktoken encoding, for sizing
// logs only.
func promptTokens(prompt string) (int, error) {
	enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(prompt, nil, nil)), nil
}
