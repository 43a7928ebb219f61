package bot

import (
	"strings"

	"ragchat/types"
)

// Memory is the append-only conversation log. It never evicts, truncates
// or summarizes; unbounded growth is the accepted policy.
type Memory struct {
	turns []types.ConversationTurn
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Record(question, answer string) {
	m.turns = append(m.turns, types.ConversationTurn{Question: question, Answer: answer})
}

func (m *Memory) Turns() []types.ConversationTurn {
	out := make([]types.ConversationTurn, len(m.turns))
	copy(out, m.turns)
	return out
}

func (m *Memory) Len() int { return len(m.turns) }

// Render returns the full history as a verbatim prompt block, oldest turn
// first.
func (m *Memory) Render() string {
	if len(m.turns) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range m.turns {
		b.WriteString("Human: ")
		b.WriteString(t.Question)
		b.WriteString("\nAssistant: ")
		b.WriteString(t.Answer)
		b.WriteString("\n")
	}
	return b.String()
}
