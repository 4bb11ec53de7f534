package prompt

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"deskrag/internal/domain/sessionmodel"
)

// AbstainText is the exact sentence the model must emit when the context
// does not support an answer. Guardrails match it verbatim, so it must
// never be reworded.
const AbstainText = "I don't know based on the provided documents."

// ContextChunk is one retrieved passage plus the citation tag the model is
// required to cite it with.
type ContextChunk struct {
	Tag  string
	Text string
}

// Tag renders the citation tag for a chunk's coordinates.
func Tag(docName string, pageNumber, chunkIndex int) string {
	return fmt.Sprintf("[DOC=%s|PAGE=%d|CHUNK=%d]", docName, pageNumber, chunkIndex)
}

// Memory carries session state to fold into the prompt: a rolling summary
// of older turns plus the most recent turns verbatim.
type Memory struct {
	Summary     string
	RecentTurns []sessionmodel.Message
}

// Build assembles the strict citation prompt. Every retrieved chunk is
// preceded by its tag; the model may only cite the tags it was given.
func Build(question string, chunks []ContextChunk, memory *Memory) string {
	blocks := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		blocks = append(blocks, ch.Tag+"\n"+ch.Text)
	}

	contextText := "(no context)"
	if len(blocks) > 0 {
		contextText = strings.Join(blocks, "\n\n---\n\n")
	}

	var b strings.Builder
	b.WriteString("You are a document-grounded assistant.\n\n")
	b.WriteString("Rules you MUST follow:\n")
	b.WriteString("1) Use ONLY the CONTEXT below. Do not use outside knowledge.\n")
	b.WriteString("2) Every sentence in your answer MUST end with at least one citation tag exactly as provided, e.g. [DOC=...|PAGE=...|CHUNK=...]\n")
	b.WriteString("3) If the answer is not supported by the context, respond with exactly:\n")
	b.WriteString(AbstainText + "\n")
	b.WriteString("4) Do not invent citations. Only use the provided tags.\n")
	b.WriteString("5) Keep the answer concise and factual.\n")

	b.WriteString("\nQUESTION:\n")
	b.WriteString(question)
	b.WriteString("\n\nCONTEXT:\n")
	b.WriteString(contextText)

	if memory != nil {
		writeMemory(&b, memory)
	}

	b.WriteString("\n\nANSWER:\n")
	return b.String()
}

func writeMemory(b *strings.Builder, memory *Memory) {
	if memory.Summary != "" {
		b.WriteString("\n\nCONVERSATION SUMMARY (background only, never a citation source):\n")
		b.WriteString(memory.Summary)
	}
	if len(memory.RecentTurns) > 0 {
		b.WriteString("\n\nRECENT TURNS:\n")
		for _, turn := range memory.RecentTurns {
			b.WriteString(string(turn.Role))
			b.WriteString(": ")
			b.WriteString(turn.Content)
			b.WriteString("\n")
		}
	}
}

// BuildSummaryPrompt asks a fast model to compress a conversation into a
// short rolling summary for later prompts.
func BuildSummaryPrompt(previousSummary string, turns []sessionmodel.Message) string {
	var b strings.Builder
	b.WriteString("Summarize the conversation below in at most five sentences. ")
	b.WriteString("Keep concrete facts, names and decisions; drop pleasantries.\n")
	if previousSummary != "" {
		b.WriteString("\nPREVIOUS SUMMARY:\n")
		b.WriteString(previousSummary)
		b.WriteString("\n")
	}
	b.WriteString("\nCONVERSATION:\n")
	for _, turn := range turns {
		b.WriteString(string(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	b.WriteString("\nSUMMARY:\n")
	return b.String()
}

// EstimateTokens counts tokens with the cl100k_base encoding, falling back
// to a bytes/4 heuristic if the encoding cannot be loaded.
func EstimateTokens(text string) int {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
