package app

import (
	"fmt"
	"strings"

	"prayogai-rag/internal/ai"
)

// NoContextMarker stands in for the context block when no passage clears the
// similarity threshold, so the model knows to admit it has no answer.
const NoContextMarker = "[no relevant context found]"

// BuildPrompt lays out passages in the order given, which callers keep at
// descending similarity.
func BuildPrompt(botName string, passages []ScoredPassage, question string) []ai.ChatMessage {
	system := fmt.Sprintf("You are a helpful assistant for %s. "+
		"Answer the user's question based only on the following context. "+
		"If the context does not contain enough information, say that you don't know. "+
		"Do not make up facts.", botName)

	var sb strings.Builder
	sb.WriteString("Context:\n")
	if len(passages) == 0 {
		sb.WriteString(NoContextMarker)
		sb.WriteString("\n")
	} else {
		for _, p := range passages {
			sb.WriteString("---\n")
			sb.WriteString(p.Passage.Text)
			sb.WriteString("\n")
		}
		sb.WriteString("---\n")
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")

	return []ai.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: sb.String()},
	}
}
