package rag

import (
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/threadlens/threadlens/internal/vectorstore"
)

// answerSystemPrompt instructs the model to stay grounded in the retrieved
// chunks instead of answering from its own knowledge.
const answerSystemPrompt = `Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know.
Use 3 sentences maximum and keep the answer concise.

%s`

// noContextResponse is returned without calling the model when retrieval
// finds nothing for the requested post.
const noContextResponse = "I don't know. I couldn't find any indexed content for this post."

// Turn is one prior exchange in a conversation. Role is "user" or
// "assistant"; anything else is rejected before generation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// formatContext joins the text of retrieved chunks into a single context
// block, separated by blank lines.
func formatContext(matches []vectorstore.Match) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		text := m.Metadata[vectorstore.MetaText]
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

// buildMessages converts prior turns plus the current question into the
// message sequence passed to the model.
func buildMessages(history []Turn, question string) ([]*ai.Message, error) {
	messages := make([]*ai.Message, 0, len(history)+1)
	for i, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		switch turn.Role {
		case RoleUser:
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(content)))
		case RoleAssistant:
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(content)))
		default:
			return nil, fmt.Errorf("chat history entry %d: unknown role %q", i, turn.Role)
		}
	}
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(question)))
	return messages, nil
}
