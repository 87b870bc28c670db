// Package prompt assembles the texts sent to the completion service.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agenthands/notalone/internal/config"
	"github.com/agenthands/notalone/internal/core/model"
)

// DefaultSystem is the persona used for every conversational turn.
const DefaultSystem = `You are "Not Alone", a warm and attentive companion who helps people reflect on the relationships in their life.
Listen carefully, ask gentle follow-up questions about the people the user mentions, and never judge.
You are not a therapist; if the user appears to be in danger, encourage them to contact local emergency services.`

// DefaultOpener is sent instead of an empty first message to make the model
// open the conversation.
const DefaultOpener = `Start the conversation. Greet the user warmly in one or two sentences and invite them to share what is on their mind about the people in their life.`

// DefaultAnalysis takes the transcript and the existing graph JSON, in that
// order.
const DefaultAnalysis = `Analyze the following conversation and identify the people the user talks about, the relationships between them, notable interactions and the emotional state of everyone involved.
The user is always the node with id "user".

Conversation:
%s

Existing relationship graph (update it incrementally; reuse existing ids, only send nodes and links that are new or changed):
%s

Respond ONLY with a JSON object inside a ` + "```json" + ` code block using exactly this schema:
{
  "nodes": [
    {
      "id": "unique-id",
      "name": "Person name",
      "val": 1,
      "gender": "optional",
      "age": 0,
      "summary": "one sentence about this person",
      "details": {
        "occupation": "optional",
        "interests": ["optional"],
        "personality": "optional",
        "background": "optional",
        "emotionalState": "optional"
      }
    }
  ],
  "links": [
    {
      "source": "node-id",
      "target": "node-id",
      "value": 1,
      "label": "relationship",
      "details": {
        "relationshipType": "family | friend | partner | colleague | other",
        "duration": "optional",
        "status": "optional",
        "sentiment": "positive | neutral | negative",
        "interactions": [
          {"date": "optional", "type": "optional", "description": "what happened", "impact": "optional"}
        ]
      }
    }
  ]
}`

// Builder renders prompts from configurable templates.
type Builder struct {
	System   string
	Opener   string
	Analysis string
}

func NewBuilder(cfg config.PromptConfig) *Builder {
	b := &Builder{
		System:   DefaultSystem,
		Opener:   DefaultOpener,
		Analysis: DefaultAnalysis,
	}
	if cfg.System != "" {
		b.System = cfg.System
	}
	if cfg.Opener != "" {
		b.Opener = cfg.Opener
	}
	if cfg.Analysis != "" {
		b.Analysis = cfg.Analysis
	}
	return b
}

// BuildAnalysis renders the graph analysis prompt. latest is appended to the
// transcript unless it is empty or already the most recent user message. The transcript is
// passed through whole; nothing is truncated.
func (b *Builder) BuildAnalysis(transcript []model.ChatMessage, latest string, existing *model.Graph) (string, error) {
	graphJSON := "none"
	if existing != nil && (len(existing.Nodes) > 0 || len(existing.Links) > 0) {
		data, err := json.MarshalIndent(struct {
			Nodes []model.Node `json:"nodes"`
			Links []model.Link `json:"links"`
		}{existing.Nodes, existing.Links}, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal existing graph: %w", err)
		}
		graphJSON = string(data)
	}

	return fmt.Sprintf(b.Analysis, FormatTranscript(transcript, latest), graphJSON), nil
}

// FormatTranscript renders messages as "Speaker: text" lines.
func FormatTranscript(transcript []model.ChatMessage, latest string) string {
	var sb strings.Builder
	for _, m := range transcript {
		sb.WriteString(speaker(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}

	latest = strings.TrimSpace(latest)
	if latest != "" && latest != lastUserMessage(transcript) {
		sb.WriteString("User: ")
		sb.WriteString(latest)
		sb.WriteString("\n")
	}
	return sb.String()
}

func lastUserMessage(transcript []model.ChatMessage) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == model.RoleUser {
			return strings.TrimSpace(transcript[i].Content)
		}
	}
	return ""
}

func speaker(role string) string {
	switch role {
	case model.RoleAssistant, model.RoleModel:
		return "Assistant"
	default:
		return "User"
	}
}
