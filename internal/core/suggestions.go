package core

import "github.com/agenthands/notalone/internal/core/model"

var suggestions = []model.Suggestion{
	{ID: "family", Text: "I'd like to talk about my family", Icon: "👪"},
	{ID: "friend", Text: "Something happened with a friend", Icon: "🤝"},
	{ID: "partner", Text: "I have been thinking about my relationship", Icon: "💞"},
	{ID: "work", Text: "There is tension with someone at work", Icon: "💼"},
	{ID: "lonely", Text: "I've been feeling lonely lately", Icon: "🌙"},
	{ID: "reconnect", Text: "I want to reconnect with someone", Icon: "📞"},
}

// Suggestions returns the conversation starters shown before the first
// message. The slice is a copy.
func Suggestions() []model.Suggestion {
	out := make([]model.Suggestion, len(suggestions))
	copy(out, suggestions)
	return out
}
