package enrichment

import (
	"github.com/poiesic/enrichit/ai"
	"github.com/poiesic/enrichit/core"
)

// NewSentiment creates the sentiment module.
func NewSentiment(inv ai.StructuredInvoker) Module {
	return &inferenceModule{
		name:         core.ModuleSentiment,
		invoker:      inv,
		schema:       sentimentSchema,
		systemPrompt: sentimentSystemPrompt,
		temperature:  SentimentTemperature,
		prompt:       sentimentPrompt,
		decode:       decodeSentiment,
		empty:        func() core.ModuleResult { return core.EmptySentiment() },
	}
}

func decodeSentiment(out map[string]any) core.ModuleResult {
	label := str(out, "sentiment_label")
	if label == "" {
		label = core.SentimentUnknown
	}
	return &core.SentimentResult{
		Label:    label,
		Score:    num(out, "sentiment_score"),
		Emotions: list(out, "sentiment_emotions"),
		Topics:   list(out, "sentiment_topics"),
	}
}
