package enrichment

import (
	"github.com/poiesic/enrichit/ai"
	"github.com/poiesic/enrichit/core"
)

// NewTopic creates the topic classification module.
func NewTopic(inv ai.StructuredInvoker) Module {
	return &inferenceModule{
		name:         core.ModuleTopic,
		invoker:      inv,
		schema:       topicSchema,
		systemPrompt: topicSystemPrompt,
		temperature:  TopicTemperature,
		prompt:       topicPrompt,
		decode:       decodeTopic,
		empty:        func() core.ModuleResult { return core.EmptyTopic() },
	}
}

func decodeTopic(out map[string]any) core.ModuleResult {
	industry := str(out, "industry")
	if industry == "" {
		industry = "Unknown"
	}
	return &core.TopicResult{
		PrimaryCategory: str(out, "primary_category"),
		SubCategories:   list(out, "sub_categories"),
		Industry:        industry,
		Keywords:        list(out, "keywords"),
		IsCommercial:    flag(out, "is_commercial"),
		IsNews:          flag(out, "is_news"),
	}
}
