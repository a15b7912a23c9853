package enrichment

import (
	"strings"

	"github.com/poiesic/enrichit/ai"
	"github.com/poiesic/enrichit/core"
)

// NewEntity creates the entity extraction module.
func NewEntity(inv ai.StructuredInvoker) Module {
	return &inferenceModule{
		name:         core.ModuleEntity,
		invoker:      inv,
		schema:       entitySchema,
		systemPrompt: entitySystemPrompt,
		temperature:  EntityTemperature,
		prompt:       entityPrompt,
		decode:       decodeEntities,
		empty:        func() core.ModuleResult { return core.EmptyEntities() },
	}
}

func decodeEntities(out map[string]any) core.ModuleResult {
	return &core.EntityResult{
		People:        list(out, "people"),
		Organizations: list(out, "organizations"),
		Locations:     list(out, "locations"),
		Products:      list(out, "products"),
		Hashtags:      stripPrefix(list(out, "hashtags"), "#"),
		Mentions:      stripPrefix(list(out, "mentions"), "@"),
	}
}

// stripPrefix removes a leading sigil models tend to keep despite instructions.
func stripPrefix(items []string, prefix string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimPrefix(item, prefix)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
