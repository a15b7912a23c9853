package enrichment

import (
	"github.com/poiesic/enrichit/ai"
	"github.com/poiesic/enrichit/core"
)

// NewModeration creates the content moderation module.
func NewModeration(inv ai.StructuredInvoker) Module {
	return &inferenceModule{
		name:         core.ModuleModeration,
		invoker:      inv,
		schema:       moderationSchema,
		systemPrompt: moderationSystemPrompt,
		temperature:  ModerationTemperature,
		prompt:       moderationPrompt,
		decode:       decodeModeration,
		empty:        func() core.ModuleResult { return core.EmptyModeration() },
	}
}

func decodeModeration(out map[string]any) core.ModuleResult {
	return &core.ModerationResult{
		IsSafe:            flag(out, "is_safe"),
		RiskLevel:         str(out, "risk_level"),
		Flags:             list(out, "flags"),
		ContentWarnings:   list(out, "content_warnings"),
		RecommendedAction: str(out, "recommended_action"),
		Confidence:        num(out, "confidence_score"),
	}
}
