// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

// ModuleName identifies an enrichment module.
type ModuleName string

const (
	ModuleSentiment  ModuleName = "sentiment"
	ModuleEntity     ModuleName = "entity"
	ModuleTopic      ModuleName = "topic"
	ModuleEngagement ModuleName = "engagement"
	ModuleModeration ModuleName = "moderation"
)

// ModuleOrder is the fixed order in which enabled modules run.
var ModuleOrder = []ModuleName{
	ModuleSentiment,
	ModuleEntity,
	ModuleTopic,
	ModuleEngagement,
	ModuleModeration,
}

// ParseModuleName returns the module with the given name.
func ParseModuleName(s string) (ModuleName, bool) {
	for _, name := range ModuleOrder {
		if string(name) == s {
			return name, true
		}
	}
	return "", false
}

// ModuleResult is one module's field group in an EnrichmentRecord.
type ModuleResult interface {
	Module() ModuleName
	// Fields returns the field group keyed by output column name.
	Fields() map[string]any
}

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentUnknown  = "unknown"
)

// SentimentLabels are the labels the sentiment model may return.
var SentimentLabels = []string{SentimentPositive, SentimentNegative, SentimentNeutral}

// SentimentResult holds the sentiment field group.
type SentimentResult struct {
	Label    string
	Score    float64 // confidence in [0,1]
	Emotions []string
	Topics   []string
}

func (*SentimentResult) Module() ModuleName { return ModuleSentiment }

func (r *SentimentResult) Fields() map[string]any {
	return map[string]any{
		"sentiment_label":    r.Label,
		"sentiment_score":    r.Score,
		"sentiment_emotions": nonNil(r.Emotions),
		"sentiment_topics":   nonNil(r.Topics),
	}
}

// EmptySentiment returns the neutral fallback for the sentiment module.
func EmptySentiment() *SentimentResult {
	return &SentimentResult{Label: SentimentUnknown, Emotions: []string{}, Topics: []string{}}
}

// EntityResult holds the entity field group.
type EntityResult struct {
	People        []string
	Organizations []string
	Locations     []string
	Products      []string
	Hashtags      []string
	Mentions      []string
}

func (*EntityResult) Module() ModuleName { return ModuleEntity }

func (r *EntityResult) Fields() map[string]any {
	return map[string]any{
		"people":        nonNil(r.People),
		"organizations": nonNil(r.Organizations),
		"locations":     nonNil(r.Locations),
		"products":      nonNil(r.Products),
		"hashtags":      nonNil(r.Hashtags),
		"mentions":      nonNil(r.Mentions),
	}
}

// EmptyEntities returns the fallback for the entity module.
func EmptyEntities() *EntityResult {
	return &EntityResult{
		People:        []string{},
		Organizations: []string{},
		Locations:     []string{},
		Products:      []string{},
		Hashtags:      []string{},
		Mentions:      []string{},
	}
}

// TopicCategories are the primary categories the topic model may return.
var TopicCategories = []string{
	"Technology",
	"Business",
	"Entertainment",
	"Sports",
	"Politics",
	"Health",
	"Science",
	"Lifestyle",
	"Education",
	"Other",
}

// TopicResult holds the topic field group.
type TopicResult struct {
	PrimaryCategory string
	SubCategories   []string
	Industry        string
	Keywords        []string
	IsCommercial    bool
	IsNews          bool
}

func (*TopicResult) Module() ModuleName { return ModuleTopic }

func (r *TopicResult) Fields() map[string]any {
	return map[string]any{
		"primary_category": r.PrimaryCategory,
		"sub_categories":   nonNil(r.SubCategories),
		"industry":         r.Industry,
		"keywords":         nonNil(r.Keywords),
		"is_commercial":    r.IsCommercial,
		"is_news":          r.IsNews,
	}
}

// EmptyTopic returns the fallback for the topic module.
func EmptyTopic() *TopicResult {
	return &TopicResult{
		PrimaryCategory: "Other",
		SubCategories:   []string{},
		Industry:        "Unknown",
		Keywords:        []string{},
	}
}

// Engagement tiers, highest first.
const (
	TierViral        = "Viral"
	TierHigh         = "High"
	TierAboveAverage = "Above Average"
	TierAverage      = "Average"
	TierBelowAverage = "Below Average"
	TierLow          = "Low"
	// TierUnranked is used when no percentile context was available.
	TierUnranked = "Unranked"
)

// TierForPercentile maps a percentile in [0,100] to an engagement tier.
func TierForPercentile(p float64) string {
	switch {
	case p >= 90:
		return TierViral
	case p >= 75:
		return TierHigh
	case p >= 50:
		return TierAboveAverage
	case p >= 25:
		return TierAverage
	case p >= 10:
		return TierBelowAverage
	default:
		return TierLow
	}
}

// EngagementResult holds the engagement field group.
type EngagementResult struct {
	Score              float64
	Rate               float64
	Virality           float64
	InteractionQuality float64
	TimeAdjustedScore  float64
	Percentile         float64
	Tier               string
}

func (*EngagementResult) Module() ModuleName { return ModuleEngagement }

func (r *EngagementResult) Fields() map[string]any {
	return map[string]any{
		"engagement_score":    r.Score,
		"engagement_rate":     r.Rate,
		"virality_score":      r.Virality,
		"interaction_quality": r.InteractionQuality,
		"time_adjusted_score": r.TimeAdjustedScore,
		"percentile_score":    r.Percentile,
		"engagement_tier":     r.Tier,
	}
}

// EmptyEngagement returns the zero-valued engagement result.
func EmptyEngagement() *EngagementResult {
	return &EngagementResult{Tier: TierUnranked}
}

// Moderation vocabularies.
var (
	RiskLevels         = []string{"safe", "low", "medium", "high", "critical"}
	ModerationFlags    = []string{"hate_speech", "violence", "adult_content", "spam", "misinformation", "profanity", "harassment"}
	RecommendedActions = []string{"none", "flag", "review", "remove"}
)

// ModerationResult holds the moderation field group.
type ModerationResult struct {
	IsSafe            bool
	RiskLevel         string
	Flags             []string
	ContentWarnings   []string
	RecommendedAction string
	Confidence        float64
}

func (*ModerationResult) Module() ModuleName { return ModuleModeration }

func (r *ModerationResult) Fields() map[string]any {
	return map[string]any{
		"is_safe":            r.IsSafe,
		"risk_level":         r.RiskLevel,
		"flags":              nonNil(r.Flags),
		"content_warnings":   nonNil(r.ContentWarnings),
		"recommended_action": r.RecommendedAction,
		"confidence_score":   r.Confidence,
	}
}

// EmptyModeration returns the safe fallback for the moderation module.
func EmptyModeration() *ModerationResult {
	return &ModerationResult{
		IsSafe:            true,
		RiskLevel:         "safe",
		Flags:             []string{},
		ContentWarnings:   []string{},
		RecommendedAction: "none",
		Confidence:        1.0,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
