package enrichment

import (
	"github.com/poiesic/enrichit/ai"
	"github.com/poiesic/enrichit/core"
)

// Tool names double as schema names.
const (
	SentimentTool  = "sentiment_analysis"
	EntityTool     = "entity_extraction"
	TopicTool      = "topic_classification"
	ModerationTool = "content_moderation"
)

// Sampling temperatures per module. Moderation is the most conservative.
const (
	SentimentTemperature  = 0.3
	EntityTemperature     = 0.2
	TopicTemperature      = 0.2
	ModerationTemperature = 0.1
)

var sentimentSchema = &ai.Schema{
	Name:        SentimentTool,
	Description: "Analyze sentiment and emotions in social media content",
	Fields: []ai.Field{
		{Name: "sentiment_label", Description: "Overall sentiment", Kind: ai.KindString, Enum: core.SentimentLabels, Required: true},
		{Name: "sentiment_score", Description: "Confidence score between 0 and 1", Kind: ai.KindNumber, Min: ai.Bound(0), Max: ai.Bound(1), Required: true},
		{Name: "sentiment_emotions", Description: "List of emotions detected", Kind: ai.KindStringList},
		{Name: "sentiment_topics", Description: "Main topics or themes", Kind: ai.KindStringList},
	},
}

var entitySchema = &ai.Schema{
	Name:        EntityTool,
	Description: "Extract named entities from social media content",
	Fields: []ai.Field{
		{Name: "people", Description: "Names of people mentioned", Kind: ai.KindStringList},
		{Name: "organizations", Description: "Companies, brands, institutions", Kind: ai.KindStringList},
		{Name: "locations", Description: "Cities, countries, places", Kind: ai.KindStringList},
		{Name: "products", Description: "Products or services mentioned", Kind: ai.KindStringList},
		{Name: "hashtags", Description: "Hashtags used", Kind: ai.KindStringList},
		{Name: "mentions", Description: "User mentions (without @)", Kind: ai.KindStringList},
	},
}

var topicSchema = &ai.Schema{
	Name:        TopicTool,
	Description: "Classify social media content into topics and categories",
	Fields: []ai.Field{
		{Name: "primary_category", Description: "Main category", Kind: ai.KindString, Enum: core.TopicCategories, Required: true},
		{Name: "sub_categories", Description: "Specific sub-topics", Kind: ai.KindStringList},
		{Name: "industry", Description: "Relevant industry or sector", Kind: ai.KindString},
		{Name: "keywords", Description: "Key terms defining the topic", Kind: ai.KindStringList},
		{Name: "is_commercial", Description: "Whether content is promotional", Kind: ai.KindBool},
		{Name: "is_news", Description: "Whether content is news or current events", Kind: ai.KindBool},
	},
}

var moderationSchema = &ai.Schema{
	Name:        ModerationTool,
	Description: "Evaluate social media content for safety and policy violations",
	Fields: []ai.Field{
		{Name: "is_safe", Description: "Whether content is safe for general audiences", Kind: ai.KindBool, Required: true},
		{Name: "risk_level", Description: "Overall risk level", Kind: ai.KindString, Enum: core.RiskLevels, Required: true},
		{Name: "flags", Description: "Specific policy issues found", Kind: ai.KindStringList, Enum: core.ModerationFlags},
		{Name: "content_warnings", Description: "Warnings for moderators", Kind: ai.KindStringList},
		{Name: "recommended_action", Description: "Action to take", Kind: ai.KindString, Enum: core.RecommendedActions, Required: true},
		{Name: "confidence_score", Description: "Confidence in the assessment between 0 and 1", Kind: ai.KindNumber, Min: ai.Bound(0), Max: ai.Bound(1)},
	},
}

// Schemas returns the response schemas of the inference-backed modules, keyed by tool name.
func Schemas() map[string]*ai.Schema {
	return map[string]*ai.Schema{
		SentimentTool:  sentimentSchema,
		EntityTool:     entitySchema,
		TopicTool:      topicSchema,
		ModerationTool: moderationSchema,
	}
}
