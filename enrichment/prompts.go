package enrichment

import (
	"fmt"
	"strings"

	"github.com/poiesic/enrichit/core"
)

// MaxPromptRunes bounds the record text embedded in a prompt.
const MaxPromptRunes = 2000

const (
	sentimentSystemPrompt  = "You are a sentiment analysis expert. Analyze the sentiment of social media content accurately and extract emotions and topics."
	entitySystemPrompt     = "You are an expert at entity extraction. Extract all relevant entities from social media content accurately."
	topicSystemPrompt      = "You are an expert content classifier. Accurately categorize social media content into topics and industries."
	moderationSystemPrompt = "You are an expert content moderator. Evaluate content objectively for safety and policy violations."
)

const sentimentPromptTemplate = `Analyze the sentiment of the following post and extract:
1. Overall sentiment (positive, negative, or neutral)
2. Confidence score (0-1)
3. Emotions detected (e.g., joy, anger, sadness, fear, surprise, disgust)
4. Main topics or themes

Post: %q

Provide a comprehensive sentiment analysis.`

const entityPromptTemplate = `Extract all entities from the following post:

Post: %q%s

Identify and extract:
1. People - Names of individuals mentioned
2. Organizations - Companies, brands, institutions
3. Locations - Cities, countries, places
4. Products - Products or services mentioned
5. Hashtags - All hashtags used
6. Mentions - User mentions (without the @ symbol)

Be thorough and accurate. Only extract entities that are clearly present.`

const topicPromptTemplate = `Classify the following post into topics and categories:

Post: %q%s

Analyze and determine:
1. Primary Category - Choose ONE from: %s
2. Sub-categories - Specific topics within the primary category
3. Industry - Relevant industry or business sector
4. Keywords - Key terms that define the topic
5. Is Commercial - Whether this is promotional/advertising content
6. Is News - Whether this is news or current events

Be specific and accurate in classification.`

const moderationPromptTemplate = `Analyze the following post for content safety and moderation:

Post: %q

Evaluate for:
1. Hate Speech - Targeting protected groups based on race, religion, gender, etc.
2. Violence - Graphic violence, threats, or incitement
3. Adult Content - NSFW, explicit sexual content
4. Spam - Repetitive, irrelevant, or promotional spam
5. Misinformation - False or misleading information
6. Profanity - Excessive profanity or vulgar language
7. Harassment - Bullying, harassment, or personal attacks

Determine:
- Is Safe: Whether content is safe for general audiences
- Risk Level: safe, low, medium, high, or critical
- Flags: List of specific issues found
- Content Warnings: Specific warnings for moderators
- Recommended Action: none, flag (for review), review (needs manual check), remove (immediate removal)
- Confidence Score: How confident you are in this assessment (0-1)

Be objective and consistent in moderation decisions.`

// promptText returns the record text trimmed to MaxPromptRunes runes.
func promptText(rec *core.CanonicalRecord) string {
	text := strings.TrimSpace(rec.Text)
	runes := []rune(text)
	if len(runes) > MaxPromptRunes {
		return string(runes[:MaxPromptRunes])
	}
	return text
}

// authorContext renders the optional author and hashtag lines.
func authorContext(rec *core.CanonicalRecord, withHashtags bool) string {
	var b strings.Builder
	author := strings.TrimSpace(rec.Author)
	if author == "" && rec.AuthorHandle != "" {
		author = "@" + rec.AuthorHandle
	}
	if author != "" {
		fmt.Fprintf(&b, "\nAuthor: %s", author)
	}
	if withHashtags && len(rec.Hashtags) > 0 {
		tags := make([]string, len(rec.Hashtags))
		for i, t := range rec.Hashtags {
			tags[i] = "#" + t
		}
		fmt.Fprintf(&b, "\nHashtags: %s", strings.Join(tags, " "))
	}
	return b.String()
}

func sentimentPrompt(rec *core.CanonicalRecord) string {
	return fmt.Sprintf(sentimentPromptTemplate, promptText(rec))
}

func entityPrompt(rec *core.CanonicalRecord) string {
	return fmt.Sprintf(entityPromptTemplate, promptText(rec), authorContext(rec, true))
}

func topicPrompt(rec *core.CanonicalRecord) string {
	return fmt.Sprintf(topicPromptTemplate, promptText(rec), authorContext(rec, true), strings.Join(core.TopicCategories, ", "))
}

func moderationPrompt(rec *core.CanonicalRecord) string {
	return fmt.Sprintf(moderationPromptTemplate, promptText(rec))
}
