package gemini

import (
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/enrichit/ai"
)

// responseSchema translates s into the Gemini schema dialect.
// Gemini has no numeric bounds, so ranges move into the description and are enforced by ai.Schema.Validate.
func responseSchema(s *ai.Schema) *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Fields))
	required := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		props[f.Name] = fieldSchema(f)
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return &genai.Schema{
		Type:        genai.TypeObject,
		Description: s.Description,
		Properties:  props,
		Required:    required,
	}
}

func fieldSchema(f ai.Field) *genai.Schema {
	switch f.Kind {
	case ai.KindNumber:
		desc := f.Description
		if f.Min != nil && f.Max != nil {
			desc = fmt.Sprintf("%s (between %g and %g)", desc, *f.Min, *f.Max)
		}
		return &genai.Schema{Type: genai.TypeNumber, Description: desc}
	case ai.KindBool:
		return &genai.Schema{Type: genai.TypeBoolean, Description: f.Description}
	case ai.KindStringList:
		items := &genai.Schema{Type: genai.TypeString}
		if len(f.Enum) > 0 {
			items.Format = "enum"
			items.Enum = f.Enum
		}
		return &genai.Schema{Type: genai.TypeArray, Description: f.Description, Items: items}
	default:
		out := &genai.Schema{Type: genai.TypeString, Description: f.Description}
		if len(f.Enum) > 0 {
			out.Format = "enum"
			out.Enum = f.Enum
		}
		return out
	}
}
