package providers

import (
	"fmt"
	"strings"

	"github.com/poiesic/enrichit/core"
)

// Normalize maps a raw source row onto the canonical record shape.
// Absent optional fields take their zero value; only a missing id is an error.
func Normalize(raw core.RawRow, d *Descriptor) (*core.CanonicalRecord, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: %w", core.ErrNormalization, ErrInvalidDescriptor)
	}

	id := strings.TrimSpace(core.CoerceString(raw[d.IDColumn]))
	if id == "" {
		return nil, fmt.Errorf("%w: %s.%s: %w", core.ErrNormalization, d.Name, d.IDColumn, core.ErrMissingSourceID)
	}

	rec := &core.CanonicalRecord{
		SourceTable:  d.Name,
		SourceID:     id,
		Text:         joinText(raw, d.Columns(core.FieldText)),
		Author:       firstString(raw, d.Columns(core.FieldAuthor)),
		AuthorHandle: strings.TrimPrefix(firstString(raw, d.Columns(core.FieldAuthorHandle)), "@"),
		Likes:        core.CoerceCount(first(raw, d.Columns(core.FieldLikes))),
		Retweets:     core.CoerceCount(first(raw, d.Columns(core.FieldRetweets))),
		Replies:      core.CoerceCount(first(raw, d.Columns(core.FieldReplies))),
		Views:        core.CoerceCount(first(raw, d.Columns(core.FieldViews))),
		PostedAt:     core.CoerceTime(first(raw, d.Columns(core.FieldPostedAt))),
		Keyword:      firstString(raw, d.Columns(core.FieldKeyword)),
		Region:       firstString(raw, d.Columns(core.FieldRegion)),
		SourceURL:    firstString(raw, d.Columns(core.FieldSourceURL)),
		ScrapedAt:    core.CoerceTime(first(raw, d.Columns(core.FieldScrapedAt))),
	}

	if rec.Region == "" {
		rec.Region = d.DefaultRegion
	}

	if cols := d.Columns(core.FieldHashtags); len(cols) > 0 {
		rec.Hashtags = core.NormalizeHashtags(core.CoerceStrings(first(raw, cols)))
	}
	if len(rec.Hashtags) == 0 {
		rec.Hashtags = core.ExtractHashtags(rec.Text)
	}

	if len(d.Passthrough) > 0 {
		rec.Metadata = make(map[string]string, len(d.Passthrough))
		for _, col := range d.Passthrough {
			if v, ok := raw[col]; ok && v != nil {
				rec.Metadata[col] = core.CoerceString(v)
			}
		}
	}

	return rec, nil
}

// first returns the first mapped column holding a non-blank value.
func first(raw core.RawRow, cols []string) any {
	for _, col := range cols {
		v, ok := raw[col]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}

func firstString(raw core.RawRow, cols []string) string {
	return strings.TrimSpace(core.CoerceString(first(raw, cols)))
}

// joinText joins every non-blank mapped column with a single space.
func joinText(raw core.RawRow, cols []string) string {
	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		if s := strings.TrimSpace(core.CoerceString(raw[col])); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
