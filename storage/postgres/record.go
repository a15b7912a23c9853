package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/poiesic/enrichit/core"
	"github.com/poiesic/enrichit/storage"
)

// recordArgs flattens a record into outputColumns order.
// Field groups of disabled modules become NULL.
func recordArgs(r *core.EnrichmentRecord) ([]any, error) {
	src := r.Source
	var metadata any
	if len(src.Metadata) > 0 {
		b, err := json.Marshal(src.Metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		metadata = b
	}

	args := []any{
		src.SourceTable, src.SourceID,
		src.Text, src.Author, src.AuthorHandle,
		src.Likes, src.Retweets, src.Replies, src.Views,
		nullTime(src.PostedAt), pq.Array(src.Hashtags), src.Keyword, src.Region, src.SourceURL, nullTime(src.ScrapedAt), metadata,
	}

	if s := r.Sentiment; s != nil {
		args = append(args, s.Label, s.Score, list(s.Emotions), list(s.Topics))
	} else {
		args = append(args, nulls(4)...)
	}
	if e := r.Entities; e != nil {
		args = append(args, list(e.People), list(e.Organizations), list(e.Locations), list(e.Products), list(e.Hashtags), list(e.Mentions))
	} else {
		args = append(args, nulls(6)...)
	}
	if t := r.Topic; t != nil {
		args = append(args, t.PrimaryCategory, list(t.SubCategories), t.Industry, list(t.Keywords), t.IsCommercial, t.IsNews)
	} else {
		args = append(args, nulls(6)...)
	}
	if g := r.Engagement; g != nil {
		args = append(args, g.Score, g.Rate, g.Virality, g.InteractionQuality, g.TimeAdjustedScore, g.Percentile, g.Tier)
	} else {
		args = append(args, nulls(7)...)
	}
	if m := r.Moderation; m != nil {
		args = append(args, m.IsSafe, m.RiskLevel, list(m.Flags), list(m.ContentWarnings), m.RecommendedAction, m.Confidence)
	} else {
		args = append(args, nulls(6)...)
	}

	failed := make([]string, len(r.Failed))
	for i, name := range r.Failed {
		failed[i] = string(name)
	}
	args = append(args, pq.Array(failed), r.EnrichedAt.UTC(), r.EnrichmentVersion, r.Date())
	return args, nil
}

// list keeps present-but-empty lists as '{}' rather than NULL.
func list(items []string) any {
	if items == nil {
		items = []string{}
	}
	return pq.Array(items)
}

func nulls(n int) []any {
	return make([]any, n)
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord rebuilds a record from outputColumns. A group is present when its
// leading column is not NULL.
func scanRecord(row scanner) (*core.EnrichmentRecord, error) {
	var (
		src                  core.CanonicalRecord
		postedAt, scrapedAt  sql.NullTime
		srcHashtags          pq.StringArray
		metadata             []byte
		sentLabel            sql.NullString
		sentScore            sql.NullFloat64
		emotions, topics     pq.StringArray
		people, orgs, locs   pq.StringArray
		products, tags, ment pq.StringArray
		primary, industry    sql.NullString
		subCats, keywords    pq.StringArray
		commercial, news     sql.NullBool
		eng                  [6]sql.NullFloat64
		tier                 sql.NullString
		safe                 sql.NullBool
		risk, action         sql.NullString
		flags, warnings      pq.StringArray
		confidence           sql.NullFloat64
		failed               pq.StringArray
		enrichedAt, date     time.Time
		version              string
	)

	err := row.Scan(
		&src.SourceTable, &src.SourceID,
		&src.Text, &src.Author, &src.AuthorHandle,
		&src.Likes, &src.Retweets, &src.Replies, &src.Views,
		&postedAt, &srcHashtags, &src.Keyword, &src.Region, &src.SourceURL, &scrapedAt, &metadata,
		&sentLabel, &sentScore, &emotions, &topics,
		&people, &orgs, &locs, &products, &tags, &ment,
		&primary, &subCats, &industry, &keywords, &commercial, &news,
		&eng[0], &eng[1], &eng[2], &eng[3], &eng[4], &eng[5], &tier,
		&safe, &risk, &flags, &warnings, &action, &confidence,
		&failed, &enrichedAt, &version, &date,
	)
	if err != nil {
		return nil, err
	}

	if postedAt.Valid {
		t := postedAt.Time.UTC()
		src.PostedAt = &t
	}
	if scrapedAt.Valid {
		t := scrapedAt.Time.UTC()
		src.ScrapedAt = &t
	}
	src.Hashtags = []string(srcHashtags)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &src.Metadata); err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
	}

	rec := core.NewEnrichmentRecord(&src, enrichedAt)
	rec.EnrichmentVersion = version

	if sentLabel.Valid {
		rec.Sentiment = &core.SentimentResult{
			Label:    sentLabel.String,
			Score:    sentScore.Float64,
			Emotions: strs(emotions),
			Topics:   strs(topics),
		}
	}
	if people != nil {
		rec.Entities = &core.EntityResult{
			People:        strs(people),
			Organizations: strs(orgs),
			Locations:     strs(locs),
			Products:      strs(products),
			Hashtags:      strs(tags),
			Mentions:      strs(ment),
		}
	}
	if primary.Valid {
		rec.Topic = &core.TopicResult{
			PrimaryCategory: primary.String,
			SubCategories:   strs(subCats),
			Industry:        industry.String,
			Keywords:        strs(keywords),
			IsCommercial:    commercial.Bool,
			IsNews:          news.Bool,
		}
	}
	if eng[0].Valid {
		rec.Engagement = &core.EngagementResult{
			Score:              eng[0].Float64,
			Rate:               eng[1].Float64,
			Virality:           eng[2].Float64,
			InteractionQuality: eng[3].Float64,
			TimeAdjustedScore:  eng[4].Float64,
			Percentile:         eng[5].Float64,
			Tier:               tier.String,
		}
	}
	if safe.Valid {
		rec.Moderation = &core.ModerationResult{
			IsSafe:            safe.Bool,
			RiskLevel:         risk.String,
			Flags:             strs(flags),
			ContentWarnings:   strs(warnings),
			RecommendedAction: action.String,
			Confidence:        confidence.Float64,
		}
	}
	for _, name := range failed {
		rec.Failed = append(rec.Failed, core.ModuleName(name))
	}
	return rec, nil
}

func strs(a pq.StringArray) []string {
	if a == nil {
		return []string{}
	}
	return []string(a)
}
