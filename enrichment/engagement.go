package enrichment

import (
	"context"
	"math"

	"github.com/poiesic/enrichit/core"
)

// Engagement weights. Views are cheap, retweets are not.
const (
	WeightLikes    = 1.0
	WeightRetweets = 3.0
	WeightReplies  = 2.0
	WeightViews    = 0.01
)

// Engagement computes engagement metrics from a record's counters.
// It never calls out and never fails.
type Engagement struct{}

var _ Module = (*Engagement)(nil)

// NewEngagement creates the engagement module.
func NewEngagement() *Engagement {
	return &Engagement{}
}

func (*Engagement) Name() core.ModuleName { return core.ModuleEngagement }

func (*Engagement) Empty() core.ModuleResult { return core.EmptyEngagement() }

// Enrich computes the engagement field group for rec.
func (e *Engagement) Enrich(_ context.Context, rec *core.CanonicalRecord, bc *BatchContext) (core.ModuleResult, error) {
	return e.Compute(rec, bc), nil
}

// Compute is Enrich without the Module plumbing.
func (*Engagement) Compute(rec *core.CanonicalRecord, bc *BatchContext) *core.EngagementResult {
	likes := float64(max(rec.Likes, 0))
	retweets := float64(max(rec.Retweets, 0))
	replies := float64(max(rec.Replies, 0))
	views := float64(max(rec.Views, 0))

	score := likes*WeightLikes + retweets*WeightRetweets + replies*WeightReplies + views*WeightViews

	result := &core.EngagementResult{
		Score:              round(score, 2),
		Rate:               round(ratio(score, views), 4),
		Virality:           round(ratio(retweets, likes+retweets+replies), 4),
		InteractionQuality: round(ratio(replies, likes), 4),
		Tier:               core.TierUnranked,
	}

	if rec.PostedAt != nil {
		ageHours := bc.Now().Sub(rec.PostedAt.UTC()).Hours()
		result.TimeAdjustedScore = round(score/math.Max(ageHours, 1), 2)
	}

	bc.Rank(result)
	return result
}

// Rank sets the percentile and tier of result from the batch's percentile
// context. Without a context the result keeps its current tier.
func (bc *BatchContext) Rank(result *core.EngagementResult) {
	pc := bc.percentiles()
	if pc == nil || result == nil {
		return
	}
	p := math.Min(100, math.Max(0, pc.Rank(result.Score)))
	result.Percentile = round(p, 2)
	result.Tier = core.TierForPercentile(result.Percentile)
}

func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}

func round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}
