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

import (
	"fmt"
	"slices"
	"strings"
)

// ValidateCanonicalRecord validates a CanonicalRecord according to domain rules.
//
// Validation rules:
//   - SourceTable and SourceID must not be blank
//   - engagement counters must not be negative
//
// Text may be empty; modules handle that case themselves.
func ValidateCanonicalRecord(record *CanonicalRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}
	if strings.TrimSpace(record.SourceTable) == "" {
		return fmt.Errorf("%w: source table is empty", ErrInvalidRecord)
	}
	if strings.TrimSpace(record.SourceID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrMissingSourceID)
	}
	if record.Likes < 0 || record.Retweets < 0 || record.Replies < 0 || record.Views < 0 {
		return fmt.Errorf("%w: negative engagement counter", ErrInvalidRecord)
	}
	return nil
}

// ValidateEnrichmentRecord validates an EnrichmentRecord before it is written.
// Every present module result must carry its full, in-range field group.
func ValidateEnrichmentRecord(record *EnrichmentRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}
	if err := ValidateCanonicalRecord(&record.Source); err != nil {
		return err
	}
	if record.EnrichmentVersion == "" {
		return fmt.Errorf("%w: enrichment version is empty", ErrInvalidRecord)
	}
	if record.EnrichedAt.IsZero() {
		return fmt.Errorf("%w: enriched_at is zero", ErrInvalidRecord)
	}
	for name, result := range record.Results() {
		if err := ValidateResult(result); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidRecord, name, err)
		}
	}
	return nil
}

// ValidateResult checks a module result's enumerations and ranges.
func ValidateResult(result ModuleResult) error {
	switch r := result.(type) {
	case *SentimentResult:
		if r.Label != SentimentUnknown && !slices.Contains(SentimentLabels, r.Label) {
			return fmt.Errorf("%w: sentiment label %q", ErrInvalidResult, r.Label)
		}
		if !inUnit(r.Score) {
			return fmt.Errorf("%w: sentiment score %v", ErrInvalidResult, r.Score)
		}
	case *TopicResult:
		if !slices.Contains(TopicCategories, r.PrimaryCategory) {
			return fmt.Errorf("%w: primary category %q", ErrInvalidResult, r.PrimaryCategory)
		}
	case *EngagementResult:
		if r.Score < 0 || r.Rate < 0 || r.Virality < 0 || r.InteractionQuality < 0 || r.TimeAdjustedScore < 0 {
			return fmt.Errorf("%w: negative engagement metric", ErrInvalidResult)
		}
		if r.Percentile < 0 || r.Percentile > 100 {
			return fmt.Errorf("%w: percentile %v", ErrInvalidResult, r.Percentile)
		}
		if r.Tier == "" {
			return fmt.Errorf("%w: engagement tier is empty", ErrInvalidResult)
		}
	case *ModerationResult:
		if !slices.Contains(RiskLevels, r.RiskLevel) {
			return fmt.Errorf("%w: risk level %q", ErrInvalidResult, r.RiskLevel)
		}
		if !slices.Contains(RecommendedActions, r.RecommendedAction) {
			return fmt.Errorf("%w: recommended action %q", ErrInvalidResult, r.RecommendedAction)
		}
		if !inUnit(r.Confidence) {
			return fmt.Errorf("%w: confidence %v", ErrInvalidResult, r.Confidence)
		}
	case *EntityResult:
		// lists only; nothing to range-check
	case nil:
		return fmt.Errorf("%w: result is nil", ErrInvalidResult)
	}
	return nil
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
