package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// EnrichmentVersion tags the output schema produced by this pipeline.
const EnrichmentVersion = "1.0.0"

// ID is a stable 64-bit identifier derived from content.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// RawRow is one source row keyed by provider-native column name.
type RawRow map[string]any

// SourceKey is the provenance identity of a record.
// Two records with the same key are the same logical entity.
type SourceKey struct {
	Table string
	ID    string
}

// String returns the key as "table/id".
func (k SourceKey) String() string {
	return k.Table + "/" + k.ID
}

// KeyID returns the content ID of the key.
// The table and id are separated by a NUL byte so ("a","b/c") and ("a/b","c") differ.
func (k SourceKey) KeyID() ID {
	return IDFromContent(k.Table + "\x00" + k.ID)
}

// Field names a canonical record field that a provider can map.
type Field string

const (
	FieldText         Field = "text"
	FieldAuthor       Field = "author"
	FieldAuthorHandle Field = "author_handle"
	FieldLikes        Field = "likes"
	FieldRetweets     Field = "retweets"
	FieldReplies      Field = "replies"
	FieldViews        Field = "views"
	FieldPostedAt     Field = "posted_at"
	FieldHashtags     Field = "hashtags"
	FieldKeyword      Field = "keyword"
	FieldRegion       Field = "region"
	FieldSourceURL    Field = "source_url"
	FieldScrapedAt    Field = "scraped_at"
)

// CanonicalRecord is the provider-agnostic shape every module consumes.
// It is immutable once normalization returns it.
type CanonicalRecord struct {
	SourceTable  string
	SourceID     string
	Text         string
	Author       string
	AuthorHandle string
	Likes        int64
	Retweets     int64
	Replies      int64
	Views        int64
	PostedAt     *time.Time
	Hashtags     []string
	Keyword      string
	Region       string
	SourceURL    string
	ScrapedAt    *time.Time
	Metadata     map[string]string // provider-specific passthrough columns
}

// Key returns the record's provenance identity.
func (r *CanonicalRecord) Key() SourceKey {
	return SourceKey{Table: r.SourceTable, ID: r.SourceID}
}

// EnrichmentRecord is the output unit: canonical fields plus one result per enabled module.
// A nil result means the module was disabled for the run.
type EnrichmentRecord struct {
	Source            CanonicalRecord
	Sentiment         *SentimentResult
	Entities          *EntityResult
	Topic             *TopicResult
	Engagement        *EngagementResult
	Moderation        *ModerationResult
	Failed            []ModuleName // modules that fell back to their empty result
	EnrichedAt        time.Time
	EnrichmentVersion string
}

// NewEnrichmentRecord starts an enrichment record for a canonical record.
func NewEnrichmentRecord(src *CanonicalRecord, enrichedAt time.Time) *EnrichmentRecord {
	return &EnrichmentRecord{
		Source:            *src,
		EnrichedAt:        enrichedAt.UTC(),
		EnrichmentVersion: EnrichmentVersion,
	}
}

// Key returns the record's provenance identity.
func (r *EnrichmentRecord) Key() SourceKey {
	return r.Source.Key()
}

// Date returns the YYYY-MM-DD partition the record is written under.
func (r *EnrichmentRecord) Date() string {
	return r.EnrichedAt.UTC().Format(time.DateOnly)
}

// Apply stores a module result in its field group.
func (r *EnrichmentRecord) Apply(result ModuleResult) {
	switch v := result.(type) {
	case *SentimentResult:
		r.Sentiment = v
	case *EntityResult:
		r.Entities = v
	case *TopicResult:
		r.Topic = v
	case *EngagementResult:
		r.Engagement = v
	case *ModerationResult:
		r.Moderation = v
	}
}

// Result returns the stored result for a module, or nil.
func (r *EnrichmentRecord) Result(name ModuleName) ModuleResult {
	switch name {
	case ModuleSentiment:
		if r.Sentiment != nil {
			return r.Sentiment
		}
	case ModuleEntity:
		if r.Entities != nil {
			return r.Entities
		}
	case ModuleTopic:
		if r.Topic != nil {
			return r.Topic
		}
	case ModuleEngagement:
		if r.Engagement != nil {
			return r.Engagement
		}
	case ModuleModeration:
		if r.Moderation != nil {
			return r.Moderation
		}
	}
	return nil
}

// Results returns the present module results keyed by module name.
func (r *EnrichmentRecord) Results() map[ModuleName]ModuleResult {
	out := make(map[ModuleName]ModuleResult, len(ModuleOrder))
	for _, name := range ModuleOrder {
		if res := r.Result(name); res != nil {
			out[name] = res
		}
	}
	return out
}
