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


package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/enrichit/core"
)

// encodingVersion prefixes every encoded value.
const encodingVersion byte = 1

// codec walks the fields of a struct in one of three modes.
type codec struct {
	mode codecMode
	bs   []byte
	n    int
	err  error
}

type codecMode int

const (
	modeSize codecMode = iota
	modeMarshal
	modeUnmarshal
)

// field sizes, writes or reads one field depending on the codec mode.
func field[T any](c *codec, s mus.Serializer[T], p *T) {
	switch c.mode {
	case modeSize:
		c.n += s.Size(*p)
	case modeMarshal:
		c.n += s.Marshal(*p, c.bs[c.n:])
	case modeUnmarshal:
		if c.err != nil {
			return
		}
		v, n, err := s.Unmarshal(c.bs[c.n:])
		c.n += n
		if err != nil {
			c.err = err
			return
		}
		*p = v
	}
}

// structSer adapts a field walker to mus.Serializer.
type structSer[T any] struct {
	walk func(c *codec, v *T)
}

var _ mus.Serializer[core.CanonicalRecord] = structSer[core.CanonicalRecord]{}

func (s structSer[T]) Marshal(v T, bs []byte) int {
	c := &codec{mode: modeMarshal, bs: bs}
	s.walk(c, &v)
	return c.n
}

func (s structSer[T]) Unmarshal(bs []byte) (T, int, error) {
	var v T
	c := &codec{mode: modeUnmarshal, bs: bs}
	s.walk(c, &v)
	return v, c.n, c.err
}

func (s structSer[T]) Size(v T) int {
	c := &codec{mode: modeSize}
	s.walk(c, &v)
	return c.n
}

func (s structSer[T]) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

// moduleNameSer encodes core.ModuleName as a string.
type moduleNameSer struct{}

func (moduleNameSer) Marshal(v core.ModuleName, bs []byte) int {
	return ord.String.Marshal(string(v), bs)
}

func (moduleNameSer) Unmarshal(bs []byte) (core.ModuleName, int, error) {
	s, n, err := ord.String.Unmarshal(bs)
	return core.ModuleName(s), n, err
}

func (moduleNameSer) Size(v core.ModuleName) int {
	return ord.String.Size(string(v))
}

func (moduleNameSer) Skip(bs []byte) (int, error) {
	return ord.String.Skip(bs)
}

var (
	stringsMUS     = ord.NewSliceSer[string](ord.String)
	metadataMUS    = ord.NewMapSer[string, string](ord.String, ord.String)
	countsMUS      = ord.NewMapSer[string, int](ord.String, varint.Int)
	timeMUS        = raw.TimeUnixMicroUTC
	timePtrMUS     = ord.NewPtrSer[time.Time](raw.TimeUnixMicroUTC)
	moduleNamesMUS = ord.NewSliceSer[core.ModuleName](moduleNameSer{})
)

// CanonicalRecordMUS encodes a CanonicalRecord.
var CanonicalRecordMUS = structSer[core.CanonicalRecord]{walk: func(c *codec, r *core.CanonicalRecord) {
	field(c, ord.String, &r.SourceTable)
	field(c, ord.String, &r.SourceID)
	field(c, ord.String, &r.Text)
	field(c, ord.String, &r.Author)
	field(c, ord.String, &r.AuthorHandle)
	field(c, varint.Int64, &r.Likes)
	field(c, varint.Int64, &r.Retweets)
	field(c, varint.Int64, &r.Replies)
	field(c, varint.Int64, &r.Views)
	field(c, timePtrMUS, &r.PostedAt)
	field(c, stringsMUS, &r.Hashtags)
	field(c, ord.String, &r.Keyword)
	field(c, ord.String, &r.Region)
	field(c, ord.String, &r.SourceURL)
	field(c, timePtrMUS, &r.ScrapedAt)
	field(c, metadataMUS, &r.Metadata)
}}

var sentimentMUS = ord.NewPtrSer[core.SentimentResult](structSer[core.SentimentResult]{walk: func(c *codec, r *core.SentimentResult) {
	field(c, ord.String, &r.Label)
	field(c, varint.Float64, &r.Score)
	field(c, stringsMUS, &r.Emotions)
	field(c, stringsMUS, &r.Topics)
}})

var entitiesMUS = ord.NewPtrSer[core.EntityResult](structSer[core.EntityResult]{walk: func(c *codec, r *core.EntityResult) {
	field(c, stringsMUS, &r.People)
	field(c, stringsMUS, &r.Organizations)
	field(c, stringsMUS, &r.Locations)
	field(c, stringsMUS, &r.Products)
	field(c, stringsMUS, &r.Hashtags)
	field(c, stringsMUS, &r.Mentions)
}})

var topicMUS = ord.NewPtrSer[core.TopicResult](structSer[core.TopicResult]{walk: func(c *codec, r *core.TopicResult) {
	field(c, ord.String, &r.PrimaryCategory)
	field(c, stringsMUS, &r.SubCategories)
	field(c, ord.String, &r.Industry)
	field(c, stringsMUS, &r.Keywords)
	field(c, ord.Bool, &r.IsCommercial)
	field(c, ord.Bool, &r.IsNews)
}})

var engagementMUS = ord.NewPtrSer[core.EngagementResult](structSer[core.EngagementResult]{walk: func(c *codec, r *core.EngagementResult) {
	field(c, varint.Float64, &r.Score)
	field(c, varint.Float64, &r.Rate)
	field(c, varint.Float64, &r.Virality)
	field(c, varint.Float64, &r.InteractionQuality)
	field(c, varint.Float64, &r.TimeAdjustedScore)
	field(c, varint.Float64, &r.Percentile)
	field(c, ord.String, &r.Tier)
}})

var moderationMUS = ord.NewPtrSer[core.ModerationResult](structSer[core.ModerationResult]{walk: func(c *codec, r *core.ModerationResult) {
	field(c, ord.Bool, &r.IsSafe)
	field(c, ord.String, &r.RiskLevel)
	field(c, stringsMUS, &r.Flags)
	field(c, stringsMUS, &r.ContentWarnings)
	field(c, ord.String, &r.RecommendedAction)
	field(c, varint.Float64, &r.Confidence)
}})

// EnrichmentRecordMUS encodes an EnrichmentRecord. Absent results stay nil.
var EnrichmentRecordMUS = structSer[core.EnrichmentRecord]{walk: func(c *codec, r *core.EnrichmentRecord) {
	field(c, CanonicalRecordMUS, &r.Source)
	field(c, sentimentMUS, &r.Sentiment)
	field(c, entitiesMUS, &r.Entities)
	field(c, topicMUS, &r.Topic)
	field(c, engagementMUS, &r.Engagement)
	field(c, moderationMUS, &r.Moderation)
	field(c, moduleNamesMUS, &r.Failed)
	field(c, timeMUS, &r.EnrichedAt)
	field(c, ord.String, &r.EnrichmentVersion)
}}

// RunSummaryMUS encodes a RunSummary.
var RunSummaryMUS = structSer[RunSummary]{walk: func(c *codec, s *RunSummary) {
	field(c, ord.String, &s.RunID)
	field(c, ord.String, &s.Provider)
	field(c, ord.String, &s.Status)
	field(c, varint.Int, &s.Fetched)
	field(c, varint.Int, &s.Enriched)
	field(c, varint.Int, &s.Written)
	field(c, varint.Int, &s.NormalizationFailures)
	field(c, varint.Int, &s.RecordsWithFailures)
	field(c, varint.Int, &s.WriteFailures)
	field(c, varint.Int, &s.Batches)
	field(c, countsMUS, &s.ModuleFailures)
	field(c, ord.String, &s.Error)
	field(c, timeMUS, &s.StartedAt)
	field(c, timeMUS, &s.FinishedAt)
}}

func marshal[T any](s mus.Serializer[T], v T) []byte {
	buf := make([]byte, 1+s.Size(v))
	buf[0] = encodingVersion
	s.Marshal(v, buf[1:])
	return buf
}

func unmarshal[T any](s mus.Serializer[T], data []byte) (T, error) {
	var zero T
	if len(data) == 0 {
		return zero, fmt.Errorf("%w: %w", ErrSerializationFailed, mus.ErrTooSmallByteSlice)
	}
	if data[0] != encodingVersion {
		return zero, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[0])
	}
	v, _, err := s.Unmarshal(data[1:])
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return v, nil
}

// MarshalEnrichmentRecord serializes an EnrichmentRecord to bytes.
func MarshalEnrichmentRecord(record *core.EnrichmentRecord) []byte {
	return marshal[core.EnrichmentRecord](EnrichmentRecordMUS, *record)
}

// UnmarshalEnrichmentRecord deserializes an EnrichmentRecord from bytes.
func UnmarshalEnrichmentRecord(data []byte) (*core.EnrichmentRecord, error) {
	record, err := unmarshal[core.EnrichmentRecord](EnrichmentRecordMUS, data)
	if err != nil {
		return nil, err
	}
	if len(record.Source.Metadata) == 0 {
		record.Source.Metadata = nil
	}
	if len(record.Failed) == 0 {
		record.Failed = nil
	}
	return &record, nil
}

// MarshalRunSummary serializes a RunSummary to bytes.
func MarshalRunSummary(summary *RunSummary) []byte {
	return marshal[RunSummary](RunSummaryMUS, *summary)
}

// UnmarshalRunSummary deserializes a RunSummary from bytes.
func UnmarshalRunSummary(data []byte) (*RunSummary, error) {
	summary, err := unmarshal[RunSummary](RunSummaryMUS, data)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
