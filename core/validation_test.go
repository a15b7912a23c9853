package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateCanonicalRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *CanonicalRecord
		wantErr error
	}{
		{
			name:    "valid record",
			record:  &CanonicalRecord{SourceTable: "x_tweets", SourceID: "1", Text: "hi", Likes: 3},
			wantErr: nil,
		},
		{
			name:    "valid record with empty text",
			record:  &CanonicalRecord{SourceTable: "x_tweets", SourceID: "1"},
			wantErr: nil,
		},
		{
			name:    "nil record",
			record:  nil,
			wantErr: ErrInvalidRecord,
		},
		{
			name:    "blank table",
			record:  &CanonicalRecord{SourceTable: "  ", SourceID: "1"},
			wantErr: ErrInvalidRecord,
		},
		{
			name:    "blank id",
			record:  &CanonicalRecord{SourceTable: "x_tweets", SourceID: ""},
			wantErr: ErrMissingSourceID,
		},
		{
			name:    "negative counter",
			record:  &CanonicalRecord{SourceTable: "x_tweets", SourceID: "1", Views: -1},
			wantErr: ErrInvalidRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCanonicalRecord(tt.record)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateCanonicalRecord() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateCanonicalRecord() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateEnrichmentRecord(t *testing.T) {
	valid := func() *EnrichmentRecord {
		rec := NewEnrichmentRecord(&CanonicalRecord{SourceTable: "x_tweets", SourceID: "1"}, time.Now())
		rec.Apply(EmptySentiment())
		rec.Apply(EmptyEngagement())
		return rec
	}

	tests := []struct {
		name    string
		mutate  func(r *EnrichmentRecord)
		wantErr bool
	}{
		{name: "valid", mutate: func(r *EnrichmentRecord) {}},
		{name: "missing version", mutate: func(r *EnrichmentRecord) { r.EnrichmentVersion = "" }, wantErr: true},
		{name: "zero enriched_at", mutate: func(r *EnrichmentRecord) { r.EnrichedAt = time.Time{} }, wantErr: true},
		{name: "bad sentiment label", mutate: func(r *EnrichmentRecord) { r.Sentiment.Label = "ecstatic" }, wantErr: true},
		{name: "sentiment score out of range", mutate: func(r *EnrichmentRecord) { r.Sentiment.Score = 1.5 }, wantErr: true},
		{name: "negative engagement", mutate: func(r *EnrichmentRecord) { r.Engagement.Rate = -0.1 }, wantErr: true},
		{name: "bad topic", mutate: func(r *EnrichmentRecord) { r.Topic = &TopicResult{PrimaryCategory: "Gardening"} }, wantErr: true},
		{name: "bad risk level", mutate: func(r *EnrichmentRecord) {
			m := EmptyModeration()
			m.RiskLevel = "extreme"
			r.Moderation = m
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid()
			tt.mutate(rec)
			err := ValidateEnrichmentRecord(rec)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRecord) {
					t.Errorf("ValidateEnrichmentRecord() error = %v, want ErrInvalidRecord", err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateEnrichmentRecord() unexpected error = %v", err)
			}
		})
	}
}

func TestErrorTaxonomyUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	wf := &WriteFailure{Provider: "x_tweets", BatchSize: 10, Err: cause}
	pf := &ProviderFailure{Provider: "x_tweets", Err: wf}

	if !errors.Is(pf, ErrProviderFailure) || !errors.Is(pf, ErrWriteFailure) || !errors.Is(pf, cause) {
		t.Errorf("ProviderFailure should match its sentinel, the write failure and the cause: %v", pf)
	}

	var unknown error = &UnknownProviderError{Name: "myspace"}
	if !errors.Is(unknown, ErrUnknownProvider) {
		t.Errorf("UnknownProviderError should match ErrUnknownProvider")
	}

	var cfg error = &ConfigurationError{Reason: "no providers"}
	if !errors.Is(cfg, ErrConfiguration) {
		t.Errorf("ConfigurationError should match ErrConfiguration")
	}

	me := &ModuleError{Module: ModuleTopic, Key: SourceKey{Table: "t", ID: "1"}, Err: cause}
	if !errors.Is(me, ErrModuleInvocation) || !errors.Is(me, cause) {
		t.Errorf("ModuleError should match ErrModuleInvocation and its cause")
	}
}
