// Package enrichment implements the enrichment modules and the chain that runs them.
//
// Four modules (sentiment, entity, topic, moderation) prompt an inference
// backend through ai.StructuredInvoker and decode its schema-validated answer.
// Engagement is computed locally from a record's counters and ranked through
// a PercentileContext shared by the records of one provider run.
//
// The Chain runs enabled modules in a fixed order. A module that errors or
// panics contributes its empty result, so every enabled field group is
// always present in the output record.
package enrichment
