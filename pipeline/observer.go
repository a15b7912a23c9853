package pipeline

import "github.com/poiesic/enrichit/core"

// Observer receives pipeline events, e.g. for metrics.
// Implementations must be safe for concurrent use across providers.
type Observer interface {
	RecordsFetched(provider string, n int)
	NormalizationFailed(provider string)
	ModuleFailed(provider string, module core.ModuleName)
	BatchWritten(provider string, n int)
	WriteFailed(provider string)
	// ProviderFinished receives a copy of the final stats.
	ProviderFinished(stats *Stats)
}

// NopObserver ignores every event.
type NopObserver struct{}

var _ Observer = NopObserver{}

func (NopObserver) RecordsFetched(string, int) {}
func (NopObserver) NormalizationFailed(string) {}
func (NopObserver) ModuleFailed(string, core.ModuleName) {}
func (NopObserver) BatchWritten(string, int) {}
func (NopObserver) WriteFailed(string) {}
func (NopObserver) ProviderFinished(*Stats) {}
