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
	"errors"
	"fmt"
)

// Error taxonomy, narrowest scope first.
var (
	// ErrNormalization indicates a raw row could not become a CanonicalRecord.
	// The row is dropped and counted.
	ErrNormalization = errors.New("normalization failed")

	// ErrMissingSourceID indicates the provider id column is absent or blank.
	ErrMissingSourceID = errors.New("source id is required")

	// ErrModuleInvocation indicates a module failed for one record.
	// The module's empty result is used instead.
	ErrModuleInvocation = errors.New("module invocation failed")

	// ErrProviderFailure indicates one provider could not complete its run.
	ErrProviderFailure = errors.New("provider failed")

	// ErrWriteFailure indicates a batch could not be written.
	ErrWriteFailure = errors.New("write failed")

	// ErrConfiguration indicates the run configuration is unusable.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrUnknownProvider indicates a provider name is not registered.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrInvalidRecord indicates a record failed validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrInvalidResult indicates a module result failed validation.
	ErrInvalidResult = errors.New("invalid module result")
)

// UnknownProviderError names the provider that was not found.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownProvider, e.Name)
}

func (e *UnknownProviderError) Unwrap() error {
	return ErrUnknownProvider
}

// ConfigurationError describes why a run configuration was rejected.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfiguration, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// ModuleError records a module failure for one record.
type ModuleError struct {
	Module ModuleName
	Key    SourceKey
	Err    error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("%s: %s on %s: %v", ErrModuleInvocation, e.Module, e.Key, e.Err)
}

func (e *ModuleError) Unwrap() []error {
	return []error{ErrModuleInvocation, e.Err}
}

// WriteFailure records a failed batch flush.
type WriteFailure struct {
	Provider  string
	BatchSize int
	Err       error
}

func (e *WriteFailure) Error() string {
	return fmt.Sprintf("%s: %s batch of %d: %v", ErrWriteFailure, e.Provider, e.BatchSize, e.Err)
}

func (e *WriteFailure) Unwrap() []error {
	return []error{ErrWriteFailure, e.Err}
}

// ProviderFailure records a provider that could not complete its run.
type ProviderFailure struct {
	Provider string
	Err      error
}

func (e *ProviderFailure) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrProviderFailure, e.Provider, e.Err)
}

func (e *ProviderFailure) Unwrap() []error {
	return []error{ErrProviderFailure, e.Err}
}
