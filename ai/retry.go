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


package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RetryWithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry)
// retryable: decides whether a failure is retried; nil retries every failure
// Returns the error from the last attempt if all attempts fail.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration, retryable func(error) bool) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "error", lastErr)

		if attempt == maxAttempts {
			break
		}

		// baseDelay * 2^(attempt-1)
		delay := baseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// RetryingInvoker bounds each attempt of the wrapped invoker with a timeout
// and retries transient failures with exponential backoff.
type RetryingInvoker struct {
	next       StructuredInvoker
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

var _ StructuredInvoker = (*RetryingInvoker)(nil)

// NewRetryingInvoker wraps next using the timeout and retry settings of config.
func NewRetryingInvoker(next StructuredInvoker, config *Config) *RetryingInvoker {
	return &RetryingInvoker{
		next:       next,
		timeout:    config.RequestTimeout,
		maxRetries: config.MaxRetries,
		baseDelay:  config.RetryBaseDelay,
		logger:     slog.Default().With("component", "retrying-invoker"),
	}
}

// InvokeStructured implements StructuredInvoker.
func (r *RetryingInvoker) InvokeStructured(ctx context.Context, req StructuredRequest) (map[string]any, error) {
	var result map[string]any
	attempts := 0
	err := RetryWithBackoff(ctx, func() error {
		attempts++
		out, err := r.attempt(ctx, req)
		if err != nil {
			return err
		}
		result = out
		return nil
	}, r.maxRetries+1, r.baseDelay, Transient)
	if err != nil {
		r.logger.Debug("inference failed", "tool", req.ToolName, "attempts", attempts, "err", err)
		return nil, err
	}
	return result, nil
}

func (r *RetryingInvoker) attempt(ctx context.Context, req StructuredRequest) (map[string]any, error) {
	attemptCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	out, err := r.next.InvokeStructured(attemptCtx, req)
	if err == nil {
		return out, nil
	}
	// A per-attempt deadline while the caller is still waiting is worth another try.
	if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && !Transient(err) {
		return nil, fmt.Errorf("%w: attempt timed out after %s: %w", ErrTransient, r.timeout, err)
	}
	return nil, err
}
