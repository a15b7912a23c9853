// Package mock provides a test double for ai.StructuredInvoker.
//
// The mock validates every scripted response against the request schema, the
// same way the real invokers do, so modules see canonical values.
//
// # Usage in Tests
//
//	inv := mock.NewInvoker()
//	inv.Respond("sentiment_analysis", map[string]any{"sentiment": "positive", "score": 0.9})
//	inv.Fail("content_moderation", ai.ErrTransient)
//
//	// Custom behavior injection
//	inv.InvokeFunc = func(ctx context.Context, req ai.StructuredRequest) (map[string]any, error) {
//	    return nil, errors.New("down")
//	}
//
//	// Check call counts
//	count := inv.CallCount("sentiment_analysis")
//
// # Default Behavior
//
// Without a scripted response the mock returns a schema-valid default: the
// first enum value, the lower bound for numbers, false and empty lists.
package mock
