// Package gemini implements ai.StructuredInvoker over Google Gemini.
//
// Requests set the JSON response MIME type and translate the ai.Schema into a
// Gemini response schema, so the model returns a constrained object in the
// first text part. Rate limits and unavailable backends are reported as
// ai.ErrTransient; blocked prompts are not retried.
package gemini
