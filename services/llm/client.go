// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm abstracts the model backend behind a single Generate call.
//
// The routing agents treat the model as an untrusted text source: they hand
// it a prompt, get a string back, and validate everything it says. Nothing in
// this package interprets model output.
package llm

import "context"

// GenerationParams tunes a single generation call. Nil pointer fields leave
// the backend default in place.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`

	// System overrides the system prompt for this call.
	System string `json:"system,omitempty"`

	// JSONOnly asks the backend for a JSON-constrained response where the
	// API supports it. Callers must still validate the parsed payload.
	JSONOnly bool `json:"json_only,omitempty"`
}

// LLMClient defines the standard interface for any model backend.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Float32Ptr returns a pointer to v, for building GenerationParams literals.
func Float32Ptr(v float32) *float32 { return &v }

// IntPtr returns a pointer to v, for building GenerationParams literals.
func IntPtr(v int) *int { return &v }
