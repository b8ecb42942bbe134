// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import "context"

// MockClient returns canned responses in order, then repeats the last one.
// Calls are recorded for assertion.
type MockClient struct {
	Responses []string
	Err       error

	Prompts []string
	Params  []GenerationParams
}

var _ LLMClient = (*MockClient)(nil)

// Generate implements the LLMClient interface.
func (m *MockClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	m.Params = append(m.Params, params)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	idx := len(m.Prompts) - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}
