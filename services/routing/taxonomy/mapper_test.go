// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainNameToID(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Philosophy", "philosophy"},
		{"Strategy", "strategy"},
		{"Self-Improvement", "psychology"},
		{"Security", "security"},
		// Unknown names fall back to lowercase.
		{"Astronomy", "astronomy"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DomainNameToID(tt.name), "name %q", tt.name)
	}
}

func TestSubdomainNameToID(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Stoicism", "stoicism"},
		{"Military Strategy", "military"},
		{"Political Philosophy", "power"},
		{"Game Theory", "negotiation"},
		{"Leadership", "management"},
		{"", ""},
		{"Alchemy", "alchemy"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SubdomainNameToID(tt.name), "name %q", tt.name)
	}
}

func TestIDToNameFallbacks(t *testing.T) {
	assert.Equal(t, "Philosophy", DomainIDToName("philosophy"))
	assert.Equal(t, "Astronomy", DomainIDToName("astronomy"))
	assert.Equal(t, "Military Strategy", SubdomainIDToName("military"))
	assert.Equal(t, "", SubdomainIDToName(""))
	assert.Equal(t, "Alchemy", SubdomainIDToName("alchemy"))
}

func TestMapToIDs(t *testing.T) {
	domainID, subdomainID := MapToIDs("Strategy", "Military Strategy")
	assert.Equal(t, "strategy", domainID)
	assert.Equal(t, "military", subdomainID)

	domainID, subdomainID = MapToIDs("Philosophy", "")
	assert.Equal(t, "philosophy", domainID)
	assert.Equal(t, "", subdomainID)
}
