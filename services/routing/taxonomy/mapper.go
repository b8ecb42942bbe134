// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package taxonomy

import "strings"

// Mapping between the human-readable domain names the classifier returns and
// the stable ids the gate operates on. The classifier keeps speaking display
// names ("Philosophy", "Military Strategy") while cache keys and taxonomy
// lookups use the ids, so the two vocabularies can evolve independently.

var domainNameToID = map[string]string{
	"Philosophy":       "philosophy",
	"Strategy":         "strategy",
	"Psychology":       "psychology",
	"Technology":       "technology",
	"Economics":        "economics",
	"Business":         "business",
	"History":          "history",
	"Literature":       "literature",
	"Science":          "science",
	"Security":         "security",
	"Self-Improvement": "psychology",
}

var domainIDToName = map[string]string{
	"philosophy": "Philosophy",
	"strategy":   "Strategy",
	"psychology": "Psychology",
	"technology": "Technology",
	"economics":  "Economics",
	"business":   "Business",
	"history":    "History",
	"literature": "Literature",
	"science":    "Science",
	"security":   "Security",
}

var subdomainNameToID = map[string]string{
	// Philosophy
	"Stoicism":             "stoicism",
	"Ethics":               "ethics",
	"Epistemology":         "ethics",
	"Metaphysics":          "ethics",
	"Political Philosophy": "power",
	"Existentialism":       "existentialism",

	// Strategy
	"Military Strategy": "military",
	"Game Theory":       "negotiation",
	"Negotiation":       "negotiation",
	"Decision Making":   "negotiation",

	// Technology
	"Software Engineering": "software",
	"Systems Design":       "systems",
	"Security":             "security",
	"Databases":            "software",

	// Psychology
	"Cognitive Science":    "cognitive",
	"Behavioral Economics": "behavioral",
	"Social Psychology":    "social",
	"Mindfulness":          "mindfulness",

	// Economics
	"Microeconomics":    "micro",
	"Macroeconomics":    "macro",
	"Political Economy": "macro",

	// Business
	"Management":       "management",
	"Leadership":       "management",
	"Entrepreneurship": "entrepreneurship",
	"Productivity":     "management",
	"Habits":           "mindfulness",
}

var subdomainIDToName = map[string]string{
	"stoicism":         "Stoicism",
	"ethics":           "Ethics",
	"existentialism":   "Existentialism",
	"military":         "Military Strategy",
	"power":            "Power Dynamics",
	"negotiation":      "Negotiation",
	"systems":          "Systems Thinking",
	"software":         "Software Engineering",
	"security":         "Security",
	"mindfulness":      "Mindfulness",
	"cognitive":        "Cognitive Science",
	"social":           "Social Psychology",
	"behavioral":       "Behavioral Economics",
	"micro":            "Microeconomics",
	"macro":            "Macroeconomics",
	"management":       "Management",
	"entrepreneurship": "Entrepreneurship",
}

// DomainNameToID converts a display name to a stable domain id. Unknown
// names fall back to their lowercase form.
func DomainNameToID(name string) string {
	if id, ok := domainNameToID[name]; ok {
		return id
	}
	return strings.ToLower(name)
}

// DomainIDToName converts a domain id to its display name. Unknown ids fall
// back to title case.
func DomainIDToName(id string) string {
	if name, ok := domainIDToName[id]; ok {
		return name
	}
	return titleCase(id)
}

// SubdomainNameToID converts a subdomain display name to a stable id. Empty
// in, empty out; unknown names fall back to lowercase.
func SubdomainNameToID(name string) string {
	if name == "" {
		return ""
	}
	if id, ok := subdomainNameToID[name]; ok {
		return id
	}
	return strings.ToLower(name)
}

// SubdomainIDToName converts a subdomain id to its display name.
func SubdomainIDToName(id string) string {
	if id == "" {
		return ""
	}
	if name, ok := subdomainIDToName[id]; ok {
		return name
	}
	return titleCase(id)
}

// titleCase uppercases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// MapToIDs converts a classified (domain, subdomain) display pair to stable
// ids in one call.
func MapToIDs(domainName, subdomainName string) (string, string) {
	return DomainNameToID(domainName), SubdomainNameToID(subdomainName)
}
