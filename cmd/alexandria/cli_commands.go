// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/catalog"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/eval"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/router"
	"github.com/AlexandriaLibrary/AlexandriaCanon/services/routing/taxonomy"
)

var (
	rootCmd = &cobra.Command{
		Use:   "alexandria",
		Short: "A CLI to inspect and exercise the Alexandria routing pipeline",
		Long: `Alexandria routes reading questions to specific chapters of the canon.
This CLI inspects catalog artifacts, queries the taxonomy gate, and runs
the routing eval harness without starting the server.`,
	}

	artifactDir     string
	artifactVersion int
	gateMode        string

	gateCmd = &cobra.Command{
		Use:   "gate",
		Short: "Query the taxonomy gate",
	}
	candidatesCmd = &cobra.Command{
		Use:   "candidates [domain] [subdomain]",
		Short: "Show the candidate books and chapters for a domain",
		Long:  `Prints the candidate set the gate would hand the proposer for the given domain and optional subdomain. Accepts display names ("Philosophy") or ids ("philosophy").`,
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runCandidates,
	}

	artifactsCmd = &cobra.Command{
		Use:   "artifacts",
		Short: "Inspect catalog artifacts",
	}
	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "Load an artifact set and print its statistics",
		Long:  `Loads the book index, chapter index, and taxonomy definition from the artifact directory, runs the integrity checks, and prints a summary. Fails if the artifacts are inconsistent.`,
		RunE:  runInspect,
	}

	evalConcurrency int
	evalCmd         = &cobra.Command{
		Use:   "eval",
		Short: "Run the routing eval harness with mock agents",
		Long:  `Routes the canned eval questions through the full pipeline using the mock classifier and proposer, then prints the results and structural violations. Use this to verify routing plumbing before pointing at a real model.`,
		RunE:  runEval,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&artifactDir, "artifact-dir", "./artifacts", "Directory holding catalog artifacts")
	rootCmd.PersistentFlags().StringVar(&gateMode, "gate-mode", taxonomy.ModeArtifact, "Gate mode: artifact or static")

	inspectCmd.Flags().IntVar(&artifactVersion, "version", 0, "Artifact version to load (0 = latest)")
	evalCmd.Flags().IntVar(&evalConcurrency, "concurrency", 4, "Parallel eval queries")

	gateCmd.AddCommand(candidatesCmd)
	artifactsCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(gateCmd, artifactsCmd, evalCmd)
}

// buildGate constructs the configured gate, loading artifacts when needed.
func buildGate() (taxonomy.Gate, error) {
	var cat *catalog.Catalog
	if gateMode == taxonomy.ModeArtifact {
		cat = catalog.New(artifactDir)
		if err := cat.Load(artifactVersion); err != nil {
			return nil, fmt.Errorf("loading artifacts from %s: %w", artifactDir, err)
		}
	}
	return taxonomy.NewGate(taxonomy.Config{Mode: gateMode}, cat)
}

func runCandidates(cmd *cobra.Command, args []string) error {
	gate, err := buildGate()
	if err != nil {
		return err
	}

	domain := args[0]
	subdomain := ""
	if len(args) > 1 {
		subdomain = args[1]
	}
	domainID, subdomainID := taxonomy.MapToIDs(domain, subdomain)

	bookIDs := gate.CandidateBooks(domainID, subdomainID, taxonomy.DefaultMaxBooks)
	if len(bookIDs) == 0 {
		fmt.Printf("No books mapped to %s/%s\n", domainID, orDash(subdomainID))
		return nil
	}

	chapters := gate.CandidateChapters(bookIDs, taxonomy.DefaultMaxChaptersPerBook)
	fmt.Printf("Candidates for %s/%s (%d books):\n", domainID, orDash(subdomainID), len(bookIDs))
	for _, id := range bookIDs {
		book, ok := gate.BookMetadata(id)
		if !ok {
			fmt.Printf("  %s (no metadata)\n", id)
			continue
		}
		fmt.Printf("  %s: %q by %s\n", id, book.Title, book.Author)
		for _, ch := range chapters[id] {
			fmt.Printf("    Ch%d: %s\n", ch.Number, ch.Title)
		}
	}
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	cat := catalog.New(artifactDir)
	if err := cat.Load(artifactVersion); err != nil {
		return fmt.Errorf("loading artifacts from %s: %w", artifactDir, err)
	}

	stats := cat.Stats()
	encoded, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}

func runEval(cmd *cobra.Command, args []string) error {
	gate, err := buildGate()
	if err != nil {
		return err
	}

	rtr := router.New(gate, &router.MockProposer{}, nil, nil, router.Config{})
	harness := eval.New(&router.MockClassifier{}, rtr, gate, evalConcurrency)

	report, err := harness.Run(cmd.Context())
	if err != nil {
		return err
	}
	report.WriteText(os.Stdout)

	if report.Violations > 0 {
		return fmt.Errorf("%d structural violations", report.Violations)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
