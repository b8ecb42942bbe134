// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package router

import "errors"

// Sentinel errors for the proposer boundary. The router matches on these to
// decide between refusing and falling back.
var (
	// ErrNoCandidates means the gate produced an empty candidate set.
	ErrNoCandidates = errors.New("no candidate books for domain")

	// ErrProposerTimeout means the model call exceeded its deadline.
	ErrProposerTimeout = errors.New("proposer timed out")

	// ErrMalformedProposal means the model reply could not be parsed as a
	// proposal.
	ErrMalformedProposal = errors.New("malformed proposal")

	// ErrProposerInternal wraps any other backend failure.
	ErrProposerInternal = errors.New("proposer internal error")
)
