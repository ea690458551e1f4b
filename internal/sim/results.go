// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim

import (
	"github.com/stretchr/testify/require"
)

// Result summarizes one simulation.
type Result struct {
	// Gated steps granted, not counting the one that starts each thread.
	Steps int

	// Reported through Gate.Succeeded, Gate.Completed and Gate.Failed.
	Successes   int
	Completions int
	Failures    int

	// Longest run of consecutive steps none of which reported a success or
	// completion.
	MaxStall int
}

// Progress returns the number of steps that reported a success or completion.
func (r *Result) Progress() int {
	return r.Successes + r.Completions
}

// ResultRange accumulates the extremes of several results.
type ResultRange struct {
	Runs        int
	MinSteps    int
	MaxSteps    int
	MaxStall    int
	MaxFailures int
}

func (rr *ResultRange) MergeResult(t require.TestingT, r *Result) {
	chk := require.New(t)
	chk.NotNil(rr)
	chk.NotNil(r)
	if rr.Runs == 0 {
		rr.MinSteps = r.Steps
		rr.MaxSteps = r.Steps
	} else {
		rr.MinSteps = min(rr.MinSteps, r.Steps)
		rr.MaxSteps = max(rr.MaxSteps, r.Steps)
	}
	rr.MaxStall = max(rr.MaxStall, r.MaxStall)
	rr.MaxFailures = max(rr.MaxFailures, r.Failures)
	rr.Runs++
}
