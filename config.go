// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package lifo

import "fmt"

// Reclamation selects how a [Stack] decides when a popped node may be reused.
type Reclamation int

const (
	// HazardPointers has every participant announce the node it is about to
	// read. Retained nodes are bounded even if a participant stalls.
	HazardPointers Reclamation = iota

	// Epochs has every participant pin the current epoch while it reads.
	// Cheaper per operation, but a participant that stalls while pinned
	// holds back all reclamation.
	Epochs
)

func (r Reclamation) String() string {
	switch r {
	case HazardPointers:
		return "hazard"
	case Epochs:
		return "epoch"
	default:
		return fmt.Sprintf("Reclamation(%d)", int(r))
	}
}

// DefaultConfig is the configuration used by [New].
var DefaultConfig = Config{
	Reclamation:   HazardPointers,
	ScanThreshold: 64,
	MaxBackoff:    128,
}

// Config holds the settings of a [Stack]. The zero value is valid and differs
// from [DefaultConfig] only in having no backoff and the smallest scan
// threshold.
type Config struct {
	Reclamation Reclamation

	// Maximum number of nodes, live or retired, that the stack holds at
	// once. Zero means no limit beyond what a 32-bit node index can
	// address. A push that finds the store full first reclaims what its own
	// participant can; nodes retired by other participants are not flushed,
	// so under epoch reclamation a participant pinned for a long time can
	// make pushes fail while retired nodes wait.
	Capacity int

	// Number of retired nodes a participant accumulates before it tries to
	// reclaim them. Hazard pointers raise it to twice the number of
	// participants if that is larger.
	ScanThreshold int

	// Upper bound on the number of spin iterations between retries after a
	// lost race on the head. The bound doubles with each consecutive loss up
	// to this value. Zero disables backoff.
	MaxBackoff int

	// Notified of every completed operation if not nil.
	Observer Observer
}

func (c Config) validate() {
	if c.Reclamation != HazardPointers && c.Reclamation != Epochs {
		panic(fmt.Sprintf("invalid reclamation scheme %v", c.Reclamation))
	}
	if c.Capacity < 0 {
		panic("negative capacity")
	}
	if c.ScanThreshold < 0 {
		panic("negative scan threshold")
	}
	if c.MaxBackoff < 0 {
		panic("negative backoff")
	}
}
