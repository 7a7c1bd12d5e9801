package poller

import (
	"time"

	"github.com/BaSui01/anythingworld/types"
)

// DefaultInterval is the delay between attempts when none is given.
const DefaultInterval = 5 * time.Second

// MissingStagePolicy decides what a status document without "stage" means.
type MissingStagePolicy int

const (
	// MissingStageNotReady treats an absent stage as queued / not yet tracked.
	MissingStageNotReady MissingStagePolicy = iota
	// MissingStageDone treats an absent stage on a successful fetch as completion.
	MissingStageDone
)

func (p MissingStagePolicy) String() string {
	switch p {
	case MissingStageNotReady:
		return "not_ready"
	case MissingStageDone:
		return "done"
	default:
		return "unknown"
	}
}

// ParseMissingStagePolicy parses "not_ready" (or "") and "done".
func ParseMissingStagePolicy(s string) (MissingStagePolicy, error) {
	switch s {
	case "", "not_ready":
		return MissingStageNotReady, nil
	case "done":
		return MissingStageDone, nil
	default:
		return 0, types.Errorf(types.ErrConfiguration, "unknown missing-stage policy %q", s)
	}
}

// Options configures a single polling sequence.
type Options struct {
	// Interval between attempts. Zero means back-to-back attempts here;
	// client.Client substitutes its configured interval for zero.
	Interval time.Duration `json:"interval" yaml:"interval"`
	// Warmup before the first attempt.
	Warmup time.Duration `json:"warmup" yaml:"warmup"`
	// Verbose promotes per-attempt diagnostics from debug to info.
	Verbose bool `json:"verbose" yaml:"verbose"`
	// MaxAttempts bounds the number of fetches. Zero is unbounded.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	// Deadline bounds the whole sequence, warmup included. Zero is unbounded.
	Deadline time.Duration `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	// MissingStage policy for documents without a "stage" field.
	MissingStage MissingStagePolicy `json:"missing_stage" yaml:"missing_stage"`
	// OnAttempt is called after every fetch with the attempt number and its outcome.
	OnAttempt func(attempt int, doc types.StatusDocument, err error) `json:"-" yaml:"-"`
}

// DefaultOptions returns the documented defaults: 5s interval, no warmup,
// quiet, unbounded.
func DefaultOptions() Options {
	return Options{Interval: DefaultInterval}
}

// Validate rejects negative durations and attempt counts.
func (o Options) Validate() error {
	switch {
	case o.Interval < 0:
		return types.Errorf(types.ErrConfiguration, "interval must be >= 0, got %s", o.Interval)
	case o.Warmup < 0:
		return types.Errorf(types.ErrConfiguration, "warmup must be >= 0, got %s", o.Warmup)
	case o.MaxAttempts < 0:
		return types.Errorf(types.ErrConfiguration, "max attempts must be >= 0, got %d", o.MaxAttempts)
	case o.Deadline < 0:
		return types.Errorf(types.ErrConfiguration, "deadline must be >= 0, got %s", o.Deadline)
	}
	return nil
}
