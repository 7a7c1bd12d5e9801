package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/BaSui01/anythingworld/poller"
	"github.com/BaSui01/anythingworld/types"
)

// pollFlags override the configured polling defaults for one command.
type pollFlags struct {
	interval     time.Duration
	warmup       time.Duration
	maxAttempts  int
	timeout      time.Duration
	verbose      bool
	extraFormats bool
}

func (p *pollFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.DurationVar(&p.interval, "interval", poller.DefaultInterval, "delay between status checks")
	f.DurationVar(&p.warmup, "warmup", 0, "delay before the first status check")
	f.IntVar(&p.maxAttempts, "max-attempts", 0, "give up after this many status checks (0 = no limit)")
	f.DurationVar(&p.timeout, "timeout", 0, "give up after this long (0 = no limit)")
	f.BoolVar(&p.verbose, "verbose", false, "log every status check")
	f.BoolVar(&p.extraFormats, "extra-formats", false, "for animate jobs, also wait for gltf and dae conversions")
}

// apply overlays the flags the user actually set on base.
func (p *pollFlags) apply(cmd *cobra.Command, base poller.Options) poller.Options {
	f := cmd.Flags()
	if f.Changed("interval") {
		base.Interval = p.interval
	}
	if f.Changed("warmup") {
		base.Warmup = p.warmup
	}
	if f.Changed("max-attempts") {
		base.MaxAttempts = p.maxAttempts
	}
	if f.Changed("timeout") {
		base.Deadline = p.timeout
	}
	if f.Changed("verbose") {
		base.Verbose = p.verbose
	}
	return base
}

func (p *pollFlags) detail() types.DetailLevel {
	return types.DetailFor(p.extraFormats)
}
