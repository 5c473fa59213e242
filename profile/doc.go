// Package profile captures pprof profiles over a CLI run.
//
// Bulk indexing jobs are the usual subject: a CPU profile shows where
// transform time goes, block and mutex profiles show whether the pipeline
// stalls on the action queue or on cluster backpressure. Profiles are
// enabled per kind through command-line flags registered with
// [Config.RegisterFlags]; sampling rates stay untouched unless the
// matching profile is requested.
//
// Typical usage creates a [Config], registers flags, then wraps command
// execution in a [Profiler]:
//
//	cfg := profile.NewConfig()
//	p := cfg.NewProfiler()
//
//	cmd := &cobra.Command{
//	    PreRunE: func(_ *cobra.Command, _ []string) error {
//	        return p.Start()
//	    },
//	    PostRunE: func(_ *cobra.Command, _ []string) error {
//	        return p.Stop()
//	    },
//	}
//
//	cfg.RegisterFlags(cmd.Flags())
//	cfg.RegisterCompletions(cmd)
//
// Profiling then activates via flags like --cpu-profile=cpu.prof.
package profile
