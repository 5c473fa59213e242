package profile

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
)

// Profiler controls the lifecycle of one runtime profiling session.
//
// Call [Profiler.Start] before the work under observation and
// [Profiler.Stop] after it to write all enabled profiles.
//
// Create instances with [Config.NewProfiler].
type Profiler struct {
	cpuFile *os.File
	Config
}

// Start applies the sampling rates of every requested profile and starts
// CPU profiling when enabled. Rates stay at their runtime defaults for
// profiles nobody asked for; block and mutex sampling are not free in a
// busy pipeline.
func (p *Profiler) Start() error {
	if p.HeapProfile != "" || p.AllocsProfile != "" {
		runtime.MemProfileRate = p.MemProfileRate
	}

	if p.BlockProfile != "" {
		runtime.SetBlockProfileRate(p.BlockProfileRate)
	}

	if p.MutexProfile != "" {
		runtime.SetMutexProfileFraction(p.MutexProfileFraction)
	}

	if p.CPUProfile != "" {
		f, err := os.Create(p.CPUProfile) //nolint:gosec // Profile path from CLI flag is expected.
		if err != nil {
			return fmt.Errorf("creating CPU profile: %w", err)
		}

		p.cpuFile = f

		err = pprof.StartCPUProfile(f)
		if err != nil {
			must(p.cpuFile.Close())

			p.cpuFile = nil

			return fmt.Errorf("starting CPU profile: %w", err)
		}
	}

	return nil
}

// Stop stops CPU profiling and writes all enabled snapshot profiles.
func (p *Profiler) Stop() error {
	if p.cpuFile != nil {
		pprof.StopCPUProfile()

		err := p.cpuFile.Close()
		if err != nil {
			return fmt.Errorf("closing CPU profile: %w", err)
		}
	}

	return p.writeSnapshots()
}

// writeSnapshots writes all enabled snapshot profiles (heap, allocs,
// goroutine, block, mutex).
func (p *Profiler) writeSnapshots() error {
	profiles := []struct {
		name string
		path string
	}{
		{"heap", p.HeapProfile},
		{"allocs", p.AllocsProfile},
		{"goroutine", p.GoroutineProfile},
		{"block", p.BlockProfile},
		{"mutex", p.MutexProfile},
	}

	for _, prof := range profiles {
		if prof.path == "" {
			continue
		}

		err := p.writeProfile(prof.name, prof.path)
		if err != nil {
			return fmt.Errorf("write %s profile: %w", prof.name, err)
		}
	}

	return nil
}

// writeProfile writes a named pprof profile to the given file path.
func (p *Profiler) writeProfile(name, path string) error {
	f, err := os.Create(path) //nolint:gosec // Profile path from CLI flag is expected.
	if err != nil {
		return fmt.Errorf("create %s profile: %w", name, err)
	}

	prof := pprof.Lookup(name)
	if prof == nil {
		must(f.Close())

		return fmt.Errorf("unknown profile: %s", name)
	}

	err = prof.WriteTo(f, 0)
	if err != nil {
		must(f.Close())

		return fmt.Errorf("write %s profile: %w", name, err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("write %s profile: %w", name, err)
	}

	return nil
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
