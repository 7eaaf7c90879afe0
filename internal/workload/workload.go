// Package workload loads the set of processes a simulation runs: either
// a declarative YAML file or a seeded random workload.
package workload

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/me/ossim/pkg/model"
	"gopkg.in/yaml.v3"
)

// BurstSpec is one burst in a process's program. Exactly one of CPU and
// IO must be non-zero.
type BurstSpec struct {
	CPU uint64 `yaml:"cpu,omitempty"`
	IO  uint64 `yaml:"io,omitempty"`
}

// ProcessSpec describes one process in a workload file.
type ProcessSpec struct {
	Name     string      `yaml:"name"`
	Priority uint32      `yaml:"priority"`
	Arrival  uint64      `yaml:"arrival"`
	Bursts   []BurstSpec `yaml:"bursts"`
}

// Spec is the root of a workload file.
type Spec struct {
	Processes []ProcessSpec `yaml:"processes"`
}

// Load reads and validates a workload file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workload: %w", err)
	}

	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse workload %s: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("workload %s: %w", path, err)
	}
	return &spec, nil
}

// Validate checks the structural rules a program must satisfy: at least
// one process, every burst exactly one of cpu/io with a positive
// length, bursts strictly alternating, and the first and last burst on
// the CPU (a process is created on a CPU and terminates on one).
func (s *Spec) Validate() error {
	if len(s.Processes) == 0 {
		return fmt.Errorf("no processes defined")
	}

	for i, p := range s.Processes {
		if p.Name == "" {
			return fmt.Errorf("process %d: missing name", i)
		}
		if len(p.Bursts) == 0 {
			return fmt.Errorf("process %q: no bursts", p.Name)
		}

		var prev model.BurstKind
		for j, b := range p.Bursts {
			kind, ticks, err := b.kind()
			if err != nil {
				return fmt.Errorf("process %q burst %d: %w", p.Name, j, err)
			}
			if ticks == 0 {
				return fmt.Errorf("process %q burst %d: zero length", p.Name, j)
			}
			if j == 0 && kind != model.BurstCPU {
				return fmt.Errorf("process %q: first burst must be cpu", p.Name)
			}
			if j > 0 && kind == prev {
				return fmt.Errorf("process %q burst %d: consecutive %s bursts", p.Name, j, kind)
			}
			prev = kind
		}
		if prev != model.BurstCPU {
			return fmt.Errorf("process %q: last burst must be cpu", p.Name)
		}
	}
	return nil
}

func (b BurstSpec) kind() (model.BurstKind, uint64, error) {
	switch {
	case b.CPU > 0 && b.IO > 0:
		return "", 0, fmt.Errorf("both cpu and io set")
	case b.CPU > 0:
		return model.BurstCPU, b.CPU, nil
	case b.IO > 0:
		return model.BurstIO, b.IO, nil
	default:
		return "", 0, fmt.Errorf("neither cpu nor io set")
	}
}

// Build turns a validated spec into process records ready for the
// simulator: PIDs assigned in file order, state New, program counter on
// the first burst with its length loaded.
func (s *Spec) Build() []*model.Process {
	procs := make([]*model.Process, 0, len(s.Processes))
	for i, ps := range s.Processes {
		bursts := make([]model.Burst, len(ps.Bursts))
		var total model.Tick
		for j, b := range ps.Bursts {
			kind, ticks, _ := b.kind()
			bursts[j] = model.Burst{Kind: kind, Ticks: model.Tick(ticks)}
			total += model.Tick(ticks)
		}

		procs = append(procs, &model.Process{
			PID:                uint32(i),
			Name:               ps.Name,
			Priority:           ps.Priority,
			ArrivalTime:        model.Tick(ps.Arrival),
			TotalTimeRemaining: total,
			TimeInBurst:        bursts[0].Ticks,
			State:              model.StateNew,
			Bursts:             bursts,
		})
	}
	return procs
}

// Generate produces a random but well-formed workload of n processes
// from the given seed: staggered arrivals, priorities in [0,10), and
// one to four cpu/io burst pairs per process.
func Generate(n int, seed int64) []*model.Process {
	rng := rand.New(rand.NewSource(seed))

	spec := Spec{Processes: make([]ProcessSpec, 0, n)}
	for i := 0; i < n; i++ {
		pairs := 1 + rng.Intn(4)
		bursts := make([]BurstSpec, 0, 2*pairs+1)
		for j := 0; j < pairs; j++ {
			bursts = append(bursts, BurstSpec{CPU: uint64(1 + rng.Intn(8))})
			bursts = append(bursts, BurstSpec{IO: uint64(1 + rng.Intn(5))})
		}
		bursts = append(bursts, BurstSpec{CPU: uint64(1 + rng.Intn(8))})

		spec.Processes = append(spec.Processes, ProcessSpec{
			Name:     fmt.Sprintf("proc%d", i),
			Priority: uint32(rng.Intn(10)),
			Arrival:  uint64(rng.Intn(3 * n)),
			Bursts:   bursts,
		})
	}
	return spec.Build()
}
