package sim

import (
	"sync"

	"github.com/me/ossim/pkg/model"
)

// Recorder samples per-CPU occupancy once per simulated tick, feeding
// the Gantt chart in the final report.
type Recorder struct {
	mu    sync.Mutex
	cells [][]int64 // cells[cpu][tick] = pid, -1 for idle
}

// NewRecorder creates a recorder for the given CPU count.
func NewRecorder(cpuCount int) *Recorder {
	return &Recorder{cells: make([][]int64, cpuCount)}
}

// Sample records that pid occupied the CPU during the given tick.
// Unsampled ticks read back as idle.
func (r *Recorder) Sample(tick model.Tick, cpuID int, pid uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.cells[cpuID]
	for model.Tick(len(row)) <= tick {
		row = append(row, -1)
	}
	row[tick] = int64(pid)
	r.cells[cpuID] = row
}

// Timeline returns a copy of the occupancy grid padded out to
// totalTicks columns per CPU.
func (r *Recorder) Timeline(totalTicks model.Tick) [][]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]int64, len(r.cells))
	for cpu, row := range r.cells {
		padded := make([]int64, totalTicks)
		for i := range padded {
			padded[i] = -1
		}
		copy(padded, row)
		out[cpu] = padded
	}
	return out
}
