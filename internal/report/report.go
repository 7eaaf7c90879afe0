// Package report turns a finished simulation into per-process
// statistics and a text Gantt chart. Output goes to stdout; logs stay
// on stderr.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/me/ossim/pkg/model"
)

// ProcessStat is the per-process outcome of a run. Turnaround is
// completion minus arrival; waiting is turnaround minus total service.
type ProcessStat struct {
	PID        uint32     `json:"pid"`
	Name       string     `json:"name"`
	Priority   uint32     `json:"priority"`
	Arrival    model.Tick `json:"arrival"`
	Completion model.Tick `json:"completion"`
	Turnaround model.Tick `json:"turnaround"`
	Waiting    model.Tick `json:"waiting"`
	Service    model.Tick `json:"service"`
}

// Results is everything a run produces.
type Results struct {
	Policy     model.Policy  `json:"policy"`
	CPUCount   int           `json:"cpu_count"`
	TotalTicks model.Tick    `json:"total_ticks"`
	Processes  []ProcessStat `json:"processes"`

	// Timeline is the per-CPU occupancy grid: Timeline[cpu][tick] holds
	// the running PID, or -1 for idle.
	Timeline [][]int64 `json:"-"`
}

// AvgTurnaround returns the mean turnaround time across all processes.
func (r *Results) AvgTurnaround() float64 {
	return r.avg(func(s ProcessStat) model.Tick { return s.Turnaround })
}

// AvgWaiting returns the mean waiting time across all processes.
func (r *Results) AvgWaiting() float64 {
	return r.avg(func(s ProcessStat) model.Tick { return s.Waiting })
}

func (r *Results) avg(field func(ProcessStat) model.Tick) float64 {
	if len(r.Processes) == 0 {
		return 0
	}
	var sum model.Tick
	for _, s := range r.Processes {
		sum += field(s)
	}
	return float64(sum) / float64(len(r.Processes))
}

// segment is a maximal run of identical occupancy on one CPU.
type segment struct {
	from, to model.Tick // inclusive tick range
	pid      int64      // -1 for idle
}

// segments compresses one CPU's timeline into runs.
func segments(row []int64) []segment {
	var segs []segment
	for tick, pid := range row {
		t := model.Tick(tick)
		if len(segs) > 0 && segs[len(segs)-1].pid == pid {
			segs[len(segs)-1].to = t
			continue
		}
		segs = append(segs, segment{from: t, to: t, pid: pid})
	}
	return segs
}

// WriteText renders the statistics table, the averages, and the Gantt
// chart.
func (r *Results) WriteText(w io.Writer) error {
	names := make(map[int64]string, len(r.Processes))
	for _, s := range r.Processes {
		names[int64(s.PID)] = s.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "policy %s, %d CPU(s), %d ticks\n\n", r.Policy, r.CPUCount, r.TotalTicks)

	fmt.Fprintf(&b, "%-6s %-12s %8s %8s %10s %10s %8s\n",
		"PID", "NAME", "ARRIVAL", "DONE", "TURNAROUND", "WAITING", "SERVICE")
	for _, s := range r.Processes {
		fmt.Fprintf(&b, "%-6d %-12s %8d %8d %10d %10d %8d\n",
			s.PID, s.Name, s.Arrival, s.Completion, s.Turnaround, s.Waiting, s.Service)
	}
	fmt.Fprintf(&b, "\navg turnaround %.2f ticks, avg waiting %.2f ticks\n", r.AvgTurnaround(), r.AvgWaiting())

	if len(r.Timeline) > 0 {
		b.WriteString("\n")
		for cpu, row := range r.Timeline {
			fmt.Fprintf(&b, "CPU %d:", cpu)
			for _, seg := range segments(row) {
				label := "idle"
				if seg.pid >= 0 {
					label = names[seg.pid]
					if label == "" {
						label = fmt.Sprintf("pid%d", seg.pid)
					}
				}
				fmt.Fprintf(&b, " [%d-%d %s]", seg.from, seg.to, label)
			}
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
