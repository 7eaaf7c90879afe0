package sched

import "github.com/me/ossim/pkg/model"

// CPUCell describes one running-table cell in a snapshot. PID is nil
// when the CPU is idle.
type CPUCell struct {
	CPU  int     `json:"cpu"`
	PID  *uint32 `json:"pid"`
	Name string  `json:"name,omitempty"`
}

// Snapshot is a point-in-time view of the scheduler for the monitor
// endpoint and for tests. The queue and the table are captured under
// their own locks, taken one after the other, so each half is
// internally consistent.
type Snapshot struct {
	Tick  model.Tick `json:"tick"`
	CPUs  []CPUCell  `json:"cpus"`
	Ready []uint32   `json:"ready"`
}

// Snapshot captures the current tick, the running table, and the PIDs
// linked in the ready queue in queue order.
func (s *Scheduler) Snapshot() Snapshot {
	snap := Snapshot{
		Tick:  s.sim.CurrentTime(),
		Ready: []uint32{},
	}

	s.queueMu.Lock()
	for p := s.rq.head; p != nil; p = p.Next {
		snap.Ready = append(snap.Ready, p.PID)
	}
	s.queueMu.Unlock()

	s.tableMu.Lock()
	snap.CPUs = make([]CPUCell, len(s.current))
	for i, p := range s.current {
		snap.CPUs[i] = CPUCell{CPU: i}
		if p != nil {
			pid := p.PID
			snap.CPUs[i].PID = &pid
			snap.CPUs[i].Name = p.Name
		}
	}
	s.tableMu.Unlock()

	return snap
}
