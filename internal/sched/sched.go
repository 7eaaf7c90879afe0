// Package sched is the scheduling core of the simulator: it decides which
// runnable process occupies each simulated CPU, reacting to events raised
// by the harness (a CPU going idle, a time-slice expiry, a process
// yielding for I/O, terminating, or waking from I/O).
//
// The core owns two shared structures: the ready queue, guarded by its
// own mutex and paired with a not-empty condition, and the running table
// mapping each CPU to its current process, guarded by a second mutex.
// The two locks are never held at the same time, and no lock is ever
// held across a call back into the harness.
package sched

import (
	"log/slog"
	"sync"

	"github.com/me/ossim/pkg/model"
)

// InfiniteSlice is the slice value passed to ContextSwitch when the
// policy sets no preemption timer.
const InfiniteSlice = -1

// Simulator is the outbound capability the core holds on the harness.
type Simulator interface {
	// CurrentTime returns the simulator tick. Monotonically
	// non-decreasing and safe to call from any goroutine.
	CurrentTime() model.Tick

	// ContextSwitch informs the harness which process to simulate next
	// on the CPU. A nil process idles the CPU. slice is the preemption
	// timer in ticks, or InfiniteSlice for none. Non-blocking; always
	// called with no scheduler lock held.
	ContextSwitch(cpuID int, p *model.Process, slice int)

	// ForcePreempt asks the harness to arrange a Preempt call on the
	// CPU's own thread. May be asynchronous. Always called with no
	// scheduler lock held.
	ForcePreempt(cpuID int)
}

// Config holds the scheduling parameters fixed at startup.
type Config struct {
	Policy    model.Policy
	CPUCount  int
	AgeWeight uint32     // PA: metric decay per tick of queue residence
	TimeSlice model.Tick // RR: quantum in ticks
}

// Scheduler coordinates the ready queue and the running table across the
// harness's CPU and I/O threads. All state lives here; there are no
// package-level globals.
type Scheduler struct {
	cfg    Config
	sim    Simulator
	logger *slog.Logger

	queueMu  sync.Mutex
	notEmpty *sync.Cond // signalled on every enqueue
	rq       readyQueue
	stopped  bool // guarded by queueMu

	tableMu sync.Mutex
	current []*model.Process // one cell per CPU; nil means idle
}

// New creates a Scheduler for the given configuration and harness.
func New(cfg Config, sim Simulator, logger *slog.Logger) *Scheduler {
	s := &Scheduler{
		cfg:     cfg,
		sim:     sim,
		logger:  logger.With("component", "sched", "policy", cfg.Policy),
		current: make([]*model.Process, cfg.CPUCount),
	}
	s.notEmpty = sync.NewCond(&s.queueMu)
	return s
}

// Config returns the scheduling parameters the core was built with.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// schedule runs the selector under the queue lock, publishes the result
// into the running table under its lock, marks the chosen process
// Running, and hands it to the harness with the policy's time slice.
// Invoked with no locks held.
func (s *Scheduler) schedule(cpuID int) {
	s.queueMu.Lock()
	next := s.selectNext()
	s.queueMu.Unlock()

	s.tableMu.Lock()
	s.current[cpuID] = next
	s.tableMu.Unlock()

	if next != nil {
		// Safe outside the lock: no other handler can observe this
		// process as ready or waiting; this schedule step owns it.
		next.State = model.StateRunning
	}

	slice := InfiniteSlice
	if s.cfg.Policy == model.PolicyRR {
		slice = int(s.cfg.TimeSlice)
	}

	if next != nil {
		s.logger.Debug("dispatch", "cpu", cpuID, "pid", next.PID, "slice", slice)
	} else {
		s.logger.Debug("dispatch idle", "cpu", cpuID)
	}
	s.sim.ContextSwitch(cpuID, next, slice)
}

// Idle blocks until the ready queue is non-empty, then schedules the
// CPU. Called by a CPU thread that has nothing to run; without the wait
// the CPU threads would spin. Returns false once the scheduler has been
// stopped, in which case nothing was scheduled.
func (s *Scheduler) Idle(cpuID int) bool {
	s.queueMu.Lock()
	for s.rq.isEmpty() && !s.stopped {
		s.notEmpty.Wait()
	}
	stopped := s.stopped
	s.queueMu.Unlock()

	if stopped {
		return false
	}
	s.schedule(cpuID)
	return true
}

// Preempt returns the CPU's current process to the ready queue and
// schedules a replacement. Fired by RR's timer and by the harness in
// response to ForcePreempt. The preempted process may be reselected
// immediately, notably under RR with an otherwise empty queue.
func (s *Scheduler) Preempt(cpuID int) {
	s.tableMu.Lock()
	p := s.current[cpuID]
	s.tableMu.Unlock()

	if p != nil {
		p.State = model.StateReady
		s.queueMu.Lock()
		s.rq.enqueue(p, s.sim.CurrentTime())
		s.notEmpty.Signal()
		s.queueMu.Unlock()
		s.logger.Debug("preempt", "cpu", cpuID, "pid", p.PID)
	}

	s.schedule(cpuID)
}

// Yield marks the CPU's current process Waiting and schedules a
// replacement. The waiting process is not enqueued; ownership passes to
// the harness, which holds it until its I/O completes. The running-table
// cell is handed off by the schedule step's overwrite rather than
// cleared here.
func (s *Scheduler) Yield(cpuID int) {
	s.tableMu.Lock()
	p := s.current[cpuID]
	s.tableMu.Unlock()

	if p != nil {
		p.State = model.StateWaiting
		s.logger.Debug("yield", "cpu", cpuID, "pid", p.PID)
	}

	s.schedule(cpuID)
}

// Terminate clears the CPU's current process, marks it Terminated, and
// schedules a replacement. A no-op transition on an already-idle cell.
func (s *Scheduler) Terminate(cpuID int) {
	s.tableMu.Lock()
	p := s.current[cpuID]
	s.current[cpuID] = nil
	s.tableMu.Unlock()

	if p != nil {
		p.State = model.StateTerminated
		s.logger.Debug("terminate", "cpu", cpuID, "pid", p.PID)
	}

	s.schedule(cpuID)
}

// WakeUp places a process whose I/O has completed (or a newly created
// one, on its first call) into the ready queue and signals any idle CPU.
// Under PA and SRTF it then probes the running table: if every CPU is
// busy and the waker beats the worst occupant, the harness is asked to
// preempt that occupant's CPU. The waker itself is never scheduled here;
// it is picked up by an idle CPU or by the preemption target.
func (s *Scheduler) WakeUp(p *model.Process) {
	p.State = model.StateReady

	s.queueMu.Lock()
	s.rq.enqueue(p, s.sim.CurrentTime())
	s.notEmpty.Signal()
	s.queueMu.Unlock()

	s.logger.Debug("wake up", "pid", p.PID)

	switch s.cfg.Policy {
	case model.PolicyPA:
		now := s.sim.CurrentTime()
		target, worst, ok := s.worstOccupant(func(q *model.Process) float64 {
			return s.PriorityWithAge(now, q)
		})
		if ok && s.PriorityWithAge(now, p) < worst {
			s.logger.Debug("force preempt", "cpu", target, "for_pid", p.PID)
			s.sim.ForcePreempt(target)
		}

	case model.PolicySRTF:
		target, worst, ok := s.worstOccupant(func(q *model.Process) float64 {
			return float64(q.TotalTimeRemaining)
		})
		if ok && float64(p.TotalTimeRemaining) < worst {
			s.logger.Debug("force preempt", "cpu", target, "for_pid", p.PID)
			s.sim.ForcePreempt(target)
		}
	}
	// RR relies on its timer; FCFS is non-preemptive.
}

// worstOccupant scans the running table under its lock and returns the
// CPU whose occupant has the largest metric, ties going to the first
// such cell. ok is false when any cell is idle; an idle CPU will pick
// the waker up on its own. The preemption decision itself happens with
// no lock held.
func (s *Scheduler) worstOccupant(metric func(*model.Process) float64) (cpuID int, worst float64, ok bool) {
	s.tableMu.Lock()
	defer s.tableMu.Unlock()

	for _, q := range s.current {
		if q == nil {
			return 0, 0, false
		}
	}

	cpuID = -1
	for i, q := range s.current {
		if m := metric(q); cpuID == -1 || m > worst {
			worst = m
			cpuID = i
		}
	}
	return cpuID, worst, true
}

// Stop wakes every CPU blocked in Idle so the harness's threads can
// exit. Idle returns false after Stop; no further scheduling happens.
func (s *Scheduler) Stop() {
	s.queueMu.Lock()
	s.stopped = true
	s.notEmpty.Broadcast()
	s.queueMu.Unlock()
	s.logger.Debug("stopped")
}
