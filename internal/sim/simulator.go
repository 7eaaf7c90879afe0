// Package sim is the simulator harness: it owns the simulated clock,
// drives one goroutine per CPU plus an I/O service goroutine, and calls
// into the scheduling core through its event handlers. The core calls
// back through the sched.Simulator capability this package implements.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/me/ossim/internal/report"
	"github.com/me/ossim/internal/sched"
	"github.com/me/ossim/pkg/model"
)

// Config holds harness configuration.
type Config struct {
	// TickDuration is the wall-clock length of one simulated tick.
	TickDuration time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{TickDuration: 10 * time.Millisecond}
}

// dispatchSlot is the per-CPU handoff written by ContextSwitch. Each
// slot is only ever written by the schedule step running on behalf of
// its own CPU's goroutine, so no lock is needed.
type dispatchSlot struct {
	proc  *model.Process
	slice int
}

// Simulator runs a workload to completion under the scheduling core.
type Simulator struct {
	cfg    Config
	clock  *Clock
	sched  *sched.Scheduler
	logger *slog.Logger

	procs    []*model.Process
	slots    []dispatchSlot
	preempts []atomic.Bool
	ioCh     chan *model.Process
	recorder *Recorder

	statsMu     sync.Mutex
	completions map[uint32]model.Tick

	remaining atomic.Int64
	allDone   chan struct{}
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// New wires a Simulator and its scheduling core together for the given
// workload. Process records are owned here for the whole run; the core
// only ever borrows them.
func New(cfg Config, schedCfg sched.Config, procs []*model.Process, logger *slog.Logger) *Simulator {
	s := &Simulator{
		cfg:         cfg,
		clock:       NewClock(),
		logger:      logger.With("component", "sim"),
		procs:       procs,
		slots:       make([]dispatchSlot, schedCfg.CPUCount),
		preempts:    make([]atomic.Bool, schedCfg.CPUCount),
		ioCh:        make(chan *model.Process, len(procs)),
		recorder:    NewRecorder(schedCfg.CPUCount),
		completions: make(map[uint32]model.Tick, len(procs)),
		allDone:     make(chan struct{}),
		stopCh:      make(chan struct{}),
	}
	s.sched = sched.New(schedCfg, s, logger)
	s.remaining.Store(int64(len(procs)))
	return s
}

// Scheduler exposes the core, for the monitor endpoint.
func (s *Simulator) Scheduler() *sched.Scheduler {
	return s.sched
}

// CurrentTime implements sched.Simulator.
func (s *Simulator) CurrentTime() model.Tick {
	return s.clock.Now()
}

// ContextSwitch implements sched.Simulator. Non-blocking: it stores the
// chosen process in the CPU's dispatch slot; the CPU goroutine picks it
// up when the event handler it invoked returns.
func (s *Simulator) ContextSwitch(cpuID int, p *model.Process, slice int) {
	s.slots[cpuID] = dispatchSlot{proc: p, slice: slice}
}

// ForcePreempt implements sched.Simulator. The flag is honored by the
// CPU's own goroutine at its next tick, which relays it as a Preempt
// call; running-table cells are never mutated from the waker's thread.
func (s *Simulator) ForcePreempt(cpuID int) {
	s.preempts[cpuID].Store(true)
}

// Run drives the simulation until every process has terminated or ctx
// is cancelled, then returns the collected statistics.
func (s *Simulator) Run(ctx context.Context) (*report.Results, error) {
	if len(s.procs) == 0 {
		return nil, fmt.Errorf("empty workload")
	}

	cfg := s.sched.Config()
	s.logger.Info("simulation starting",
		"policy", cfg.Policy, "cpus", cfg.CPUCount, "processes", len(s.procs))

	s.wg.Add(1)
	go s.clockLoop()
	s.wg.Add(1)
	go s.launcher()
	s.wg.Add(1)
	go s.ioLoop()
	for cpu := 0; cpu < cfg.CPUCount; cpu++ {
		s.wg.Add(1)
		go s.cpuLoop(cpu)
	}

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case <-s.allDone:
	}

	totalTicks := s.clock.Now()
	close(s.stopCh)
	s.clock.Stop()
	s.sched.Stop()
	s.wg.Wait()

	if runErr != nil {
		s.logger.Warn("simulation aborted", "error", runErr)
		return nil, runErr
	}

	s.logger.Info("simulation complete", "ticks", totalTicks)
	return s.results(totalTicks), nil
}

// clockLoop advances the simulated clock on a wall-clock cadence.
func (s *Simulator) clockLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.clock.Advance()
		}
	}
}

// launcher raises each process into the core at its arrival tick. The
// first WakeUp moves it New to Ready.
func (s *Simulator) launcher() {
	defer s.wg.Done()

	pending := make([]*model.Process, len(s.procs))
	copy(pending, s.procs)
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].ArrivalTime < pending[j].ArrivalTime
	})

	release := func(now model.Tick) {
		for len(pending) > 0 && pending[0].ArrivalTime <= now {
			p := pending[0]
			pending = pending[1:]
			s.logger.Debug("process arrives", "pid", p.PID, "name", p.Name, "tick", now)
			s.sched.WakeUp(p)
		}
	}

	release(s.clock.Now())
	for len(pending) > 0 {
		now, ok := s.clock.WaitTick()
		if !ok {
			return
		}
		release(now)
	}
}

// cpuLoop is one simulated CPU: it idles until dispatched, then
// simulates the process handed to it burst tick by burst tick.
func (s *Simulator) cpuLoop(id int) {
	defer s.wg.Done()

	for {
		d := s.slots[id]
		if d.proc == nil {
			if !s.sched.Idle(id) {
				return
			}
			continue
		}
		if !s.runBurst(id, d.proc, d.slice) {
			return
		}
	}
}

// runBurst simulates p on the CPU until its burst ends, its slice
// expires, or a forced preemption lands. It always leaves the CPU by
// invoking exactly one scheduler event handler, which refills the
// dispatch slot. Returns false when the clock stopped mid-burst.
func (s *Simulator) runBurst(id int, p *model.Process, slice int) bool {
	sliceLeft := slice

	for {
		now, ok := s.clock.WaitTick()
		if !ok {
			return false
		}

		if s.preempts[id].CompareAndSwap(true, false) {
			s.logger.Debug("forced preemption", "cpu", id, "pid", p.PID)
			s.sched.Preempt(id)
			return true
		}

		p.TimeInBurst--
		p.TotalTimeRemaining--
		// Tick n covers the interval ending at n; the grid is 0-based.
		s.recorder.Sample(now-1, id, p.PID)

		if p.TimeInBurst == 0 {
			p.PC++
			if p.PC >= len(p.Bursts) {
				s.recordCompletion(p, now)
				s.sched.Terminate(id)
				if s.remaining.Add(-1) == 0 {
					close(s.allDone)
				}
				return true
			}

			next := p.Bursts[p.PC]
			p.TimeInBurst = next.Ticks
			if next.Kind == model.BurstIO {
				s.sched.Yield(id)
				// Buffered to the workload size; never blocks the CPU.
				s.ioCh <- p
				return true
			}
		}

		if sliceLeft > 0 {
			sliceLeft--
			if sliceLeft == 0 {
				s.sched.Preempt(id)
				return true
			}
		}
	}
}

// ioLoop is the single simulated I/O device. Requests are serviced in
// FIFO order, one at a time; when a request completes the process is
// advanced to its next CPU burst and woken.
func (s *Simulator) ioLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case p := <-s.ioCh:
			for p.TimeInBurst > 0 {
				if _, ok := s.clock.WaitTick(); !ok {
					return
				}
				p.TimeInBurst--
				p.TotalTimeRemaining--
			}
			// Validated programs always resume with a CPU burst.
			p.PC++
			p.TimeInBurst = p.Bursts[p.PC].Ticks
			s.logger.Debug("io complete", "pid", p.PID)
			s.sched.WakeUp(p)
		}
	}
}

func (s *Simulator) recordCompletion(p *model.Process, now model.Tick) {
	s.statsMu.Lock()
	s.completions[p.PID] = now
	s.statsMu.Unlock()
	s.logger.Debug("process complete", "pid", p.PID, "tick", now)
}

// results assembles the final report from the workload, the recorded
// completion ticks, and the occupancy samples.
func (s *Simulator) results(totalTicks model.Tick) *report.Results {
	cfg := s.sched.Config()

	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	stats := make([]report.ProcessStat, 0, len(s.procs))
	for _, p := range s.procs {
		completion := s.completions[p.PID]
		service := p.TotalService()
		stat := report.ProcessStat{
			PID:        p.PID,
			Name:       p.Name,
			Priority:   p.Priority,
			Arrival:    p.ArrivalTime,
			Completion: completion,
			Service:    service,
		}
		if completion > p.ArrivalTime {
			stat.Turnaround = completion - p.ArrivalTime
		}
		if stat.Turnaround > service {
			stat.Waiting = stat.Turnaround - service
		}
		stats = append(stats, stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].PID < stats[j].PID })

	return &report.Results{
		Policy:     cfg.Policy,
		CPUCount:   cfg.CPUCount,
		TotalTicks: totalTicks,
		Processes:  stats,
		Timeline:   s.recorder.Timeline(totalTicks),
	}
}
