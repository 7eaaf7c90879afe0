package sched

import "github.com/me/ossim/pkg/model"

// PriorityWithAge returns p's effective priority at the given tick: the
// static priority reduced by queue-residence time times the age weight.
// Smaller is more urgent.
//
//	priority − (now − enqueue_time) · age_weight
func (s *Scheduler) PriorityWithAge(now model.Tick, p *model.Process) float64 {
	return float64(p.Priority) - float64(now-p.EnqueueTime)*float64(s.cfg.AgeWeight)
}

// selectNext picks and removes the next process to run under the
// configured policy, or returns nil when the queue is empty. The caller
// holds the queue lock.
//
// Every policy except RR scans the whole queue: FCFS and SRTF because a
// wake-up can inject a better candidate anywhere, PA because the metric
// ages while a process sits in the queue. RR is plain FIFO, so selection
// specializes to a head dequeue. Unknown policies fall back to the head
// dequeue as well.
func (s *Scheduler) selectNext() *model.Process {
	switch s.cfg.Policy {
	case model.PolicyFCFS:
		return s.rq.extractBest(func(cand, best *model.Process) bool {
			return cand.ArrivalTime < best.ArrivalTime
		})

	case model.PolicyPA:
		now := s.sim.CurrentTime()
		return s.rq.extractBest(func(cand, best *model.Process) bool {
			cm := s.PriorityWithAge(now, cand)
			bm := s.PriorityWithAge(now, best)
			if cm < bm {
				return true
			}
			// Equal metrics resolve to the earlier arrival, which the
			// first-better-wins walk alone does not guarantee.
			return cm == bm && cand.ArrivalTime < best.ArrivalTime
		})

	case model.PolicySRTF:
		return s.rq.extractBest(func(cand, best *model.Process) bool {
			return cand.TotalTimeRemaining < best.TotalTimeRemaining
		})

	default:
		return s.rq.dequeue()
	}
}
