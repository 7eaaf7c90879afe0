package model

// Policy identifies the scheduling discipline used to pick the next
// runnable process.
type Policy string

const (
	// PolicyFCFS runs processes in arrival order and never preempts.
	PolicyFCFS Policy = "FCFS"

	// PolicyRR is round robin: FIFO order with a fixed time slice.
	PolicyRR Policy = "RR"

	// PolicyPA is priority aging: static priority reduced by time spent
	// in the ready queue. Preempts on wake-up.
	PolicyPA Policy = "PA"

	// PolicySRTF is shortest remaining time first. Preempts on wake-up.
	PolicySRTF Policy = "SRTF"
)

// String returns the string representation of the policy.
func (p Policy) String() string {
	return string(p)
}

// Preemptive returns true if the policy ever removes a running process
// from its CPU before it yields or terminates.
func (p Policy) Preemptive() bool {
	switch p {
	case PolicyRR, PolicyPA, PolicySRTF:
		return true
	}
	return false
}
