package sim

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/me/ossim/internal/sched"
	"github.com/me/ossim/internal/workload"
	"github.com/me/ossim/pkg/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testWorkload is a small mixed workload: two CPU-and-I/O processes and
// one CPU-only process.
func testWorkload(t *testing.T) []*model.Process {
	t.Helper()
	spec := &workload.Spec{
		Processes: []workload.ProcessSpec{
			{Name: "alpha", Priority: 2, Arrival: 0, Bursts: []workload.BurstSpec{{CPU: 3}, {IO: 2}, {CPU: 2}}},
			{Name: "beta", Priority: 5, Arrival: 1, Bursts: []workload.BurstSpec{{CPU: 2}, {IO: 1}, {CPU: 1}}},
			{Name: "gamma", Priority: 0, Arrival: 2, Bursts: []workload.BurstSpec{{CPU: 4}}},
		},
	}
	if err := spec.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return spec.Build()
}

func runToCompletion(t *testing.T, schedCfg sched.Config, procs []*model.Process) *Simulator {
	t.Helper()

	s := New(Config{TickDuration: time.Millisecond}, schedCfg, procs, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results, err := s.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, p := range procs {
		if p.State != model.StateTerminated {
			t.Errorf("pid %d finished in state %s, want TERMINATED", p.PID, p.State)
		}
		if p.TotalTimeRemaining != 0 {
			t.Errorf("pid %d has %d ticks remaining after completion", p.PID, p.TotalTimeRemaining)
		}
	}
	if len(results.Processes) != len(procs) {
		t.Errorf("report covers %d processes, want %d", len(results.Processes), len(procs))
	}
	if len(results.Timeline) != schedCfg.CPUCount {
		t.Errorf("timeline has %d rows, want %d", len(results.Timeline), schedCfg.CPUCount)
	}
	for _, st := range results.Processes {
		if st.Completion == 0 {
			t.Errorf("pid %d has no completion tick", st.PID)
		}
		if st.Turnaround < st.Service {
			t.Errorf("pid %d turnaround %d below service %d", st.PID, st.Turnaround, st.Service)
		}
	}
	return s
}

func TestRunFCFS(t *testing.T) {
	procs := testWorkload(t)
	runToCompletion(t, sched.Config{Policy: model.PolicyFCFS, CPUCount: 1}, procs)
}

func TestRunRR(t *testing.T) {
	procs := testWorkload(t)
	runToCompletion(t, sched.Config{Policy: model.PolicyRR, CPUCount: 1, TimeSlice: 1}, procs)
}

func TestRunPA(t *testing.T) {
	procs := testWorkload(t)
	runToCompletion(t, sched.Config{Policy: model.PolicyPA, CPUCount: 2, AgeWeight: 1}, procs)
}

func TestRunSRTFMultiCPU(t *testing.T) {
	procs := testWorkload(t)
	runToCompletion(t, sched.Config{Policy: model.PolicySRTF, CPUCount: 2}, procs)
}

func TestRunGeneratedWorkload(t *testing.T) {
	procs := workload.Generate(6, 42)
	runToCompletion(t, sched.Config{Policy: model.PolicyRR, CPUCount: 4, TimeSlice: 2}, procs)
}

func TestRunHonorsContextCancel(t *testing.T) {
	procs := testWorkload(t)
	// A tick an hour long: the workload cannot finish before the cancel.
	s := New(Config{TickDuration: time.Hour}, sched.Config{Policy: model.PolicyFCFS, CPUCount: 1}, procs, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := s.Run(ctx); err != context.DeadlineExceeded {
		t.Errorf("Run = %v, want context.DeadlineExceeded", err)
	}
}

func TestRunEmptyWorkload(t *testing.T) {
	s := New(DefaultConfig(), sched.Config{Policy: model.PolicyFCFS, CPUCount: 1}, nil, testLogger())
	if _, err := s.Run(context.Background()); err == nil {
		t.Error("Run on empty workload must fail")
	}
}

func TestRecorderSampleAndTimeline(t *testing.T) {
	r := NewRecorder(2)
	r.Sample(0, 0, 7)
	r.Sample(1, 0, 7)
	r.Sample(3, 1, 9)

	tl := r.Timeline(4)
	if len(tl) != 2 {
		t.Fatalf("timeline rows = %d, want 2", len(tl))
	}
	want0 := []int64{7, 7, -1, -1}
	for i, v := range want0 {
		if tl[0][i] != v {
			t.Errorf("cpu0[%d] = %d, want %d", i, tl[0][i], v)
		}
	}
	if tl[1][3] != 9 || tl[1][0] != -1 {
		t.Errorf("cpu1 = %v, want idle except tick 3", tl[1])
	}
}
