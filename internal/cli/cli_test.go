package cli

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/me/ossim/pkg/model"
)

func TestTimesliceTicks(t *testing.T) {
	tests := []struct {
		ms   int
		want model.Tick
	}{
		{100, 1},
		{250, 2},
		{1000, 10},
		{50, 1}, // positive input floors at one tick
		{99, 1},
		{0, 0},
	}

	for _, tt := range tests {
		if got := timesliceTicks(tt.ms); got != tt.want {
			t.Errorf("timesliceTicks(%d) = %d, want %d", tt.ms, got, tt.want)
		}
	}
}

func TestRejectsBadArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no arguments", nil},
		{"zero cpus", []string{"0"}},
		{"too many cpus", []string{"17"}},
		{"unparseable cpus", []string{"lots"}},
		{"rr without slice", []string{"2", "-r", "0"}},
		{"rr negative slice", []string{"2", "--round-robin=-200"}},
		{"two policies", []string{"2", "-s", "-p", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := NewRootCmd()
			root.SetArgs(tt.args)
			root.SetOut(io.Discard)
			root.SetErr(io.Discard)
			if err := root.Execute(); err == nil {
				t.Error("Execute accepted bad arguments")
			}
		})
	}
}

func TestRunWithWorkloadFile(t *testing.T) {
	content := `processes:
  - name: solo
    priority: 1
    arrival: 0
    bursts:
      - cpu: 2
`
	path := filepath.Join(t.TempDir(), "w.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	root := NewRootCmd()
	root.SetArgs([]string{"1", "--workload", path, "--tick", "1ms", "--stats-db", dbPath, "--log-level", "error"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("stats db was not created: %v", err)
	}
}

func TestRunRejectsBadWorkloadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("processes: [{name: x, bursts: [{io: 1}]}]"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	root := NewRootCmd()
	root.SetArgs([]string{"1", "--workload", path})
	if err := root.Execute(); err == nil {
		t.Error("Execute accepted an invalid workload")
	}
}
