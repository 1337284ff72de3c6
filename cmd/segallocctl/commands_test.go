package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joshuapare/segalloc/internal/trace"
)

func writeTrace(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.trace")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatalf("failed to write trace: %v", err)
	}
	return path
}

func TestInfoCommand(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	sizeFlag = "64KiB"
	classes = "coarse"
	policy = "first"

	out, err := captureOutput(t, runInfo)
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}

	var info LayoutInfo
	decodeJSON(t, out, &info)
	if info.SegmentBytes != 64*1024 {
		t.Errorf("SegmentBytes = %d, want %d", info.SegmentBytes, 64*1024)
	}
	if info.Policy != "first-fit" {
		t.Errorf("Policy = %q, want first-fit", info.Policy)
	}
	if info.MinBlockSize != 32 || info.HeaderSize != 16 {
		t.Errorf("unexpected layout: %+v", info)
	}
	if len(info.ClassBoundaries) == 0 || info.ClassBoundaries[0] != 95 {
		t.Errorf("unexpected class boundaries: %v", info.ClassBoundaries)
	}
}

func TestInfoCommand_Text(t *testing.T) {
	resetFlags(t)

	out, err := captureOutput(t, runInfo)
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	for _, want := range []string{"Block Layout", "1.0 MiB", "best-fit", "Balanced"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunCommand(t *testing.T) {
	tests := []struct {
		name    string
		trace   string
		policy  string
		size    string
		wantErr string
		wantOps int
		wantOOM int
	}{
		{
			name:    "round trip",
			trace:   "a 0 100\nr 0 1000\np 0 256\nv\nf 0\n",
			policy:  "best-fit",
			size:    "64KiB",
			wantOps: 5,
		},
		{
			name:    "exhaustion is counted",
			trace:   "a 0 100\na 1 5000\nf 1\nf 0\n",
			policy:  "first-fit",
			size:    "4KiB",
			wantOps: 4,
			wantOOM: 1,
		},
		{
			name:    "unknown id",
			trace:   "a 0 100\nf 3\n",
			policy:  "best-fit",
			size:    "4KiB",
			wantErr: "unknown block id",
			wantOps: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			jsonOut = true
			runValidateEach = true
			policy = tt.policy
			sizeFlag = tt.size
			path := writeTrace(t, tt.trace)

			out, err := captureOutput(t, func() error { return runRun([]string{path}) })
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("run failed: %v", err)
			}

			var report Report
			decodeJSON(t, out, &report)
			if report.Result.Ops != tt.wantOps {
				t.Errorf("Ops = %d, want %d", report.Result.Ops, tt.wantOps)
			}
			if report.Result.Failures != tt.wantOOM {
				t.Errorf("Failures = %d, want %d", report.Result.Failures, tt.wantOOM)
			}
			if !report.Valid {
				t.Errorf("heap should stay valid")
			}
			if report.Policy != tt.policy {
				t.Errorf("Policy = %q, want %q", report.Policy, tt.policy)
			}
		})
	}
}

func TestRunCommand_Text(t *testing.T) {
	resetFlags(t)
	verbose = true
	path := writeTrace(t, "a 0 100\nc 1 50\nf 0\nf 1\n")

	out, err := captureOutput(t, func() error { return runRun([]string{path}) })
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, want := range []string{"Replay:", "Allocations:   2", "Splits:", "Structure valid"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunCommand_Errors(t *testing.T) {
	resetFlags(t)

	if err := runRun([]string{filepath.Join(t.TempDir(), "missing.trace")}); err == nil {
		t.Error("expected error for missing trace")
	}

	path := writeTrace(t, "a 0 10\nq 1\n")
	err := runRun([]string{path})
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected syntax error on line 2, got %v", err)
	}

	path = writeTrace(t, "a 0 10\n")
	policy = "worst-fit"
	if err := runRun([]string{path}); err == nil {
		t.Error("expected error for unknown policy")
	}
	policy = "best-fit"
	classes = "tiny"
	if err := runRun([]string{path}); err == nil {
		t.Error("expected error for unknown size classes")
	}
	classes = "balanced"
	sizeFlag = "lots"
	if err := runRun([]string{path}); err == nil {
		t.Error("expected error for bad size")
	}
}

func TestStressCommand(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	sizeFlag = "256KiB"
	stressOps = 500
	stressMaxSize = "2KiB"
	stressSave = filepath.Join(t.TempDir(), "stress.trace")

	out, err := captureOutput(t, runStress)
	if err != nil {
		t.Fatalf("stress failed: %v", err)
	}
	var report Report
	decodeJSON(t, out, &report)
	if report.Result.Ops != 500 {
		t.Errorf("Ops = %d, want 500", report.Result.Ops)
	}

	f, err := os.Open(stressSave)
	if err != nil {
		t.Fatalf("saved trace missing: %v", err)
	}
	defer f.Close()
	tr, err := trace.Parse(f)
	if err != nil {
		t.Fatalf("saved trace does not parse: %v", err)
	}
	if len(tr.Ops) != 500 {
		t.Errorf("saved %d ops, want 500", len(tr.Ops))
	}

	stressOps = 0
	if err := runStress(); err == nil {
		t.Error("expected error for zero ops")
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"4096", 4096, false},
		{"64KiB", 65536, false},
		{"1MiB", 1 << 20, false},
		{"1MB", 1000000, false},
		{"0", 0, true},
		{"abc", 0, true},
		{"2TiB", 0, true},
	}
	for _, tt := range tests {
		got, err := parseSize(tt.in, "--size")
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSetupLogging(t *testing.T) {
	resetFlags(t)
	logFile = filepath.Join(t.TempDir(), "ctl.log")
	logLevel = "debug"

	if err := setupLogging(rootCmd, nil); err != nil {
		t.Fatalf("setupLogging failed: %v", err)
	}
	path := writeTrace(t, "a 0 10\nf 0\n")
	if _, err := captureOutput(t, func() error { return runRun([]string{path}) }); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if err := closeLog(); err != nil {
		t.Fatalf("close log: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	if !strings.Contains(string(data), "replay complete") {
		t.Errorf("log missing replay record:\n%s", data)
	}

	logLevel = "chatty"
	if err := setupLogging(rootCmd, nil); err == nil {
		t.Error("expected error for bad log level")
	}
}
