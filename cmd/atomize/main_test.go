package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/iago/atomize-client/internal/domain"
	"github.com/iago/atomize-client/internal/poller"
)

func TestTerminalDisplaySkipsRepeatedLines(t *testing.T) {
	var out bytes.Buffer
	display := newTerminalDisplay(&out)
	step := "transcribe"

	running := domain.Job{ID: "abc", Status: domain.JobStatusRunning, CurrentStep: &step, Percent: 40, JobPath: "/jobs/abc"}
	display.ShowJob(poller.Snapshot{Job: running, Tick: 1})
	display.ShowJob(poller.Snapshot{Job: running, Tick: 2})
	display.ShowJob(poller.Snapshot{
		Job:         domain.Job{ID: "abc", Status: domain.JobStatusSucceeded, Percent: 100, JobPath: "/jobs/abc"},
		DownloadURL: "http://localhost:8000/api/jobs/abc/download",
		Tick:        3,
	})

	want := "Folder: /jobs/abc\n" +
		"running • transcribe • 40%\n" +
		"succeeded • waiting • 100%\n" +
		"Download: http://localhost:8000/api/jobs/abc/download\n"
	if out.String() != want {
		t.Fatalf("expected output\n%s\ngot\n%s", want, out.String())
	}
}

func TestTerminalDisplayFailure(t *testing.T) {
	var out bytes.Buffer
	display := newTerminalDisplay(&out)
	display.ShowFailure(domain.Job{ID: "abc", Status: domain.JobStatusFailed}, domain.JobFailure{JobID: "abc"})

	if out.String() != "failed • unknown error\n" {
		t.Fatalf("expected failure line, got %q", out.String())
	}
}

func TestFormatEvent(t *testing.T) {
	event := domain.JobEvent{
		Kind:       domain.JobEventStatus,
		JobID:      "abc",
		Status:     domain.JobStatusRunning,
		Percent:    40,
		OccurredAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if line := formatEvent(event); !strings.HasSuffix(line, "abc running • waiting • 40%") {
		t.Fatalf("unexpected status event line %q", line)
	}

	failed := domain.JobEvent{Kind: domain.JobEventFailed, JobID: "abc", Message: "OOM"}
	if line := formatEvent(failed); !strings.HasSuffix(line, "abc OOM") {
		t.Fatalf("unexpected failure event line %q", line)
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"frobnicate"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if !strings.Contains(stderr.String(), "unknown command") {
		t.Fatalf("expected usage on stderr, got %q", stderr.String())
	}
	if code := run(nil, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit code 2 without args, got %d", code)
	}
}

func TestSubmitRequiresFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"submit", "-client", "acme"}, &stdout, &stderr)
	if code != 1 || !strings.Contains(stderr.String(), "exactly one file") {
		t.Fatalf("expected missing file error, got code=%d stderr=%q", code, stderr.String())
	}
}

func TestHistoryWithoutDatabaseWarns(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"history"}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit code 0, got %d (%s)", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), memoryHistoryHint) {
		t.Fatalf("expected memory history hint on stderr, got %q", stderr.String())
	}
	if !strings.HasSuffix(stdout.String(), "0 of 0 jobs\n") {
		t.Fatalf("expected empty listing, got %q", stdout.String())
	}
}
