package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/iago/atomize-client/internal/domain"
	"github.com/iago/atomize-client/internal/poller"
	"github.com/iago/atomize-client/internal/render"
	"github.com/iago/atomize-client/internal/upload"
)

// terminalDisplay prints status changes. Repeated identical snapshots are
// not reprinted.
type terminalDisplay struct {
	out io.Writer

	lastStatus string
	lastFolder string
}

func newTerminalDisplay(out io.Writer) *terminalDisplay {
	return &terminalDisplay{out: out}
}

func (d *terminalDisplay) ShowJob(snapshot poller.Snapshot) {
	if folder := render.FolderLine(snapshot.Job); snapshot.Job.JobPath != "" && folder != d.lastFolder {
		d.lastFolder = folder
		fmt.Fprintln(d.out, folder)
	}
	if line := render.StatusLine(snapshot.Job); line != d.lastStatus {
		d.lastStatus = line
		fmt.Fprintln(d.out, line)
	}
	if snapshot.Job.Status == domain.JobStatusSucceeded {
		fmt.Fprintf(d.out, "Download: %s\n", snapshot.DownloadURL)
	}
}

func (d *terminalDisplay) ShowFailure(job domain.Job, _ domain.JobFailure) {
	line := render.FailureLine(job)
	d.lastStatus = line
	fmt.Fprintln(d.out, line)
}

// progressPrinter reports upload progress on one rewritten line.
type progressPrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out}
}

func (p *progressPrinter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *progressPrinter) OnBusy(*upload.Session) {
	p.printf("uploading...\n")
}

func (p *progressPrinter) OnProgress(_ *upload.Session, percent int) {
	p.printf("\rupload %3d%%", percent)
}

func (p *progressPrinter) OnSucceeded(_ *upload.Session, created domain.JobCreated) {
	p.printf("\njob %s created\n", created.ID)
}

func (p *progressPrinter) OnFailed(*upload.Session, error) {
	p.printf("\n")
}

func (p *progressPrinter) OnCanceled(*upload.Session) {
	p.printf("\nupload canceled\n")
}

func formatEvent(event domain.JobEvent) string {
	line := fmt.Sprintf("%s %-15s %s", event.OccurredAt.Local().Format(time.DateTime), event.Kind, event.JobID)
	switch {
	case event.Kind == domain.JobEventStatus || event.Kind == domain.JobEventSucceeded:
		step := event.Step
		if step == "" {
			step = "waiting"
		}
		line += fmt.Sprintf(" %s • %s • %d%%", event.Status, step, event.Percent)
	case event.Message != "":
		line += " " + event.Message
	}
	return line
}
