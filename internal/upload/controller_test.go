package upload

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iago/atomize-client/internal/api"
	"github.com/iago/atomize-client/internal/domain"
	"github.com/rs/zerolog"
)

type recordingListener struct {
	mu     sync.Mutex
	events []string
	pcts   []int
}

func (l *recordingListener) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *recordingListener) OnBusy(*Session) { l.add("busy") }
func (l *recordingListener) OnProgress(_ *Session, percent int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, "progress")
	l.pcts = append(l.pcts, percent)
}
func (l *recordingListener) OnSucceeded(*Session, domain.JobCreated) { l.add("succeeded") }
func (l *recordingListener) OnFailed(*Session, error)                { l.add("failed") }
func (l *recordingListener) OnCanceled(*Session)                     { l.add("canceled") }

func (l *recordingListener) snapshot() ([]string, []int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...), append([]int(nil), l.pcts...)
}

func (l *recordingListener) count(event string) int {
	events, _ := l.snapshot()
	total := 0
	for _, item := range events {
		if item == event {
			total++
		}
	}
	return total
}

type transportFunc func(ctx context.Context, form api.Form, onProgress api.ProgressFunc) (domain.JobCreated, error)

func (f transportFunc) CreateJob(ctx context.Context, form api.Form, onProgress api.ProgressFunc) (domain.JobCreated, error) {
	return f(ctx, form, onProgress)
}

func testForm(name string) api.Form {
	return api.Form{
		Files: []api.FilePart{api.ReaderPart("file", name, 5, strings.NewReader("hello"))},
	}
}

func TestSubmitSuccessSettlesOnce(t *testing.T) {
	listener := &recordingListener{}
	transport := transportFunc(func(_ context.Context, _ api.Form, onProgress api.ProgressFunc) (domain.JobCreated, error) {
		onProgress(50, 100)
		onProgress(100, 100)
		return domain.JobCreated{ID: "abc"}, nil
	})
	controller := NewController(transport, listener, zerolog.Nop(), Config{})

	result, err := controller.Submit(context.Background(), testForm("talk.mp4"))
	if err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if result.JobID != "abc" {
		t.Fatalf("expected job id abc, got %q", result.JobID)
	}
	if controller.Cancel() {
		t.Fatalf("expected cancel after completion to be a no-op")
	}

	events, pcts := listener.snapshot()
	want := []string{"busy", "progress", "progress", "succeeded"}
	if strings.Join(events, ",") != strings.Join(want, ",") {
		t.Fatalf("expected events %v, got %v", want, events)
	}
	if pcts[0] != 50 || pcts[1] != 100 {
		t.Fatalf("unexpected percents %v", pcts)
	}
	if state := controller.State(); state != StateSucceeded || !state.Resubmittable() {
		t.Fatalf("expected resubmittable succeeded state, got %s", state)
	}
}

func TestSubmitRejectionSurfacesOneError(t *testing.T) {
	listener := &recordingListener{}
	transport := transportFunc(func(context.Context, api.Form, api.ProgressFunc) (domain.JobCreated, error) {
		return domain.JobCreated{}, &api.ServerRejection{StatusCode: 400, Message: "Unsupported file type."}
	})
	controller := NewController(transport, listener, zerolog.Nop(), Config{})

	_, err := controller.Submit(context.Background(), testForm("talk.mp4"))
	var rejection *api.ServerRejection
	if !errors.As(err, &rejection) || rejection.Message != "Unsupported file type." {
		t.Fatalf("expected server rejection with body text, got %v", err)
	}
	if listener.count("failed") != 1 || listener.count("succeeded") != 0 || listener.count("canceled") != 0 {
		t.Fatalf("expected exactly one failure event, got %v", listener.events)
	}
	if !controller.State().Resubmittable() {
		t.Fatalf("expected controller to accept a new submission")
	}
	if controller.Cancel() {
		t.Fatalf("expected cancel after error to be a no-op")
	}
}

func TestCancelStopsFurtherCallbacks(t *testing.T) {
	listener := &recordingListener{}
	started := make(chan struct{})
	transport := transportFunc(func(ctx context.Context, _ api.Form, onProgress api.ProgressFunc) (domain.JobCreated, error) {
		onProgress(10, 100)
		close(started)
		<-ctx.Done()
		onProgress(90, 100)
		return domain.JobCreated{}, &api.TransportError{Op: "create job", Err: ctx.Err()}
	})
	controller := NewController(transport, listener, zerolog.Nop(), Config{})

	done := make(chan error, 1)
	go func() {
		_, err := controller.Submit(context.Background(), testForm("talk.mp4"))
		done <- err
	}()

	<-started
	if !controller.Cancel() {
		t.Fatalf("expected in-flight cancel to take effect")
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrCanceled) {
			t.Fatalf("expected ErrCanceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("submit did not return after cancel")
	}

	events, pcts := listener.snapshot()
	want := []string{"busy", "progress", "canceled"}
	if strings.Join(events, ",") != strings.Join(want, ",") {
		t.Fatalf("expected events %v, got %v", want, events)
	}
	if len(pcts) != 1 || pcts[0] != 10 {
		t.Fatalf("expected no progress after cancel, got %v", pcts)
	}
	if controller.Cancel() {
		t.Fatalf("expected second cancel to be a no-op")
	}
}

func TestNewSubmissionAbandonsPreviousSession(t *testing.T) {
	listener := &recordingListener{}
	releaseFirst := make(chan struct{})
	firstStarted := make(chan struct{})
	secondStarted := make(chan struct{})

	transport := transportFunc(func(ctx context.Context, form api.Form, _ api.ProgressFunc) (domain.JobCreated, error) {
		if form.Files[0].FileName == "first.mp4" {
			close(firstStarted)
			select {
			case <-releaseFirst:
				return domain.JobCreated{ID: "first"}, nil
			case <-ctx.Done():
				return domain.JobCreated{}, ctx.Err()
			}
		}
		close(secondStarted)
		<-ctx.Done()
		return domain.JobCreated{}, ctx.Err()
	})
	controller := NewController(transport, listener, zerolog.Nop(), Config{})

	firstDone := make(chan error, 1)
	go func() {
		_, err := controller.Submit(context.Background(), testForm("first.mp4"))
		firstDone <- err
	}()
	<-firstStarted
	first := controller.Current()

	secondDone := make(chan error, 1)
	go func() {
		_, err := controller.Submit(context.Background(), testForm("second.mp4"))
		secondDone <- err
	}()
	<-secondStarted

	if !controller.Cancel() {
		t.Fatalf("expected cancel of the current session")
	}
	if err := <-secondDone; !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected second session canceled, got %v", err)
	}
	if first.State() != StateBusy {
		t.Fatalf("expected superseded session to keep running, got %s", first.State())
	}

	close(releaseFirst)
	if err := <-firstDone; err != nil {
		t.Fatalf("expected abandoned session to complete normally, got %v", err)
	}
	if first.JobID() != "first" {
		t.Fatalf("expected first session job id, got %q", first.JobID())
	}
}

func TestSubmitValidatesBeforeTransport(t *testing.T) {
	listener := &recordingListener{}
	called := false
	transport := transportFunc(func(context.Context, api.Form, api.ProgressFunc) (domain.JobCreated, error) {
		called = true
		return domain.JobCreated{ID: "abc"}, nil
	})
	controller := NewController(transport, listener, zerolog.Nop(), Config{MaxBytes: 4})

	if _, err := controller.Submit(context.Background(), testForm("notes.pdf")); !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}
	if _, err := controller.Submit(context.Background(), testForm("notes.txt")); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, err := controller.Submit(context.Background(), api.Form{}); !errors.Is(err, ErrNoFile) {
		t.Fatalf("expected ErrNoFile, got %v", err)
	}
	if called {
		t.Fatalf("expected transport not to be called for invalid forms")
	}
	if listener.count("failed") != 3 {
		t.Fatalf("expected one failure per submission, got %v", listener.events)
	}
}

func TestUncomputableProgressDoesNotAdvance(t *testing.T) {
	listener := &recordingListener{}
	transport := transportFunc(func(_ context.Context, _ api.Form, onProgress api.ProgressFunc) (domain.JobCreated, error) {
		onProgress(10, -1)
		onProgress(20, 0)
		return domain.JobCreated{ID: "abc"}, nil
	})
	controller := NewController(transport, listener, zerolog.Nop(), Config{})

	if _, err := controller.Submit(context.Background(), testForm("talk.mp4")); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if listener.count("progress") != 0 {
		t.Fatalf("expected no progress events, got %v", listener.events)
	}
	if controller.Current().Percent() != 0 {
		t.Fatalf("expected percent to stay at 0, got %d", controller.Current().Percent())
	}
}

func TestPercent(t *testing.T) {
	cases := []struct {
		loaded, total int64
		want          int
		ok            bool
	}{
		{loaded: 50, total: 100, want: 50, ok: true},
		{loaded: 1, total: 3, want: 33, ok: true},
		{loaded: 2, total: 3, want: 67, ok: true},
		{loaded: 150, total: 100, want: 100, ok: true},
		{loaded: 10, total: 0, ok: false},
		{loaded: 10, total: -1, ok: false},
	}
	for _, tc := range cases {
		got, ok := Percent(tc.loaded, tc.total)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("Percent(%d,%d) = %d,%v; expected %d,%v", tc.loaded, tc.total, got, ok, tc.want, tc.ok)
		}
	}
}
