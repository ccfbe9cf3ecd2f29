package domain

import (
	"encoding/json"
	"testing"
)

func TestPosterGroupsKeepPayloadOrder(t *testing.T) {
	var groups PosterGroups
	payload := `{"zeta":[{"url":"/z.png","name":"z"}],"alpha":[{"url":"/a.png","name":"a"}],"zeta":[{"url":"/z2.png","name":"z2"}]}`
	if err := json.Unmarshal([]byte(payload), &groups); err != nil {
		t.Fatalf("decode posters: %v", err)
	}
	if len(groups) != 2 || groups[0].Name != "zeta" || groups[1].Name != "alpha" {
		t.Fatalf("expected zeta then alpha, got %+v", groups)
	}
	if groups[0].Assets[0].Name != "z2" {
		t.Fatalf("expected duplicate key to replace the group in place, got %+v", groups[0].Assets)
	}

	encoded, err := json.Marshal(groups)
	if err != nil {
		t.Fatalf("encode posters: %v", err)
	}
	if string(encoded) != `{"zeta":[{"url":"/z2.png","name":"z2"}],"alpha":[{"url":"/a.png","name":"a"}]}` {
		t.Fatalf("unexpected encoding %s", encoded)
	}
}

func TestItemID(t *testing.T) {
	cases := map[string]string{
		`{"id":"li-1"}`:   "li-1",
		`{"id":42}`:       "42",
		`{"text":"x"}`:    "",
		`"plain"`:         "",
		`{"id":true}`:     "true",
		`{"id":false}`:    "",
		`{"id":null}`:     "",
		`{"id":{"k": 1}}`: `{"k":1}`,
		`{"id":[1, 2]}`:   "[1,2]",
	}
	for raw, want := range cases {
		if got := NewItem(json.RawMessage(raw)).ID(); got != want {
			t.Fatalf("ID(%s): expected %q, got %q", raw, want, got)
		}
	}
}

func TestJobHelpers(t *testing.T) {
	empty := "  "
	job := Job{Status: JobStatusFailed, Error: &empty, Percent: -5}
	if job.FailureMessage() != UnknownErrorMessage {
		t.Fatalf("expected fallback message, got %q", job.FailureMessage())
	}
	if job.ClampedPercent() != 0 {
		t.Fatalf("expected clamped percent 0, got %d", job.ClampedPercent())
	}
	if !JobStatusSucceeded.Terminal() || JobStatusRunning.Terminal() {
		t.Fatalf("unexpected terminal classification")
	}
	if JobStatus("paused").Valid() {
		t.Fatalf("expected unknown status to be invalid")
	}
}

func TestUploadOptions(t *testing.T) {
	if !AllowedUpload("Talk.MP4") || AllowedUpload("notes.pdf") || AllowedUpload("noext") {
		t.Fatalf("unexpected extension check")
	}

	fields := DefaultJobOptions().Fields()
	if fields[0].Name != "client" || len(fields) != 20 {
		t.Fatalf("unexpected fields %+v", fields)
	}
	values := map[string]string{}
	for _, field := range fields {
		values[field.Name] = field.Value
	}
	if values["temperature"] != "0.3" || values["linkedin_count"] != "20" || values["ai_posters"] != "false" {
		t.Fatalf("unexpected default values %v", values)
	}
}
