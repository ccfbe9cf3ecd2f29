package render

import (
	"fmt"

	"github.com/iago/atomize-client/internal/domain"
)

const waitingStep = "waiting"

// StatusLine formats a job snapshot as "status • step • percent%".
func StatusLine(job domain.Job) string {
	step := job.Step()
	if step == "" {
		step = waitingStep
	}
	return fmt.Sprintf("%s • %s • %d%%", job.Status, step, job.ClampedPercent())
}

func FailureLine(job domain.Job) string {
	return fmt.Sprintf("%s • %s", domain.JobStatusFailed, job.FailureMessage())
}

func FolderLine(job domain.Job) string {
	return "Folder: " + job.JobPath
}
