package tasks

import (
	"fmt"

	"github.com/desertthunder/praghad/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Err     error  // Set when this step failed
}

// Operation phase enumeration
type Phase int

const (
	ImportTracks Phase = iota
	CheckFiles
	Done
)

func (p Phase) String() string {
	switch p {
	case ImportTracks:
		return "import_tracks"
	case CheckFiles:
		return "check_files"
	case Done:
		return "done"
	default:
		return ""
	}
}

func importingUpdate(step, total int, t *models.Track, err error) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] added %s", step, total, t.Filename)
	if err != nil {
		msg = fmt.Sprintf("[%d/%d] skipped %s: %v", step, total, t.Filename, err)
	}
	return ProgressUpdate{Phase: ImportTracks, Step: step, Total: total, Message: msg, Err: err}
}

func checkingUpdate(step, total int, t *models.Track, err error) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ok %d", step, total, t.ID)
	if err != nil {
		msg = fmt.Sprintf("[%d/%d] missing %d %s", step, total, t.ID, t.Filename)
	}
	return ProgressUpdate{Phase: CheckFiles, Step: step, Total: total, Message: msg, Err: err}
}

func doneUpdate(ok, failed int) ProgressUpdate {
	return ProgressUpdate{Phase: Done, Step: ok, Total: ok + failed, Message: fmt.Sprintf("%d ok, %d failed", ok, failed)}
}
