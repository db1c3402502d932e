package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Pipeline phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	FileID  string // File the update concerns, empty for batch phases
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	FetchFiles Phase = iota
	Decrypt
	Detect
	Crop
	Align
	Embed
	FileDone
	Cluster
	Persist
)

func (p Phase) String() string {
	switch p {
	case FetchFiles:
		return "fetch_files"
	case Decrypt:
		return "decrypt"
	case Detect:
		return "detect"
	case Crop:
		return "crop"
	case Align:
		return "align"
	case Embed:
		return "embed"
	case FileDone:
		return "file_done"
	case Cluster:
		return "cluster"
	case Persist:
		return "persist"
	default:
		return ""
	}
}

func fetchFilesUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFiles,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d files out of sync", total),
	}
}

func stageUpdate(phase Phase, fileID string, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		FileID:  fileID,
		Message: fmt.Sprintf("%s: %s", phase, fileID),
	}
}

func fileDoneUpdate(fileID string, step, total, faces int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FileDone,
		Step:    step,
		Total:   total,
		FileID:  fileID,
		Message: fmt.Sprintf("Synced %s (%d faces)", fileID, faces),
	}
}

func clusterUpdate(faces int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Cluster,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Clustering %d faces", faces),
	}
}

func persistUpdate(faces int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Persist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Persisting %d faces", faces),
	}
}
