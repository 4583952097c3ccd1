package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	PhaseStarted Type = iota + 1
	PhaseCompleted
	PhaseFailed
	IndexProgress
	PlanReady
	FileCopied
	FileSkipped
	FileDeleted
	FolderCreated
	FolderDeleted
	Retry
	Offline
	Online
)

var typeNames = [...]string{
	PhaseStarted:   "PhaseStarted",
	PhaseCompleted: "PhaseCompleted",
	PhaseFailed:    "PhaseFailed",
	IndexProgress:  "IndexProgress",
	PlanReady:      "PlanReady",
	FileCopied:     "FileCopied",
	FileSkipped:    "FileSkipped",
	FileDeleted:    "FileDeleted",
	FolderCreated:  "FolderCreated",
	FolderDeleted:  "FolderDeleted",
	Retry:          "Retry",
	Offline:        "Offline",
	Online:         "Online",
}

func (t Type) String() string {
	if int(t) < len(typeNames) && typeNames[t] != "" {
		return typeNames[t]
	}
	return "Unknown"
}

// Phase names a stage of the deployment pipeline.
type Phase string

const (
	PhaseBuild      Phase = "build"
	PhaseConnect    Phase = "connect"
	PhaseIndex      Phase = "index"
	PhasePlan       Phase = "plan"
	PhaseCopySafe   Phase = "copy-safe"
	PhaseOffline    Phase = "offline"
	PhaseCopyStatic Phase = "copy-static"
	PhaseCopy       Phase = "copy"
	PhaseFileCopies Phase = "file-copies"
	PhaseDelete     Phase = "delete"
	PhaseOnline     Phase = "online"
	PhaseDisconnect Phase = "disconnect"
)

// Event represents a single progress event from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Phase     Phase
	Path      string // relative comparable path
	Size      int64  // file size, or entry count for IndexProgress
	Total     int64  // planned operations (PlanReady)
	Attempt   int    // Retry only
	Error     error
	WorkerID  int
}
