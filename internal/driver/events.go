package driver

import "time"

// Stage is one step of the per-file pipeline.
type Stage uint8

const (
	StageQueued Stage = iota
	StageDecode
	StageCheck
	StageLower
	StageValidate
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageQueued:
		return "queued"
	case StageDecode:
		return "decode"
	case StageCheck:
		return "check"
	case StageLower:
		return "lower"
	case StageValidate:
		return "validate"
	case StageDone:
		return "done"
	}
	return "unknown"
}

// Status is the outcome attached to a stage event.
type Status uint8

const (
	StatusWorking Status = iota
	StatusOK
	StatusError
	StatusCached
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusWorking:
		return "working"
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	case StatusCached:
		return "cached"
	case StatusSkipped:
		return "skipped"
	}
	return "unknown"
}

// Event reports progress of one file.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Elapsed time.Duration
}

// ProgressFunc receives events from every worker; it must be safe for
// concurrent use.
type ProgressFunc func(Event)
