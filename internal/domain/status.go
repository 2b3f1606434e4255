package domain

import "fmt"

// ProcessingStatus is the lifecycle state of a report.
type ProcessingStatus string

const (
	StatusRaw        ProcessingStatus = "raw"
	StatusProcessing ProcessingStatus = "processing"
	StatusParsed     ProcessingStatus = "parsed"
	StatusError      ProcessingStatus = "error"
)

// validTransitions encodes raw -> processing -> parsed|error, with
// error -> processing allowed for explicit re-parsing.
var validTransitions = map[ProcessingStatus][]ProcessingStatus{
	StatusRaw:        {StatusProcessing},
	StatusProcessing: {StatusParsed, StatusError},
	StatusError:      {StatusProcessing},
	StatusParsed:     {StatusProcessing},
}

// CanTransitionTo reports whether moving to next is a legal step.
// A report never skips states and never regresses to raw.
func (s ProcessingStatus) CanTransitionTo(next ProcessingStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends a parse attempt.
func (s ProcessingStatus) IsTerminal() bool {
	return s == StatusParsed || s == StatusError
}

// ParseStatus validates a status string from storage or user input.
func ParseStatus(raw string) (ProcessingStatus, error) {
	switch ProcessingStatus(raw) {
	case StatusRaw, StatusProcessing, StatusParsed, StatusError:
		return ProcessingStatus(raw), nil
	}
	return "", fmt.Errorf("unknown processing status %q", raw)
}
