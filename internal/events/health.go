package events

import "time"

// HealthWarningEvent reports an enabled task that has not run recently.
type HealthWarningEvent struct { //nolint:govet // fieldalignment: preserving logical field order
	TaskID    string
	Name      string
	Overdue   time.Duration
	Timestamp time.Time
}

// Kind implements Event.
func (HealthWarningEvent) Kind() Kind { return KindHealthWarning }

// NewHealthWarningEvent creates a health-warning event.
func NewHealthWarningEvent(taskID, name string, overdue time.Duration) HealthWarningEvent {
	return HealthWarningEvent{TaskID: taskID, Name: name, Overdue: overdue, Timestamp: time.Now()}
}
