package events

import "time"

// TaskEventType represents the phase of a scheduled task run.
type TaskEventType string

// Task event type constants.
const (
	TaskEventStart    TaskEventType = "start"
	TaskEventComplete TaskEventType = "complete"
	TaskEventError    TaskEventType = "error"
)

// TaskEvent reports a scheduled task run.
type TaskEvent struct { //nolint:govet // fieldalignment: preserving logical field order
	TaskID    string
	Name      string
	Type      TaskEventType
	Timestamp time.Time

	// Optional fields
	Duration time.Duration // For Complete, Error
	Error    error         // For Error
}

// Kind implements Event.
func (e TaskEvent) Kind() Kind {
	switch e.Type {
	case TaskEventComplete:
		return KindTaskComplete
	case TaskEventError:
		return KindTaskError
	default:
		return KindTaskStart
	}
}

// NewTaskStartEvent creates a task start event.
func NewTaskStartEvent(taskID, name string) TaskEvent {
	return TaskEvent{TaskID: taskID, Name: name, Type: TaskEventStart, Timestamp: time.Now()}
}

// NewTaskCompleteEvent creates a task complete event.
func NewTaskCompleteEvent(taskID, name string, d time.Duration) TaskEvent {
	return TaskEvent{
		TaskID:    taskID,
		Name:      name,
		Type:      TaskEventComplete,
		Duration:  d,
		Timestamp: time.Now(),
	}
}

// NewTaskErrorEvent creates a task error event.
func NewTaskErrorEvent(taskID, name string, d time.Duration, err error) TaskEvent {
	return TaskEvent{
		TaskID:    taskID,
		Name:      name,
		Type:      TaskEventError,
		Duration:  d,
		Error:     err,
		Timestamp: time.Now(),
	}
}
