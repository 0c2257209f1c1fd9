package threadpool

import (
	"fmt"
	"strings"
)

// TaskPanic records a panic recovered from a task.
type TaskPanic struct {
	Value any
	Stack []byte
}

func (p *TaskPanic) Error() string {
	return fmt.Sprintf("task panicked: %v", p.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (p *TaskPanic) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}
	return nil
}

// TaskError is returned by Sync when one or more tasks panicked since the
// previous Sync.
type TaskError struct {
	Panics []*TaskPanic
}

func (e *TaskError) Error() string {
	if len(e.Panics) == 1 {
		return "threadpool: " + e.Panics[0].Error()
	}
	msgs := make([]string, len(e.Panics))
	for i, p := range e.Panics {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("threadpool: %d tasks panicked: %s", len(e.Panics), strings.Join(msgs, "; "))
}

func (e *TaskError) Unwrap() []error {
	errs := make([]error, len(e.Panics))
	for i, p := range e.Panics {
		errs[i] = p
	}
	return errs
}
