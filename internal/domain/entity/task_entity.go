package entity

import "time"

// Task is a to-do item owned by exactly one user. UserID is a filter key, not
// a navigable reference.
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskPatch carries the optional fields of a partial update; nil means "keep".
type TaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// TaskSummary aggregates completion counts over a task list.
type TaskSummary struct {
	Total      int
	Completed  int
	Incomplete int
}

func Summarize(tasks []*Task) TaskSummary {
	s := TaskSummary{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		}
	}
	s.Incomplete = s.Total - s.Completed
	return s
}
