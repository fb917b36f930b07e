package domain

import "time"

// Stats summarises a board.
type Stats struct {
	Total      int `json:"total"`
	Todo       int `json:"todo"`
	InProgress int `json:"in_progress"`
	Review     int `json:"review"`
	Done       int `json:"done"`
	Overdue    int `json:"overdue"`
}

// ComputeStats counts tasks by status and overdue state as of now.
func ComputeStats(tasks []Task, now time.Time) Stats {
	var s Stats
	for _, t := range tasks {
		s.Total++
		st, _ := ParseStatus(string(t.Status))
		switch st {
		case StatusTodo:
			s.Todo++
		case StatusInProgress:
			s.InProgress++
		case StatusReview:
			s.Review++
		case StatusDone:
			s.Done++
		}
		if t.Overdue(now) {
			s.Overdue++
		}
	}
	return s
}
