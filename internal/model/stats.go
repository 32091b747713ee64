package model

// Stats summarises a task list for the board header
type Stats struct {
	Total        int
	Todo         int
	InProgress   int
	Done         int
	TotalMinutes int
}

// ComputeStats counts tasks per status and sums logged time
func ComputeStats(tasks []Task) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case StatusTodo:
			s.Todo++
		case StatusInProgress:
			s.InProgress++
		case StatusDone:
			s.Done++
		}
		s.TotalMinutes += t.TotalMinutes
	}
	return s
}

// CompletionPercent returns the share of done tasks, 0 for an empty list
func (s Stats) CompletionPercent() int {
	if s.Total == 0 {
		return 0
	}
	return s.Done * 100 / s.Total
}
