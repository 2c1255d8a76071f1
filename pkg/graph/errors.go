package graph

import "fmt"

// StepLimitError is returned by Executor.Run when a run exceeds its step
// ceiling. It is the one fatal condition the executor itself raises: it
// aborts the run instead of being appended to the state's error log.
type StepLimitError struct {
	Graph string
	Node  string // node the cursor pointed at when the ceiling was hit
	Limit int
}

func (e *StepLimitError) Error() string {
	return fmt.Sprintf("graph %q: step limit %d exceeded at node %q", e.Graph, e.Limit, e.Node)
}
