package domain

import "time"

// Checkpoint is the durable resume point of a thread: the complete state
// plus the node execution enters next. NextNode is empty after a terminal
// turn, meaning the next turn starts from the graph start. Saves replace
// the latest checkpoint; Version totally orders them per thread.
type Checkpoint struct {
	ThreadID string            `json:"thread_id"`
	Version  int64             `json:"version"`
	State    ConversationState `json:"state"`
	NextNode string            `json:"next_node,omitempty"`
	SavedAt  time.Time         `json:"saved_at"`
}
