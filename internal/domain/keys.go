package domain

import "fmt"

const (
	CheckpointPrefix = "checkpoint:"

	// ThreadIDSeparator joins user and session into a thread id. User ids
	// must not contain it or distinct (user, session) pairs could alias.
	ThreadIDSeparator = ":"
)

// CheckpointKey builds the canonical store key for a thread's checkpoint
func CheckpointKey(threadID string) string {
	return fmt.Sprintf("%s%s", CheckpointPrefix, threadID)
}

// ComposeThreadID maps a (user, session) pair to its stable thread id
func ComposeThreadID(userID, sessionID string) string {
	return fmt.Sprintf("%s%s%s", userID, ThreadIDSeparator, sessionID)
}
