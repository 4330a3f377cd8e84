package store

// Turn roles mirror the chat wire format.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one exchange unit in a thread's append-only log.
// Turns are appended by the orchestrator after each successful model call
// and deleted only by an explicit bulk clear.
type ConversationTurn struct {
	ThreadID  string
	Sequence  int64
	Role      string
	Content   string
	CreatedTs int64
}

type FindConversationTurn struct {
	ThreadID *string
	// Limit bounds the result to the most recent N turns, returned in
	// ascending sequence order.
	Limit *int
}
