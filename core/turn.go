package core

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser marks text typed by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks a final answer produced by an agent.
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the conversational memory.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserTurn creates a user authored turn.
func UserTurn(content string) Turn { return Turn{Role: RoleUser, Content: content} }

// AssistantTurn creates an assistant authored turn.
func AssistantTurn(content string) Turn { return Turn{Role: RoleAssistant, Content: content} }
