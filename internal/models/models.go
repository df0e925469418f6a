package models

// Project roles. The set is closed.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}

// SenderKind tags who authored a chat message.
type SenderKind string

const (
	SenderHuman SenderKind = "human"
	SenderAgent SenderKind = "agent"
)

// AgentSenderEmail is the display identity of messages written by the assistant.
const AgentSenderEmail = "@Ai"
