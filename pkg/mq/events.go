package mq

import "time"

// Routing keys for domain events consumed by the notification/email pipeline.
const (
	RoutingKeyApplicationSubmitted = "application.submitted"
	RoutingKeyApplicationAccepted  = "application.accepted"
	RoutingKeyApplicationRejected  = "application.rejected"
	RoutingKeyProjectCompleted     = "project.completed"
	RoutingKeyMessageSent          = "message.sent"
)

type ApplicationSubmittedPayload struct {
	ProjectID     int       `json:"project_id"`
	ApplicationID int       `json:"application_id"`
	DeveloperID   int       `json:"developer_id"`
	OwnerID       int       `json:"owner_id"`
	AppliedAt     time.Time `json:"applied_at"`
}

type ApplicationDecidedPayload struct {
	ProjectID     int    `json:"project_id"`
	ApplicationID int    `json:"application_id"`
	DeveloperID   int    `json:"developer_id"`
	OwnerID       int    `json:"owner_id"`
	Status        string `json:"status"`
}

type ProjectCompletedPayload struct {
	ProjectID   int       `json:"project_id"`
	OwnerID     int       `json:"owner_id"`
	DeveloperID int       `json:"developer_id"`
	CompletedAt time.Time `json:"completed_at"`
}

type MessageSentPayload struct {
	MessageID   int `json:"message_id"`
	SenderID    int `json:"sender_id"`
	RecipientID int `json:"recipient_id"`
}
