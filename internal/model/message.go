package model

import "time"

// Message types.
const (
	MessageTypeGeneral         = "general"
	MessageTypeProjectInquiry  = "project-inquiry"
	MessageTypeApplication     = "application"
	MessageTypeMilestoneUpdate = "milestone-update"
	MessageTypePayment         = "payment"
	MessageTypeSupport         = "support"
)

// Message priorities.
const (
	MessagePriorityLow    = "low"
	MessagePriorityNormal = "normal"
	MessagePriorityHigh   = "high"
	MessagePriorityUrgent = "urgent"
)

// System message types.
const (
	SystemMessageProjectAssigned    = "project-assigned"
	SystemMessageMilestoneCompleted = "milestone-completed"
	SystemMessagePaymentReceived    = "payment-received"
	SystemMessageProjectCompleted   = "project-completed"
)

type Message struct {
	ID                int        `json:"id"`
	SenderID          int        `json:"sender_id"`
	RecipientID       int        `json:"recipient_id"`
	ProjectID         *int       `json:"project_id,omitempty"`
	Subject           string     `json:"subject"`
	Content           string     `json:"content"`
	MessageType       string     `json:"message_type"`
	IsRead            bool       `json:"is_read"`
	ReadAt            *time.Time `json:"read_at,omitempty"`
	ParentMessageID   *int       `json:"parent_message_id,omitempty"`
	Replies           []int      `json:"replies,omitempty"`
	Priority          string     `json:"priority"`
	IsImportant       bool       `json:"is_important"`
	IsArchived        bool       `json:"is_archived"`
	IsSystemMessage   bool       `json:"is_system_message"`
	SystemMessageType string     `json:"system_message_type,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// MessageFilters narrows a message listing for one user.
type MessageFilters struct {
	MessageType string
	Priority    string
	IsRead      *bool
	IsArchived  bool
}
