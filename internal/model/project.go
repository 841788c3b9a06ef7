package model

import "time"

// Project statuses.
const (
	ProjectStatusOpen       = "open"
	ProjectStatusInProgress = "in-progress"
	ProjectStatusCompleted  = "completed"
	ProjectStatusCancelled  = "cancelled"
	ProjectStatusOnHold     = "on-hold"
)

// Application statuses.
const (
	ApplicationStatusPending  = "pending"
	ApplicationStatusAccepted = "accepted"
	ApplicationStatusRejected = "rejected"
)

// Project priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Payment statuses. Payment processing itself lives elsewhere; the project
// only tracks this flag.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusPartial   = "partial"
	PaymentStatusCompleted = "completed"
	PaymentStatusRefunded  = "refunded"
)

var ProjectCategories = []string{
	"web-development", "mobile-app", "desktop-app",
	"data-analysis", "ai-ml", "blockchain", "other",
}

type Project struct {
	ID                  int        `json:"id"`
	OwnerID             int        `json:"owner_id"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	Budget              float64    `json:"budget"`
	Timeline            string     `json:"timeline"`
	Skills              []string   `json:"skills"`
	Location            string     `json:"location"`
	Status              string     `json:"status"`
	Priority            string     `json:"priority"`
	Category            string     `json:"category"`
	Requirements        string     `json:"requirements,omitempty"`
	Progress            int        `json:"progress"`
	AssignedDeveloperID *int       `json:"assigned_developer_id,omitempty"`
	StartDate           *time.Time `json:"start_date,omitempty"`
	EndDate             *time.Time `json:"end_date,omitempty"`
	IsPublic            bool       `json:"is_public"`
	Views               int        `json:"views"`
	PaymentStatus       string     `json:"payment_status"`
	Version             int        `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type Application struct {
	ID               int       `json:"id"`
	ProjectID        int       `json:"project_id"`
	DeveloperID      int       `json:"developer_id"`
	Proposal         string    `json:"proposal"`
	ProposedBudget   float64   `json:"proposed_budget"`
	ProposedTimeline string    `json:"proposed_timeline"`
	Status           string    `json:"status"`
	AppliedAt        time.Time `json:"applied_at"`
}

// ProjectFilters narrows a project listing.
type ProjectFilters struct {
	Skills     []string
	Location   string
	MaxBudget  *float64
	Status     string
	Category   string
	OnlyPublic bool
}
