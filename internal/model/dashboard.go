package model

import "time"

// DeveloperStats summarizes a developer's standing.
type DeveloperStats struct {
	ActiveProjects      int     `json:"activeProjects"`
	CompletedProjects   int     `json:"completedProjects"`
	PendingApplications int     `json:"pendingApplications"`
	TotalEarnings       float64 `json:"totalEarnings"`
	UnreadMessages      int     `json:"unreadMessages"`
}

// ClientStats summarizes a client's standing.
type ClientStats struct {
	ActiveProjects      int     `json:"activeProjects"`
	CompletedProjects   int     `json:"completedProjects"`
	TotalSpent          float64 `json:"totalSpent"`
	PendingApplications int     `json:"pendingApplications"`
	UnreadMessages      int     `json:"unreadMessages"`
}

// Activity is one entry in the recent-activity feed.
type Activity struct {
	Type      string    `json:"type"`   // project / application
	Action    string    `json:"action"` // completed / started / updated / applied
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ProjectBrief is the slice of project fields joined onto applications.
type ProjectBrief struct {
	ID       int     `json:"id"`
	Title    string  `json:"title"`
	Budget   float64 `json:"budget"`
	Timeline string  `json:"timeline"`
	Status   string  `json:"status"`
}

// ApplicationSummary is an application joined with its project and the
// counterpart user's public fields.
type ApplicationSummary struct {
	Application Application  `json:"application"`
	Project     ProjectBrief `json:"project"`
	Counterpart PublicUser   `json:"counterpart"`
}

// ProjectSummary is a project joined with the counterpart user's public
// fields (assigned developer for clients, owner for developers).
type ProjectSummary struct {
	Project     Project     `json:"project"`
	Counterpart *PublicUser `json:"counterpart,omitempty"`
}
