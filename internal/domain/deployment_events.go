package domain

import "time"

type EventDeploymentCreated struct {
	Deployment *Deployment `json:"deployment"`
}

type EventDeploymentStatusChanged struct {
	DeploymentID string           `json:"deployment_id"`
	OwnerID      string           `json:"owner_id"`
	Status       DeploymentStatus `json:"status"`
	LastError    *string          `json:"last_error,omitempty"`
	Note         *string          `json:"note,omitempty"`
	OccurredAt   time.Time        `json:"occurred_at"`
}

type EventDeploymentLive struct {
	DeploymentID string `json:"deployment_id"`
	OwnerID      string `json:"owner_id"`
	LiveURL      string `json:"live_url"`
}

type EventDeploymentDeleted struct {
	DeploymentID string `json:"deployment_id"`
	OwnerID      string `json:"owner_id"`
}
