package domain

import (
	"context"
	"errors"
	"regexp"
	"time"
)

var ErrDeploymentNotFound = errors.New("deployment not found")

var siteNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidSiteName reports whether name is usable as both a repository name
// and a hosting project name.
func ValidSiteName(name string) bool {
	return siteNamePattern.MatchString(name)
}

type DeploymentStatus string

const (
	DeploymentPending            DeploymentStatus = "pending"
	DeploymentCreatingRepository DeploymentStatus = "creating_repository"
	DeploymentPreparingContent   DeploymentStatus = "preparing_content"
	DeploymentPushingContent     DeploymentStatus = "pushing_content"
	DeploymentReadyForHosting    DeploymentStatus = "ready_for_hosting"
	DeploymentHostingPending     DeploymentStatus = "hosting_pending"
	DeploymentHostingDeploying   DeploymentStatus = "hosting_deploying"
	DeploymentHostingLive        DeploymentStatus = "hosting_live"
	DeploymentRepositoryFailed   DeploymentStatus = "repository_failed"
	DeploymentHostingFailed      DeploymentStatus = "hosting_failed"
)

// Failed reports whether the status is one of the two failure sinks.
func (s DeploymentStatus) Failed() bool {
	return s == DeploymentRepositoryFailed || s == DeploymentHostingFailed
}

// Terminal reports whether the pipeline has stopped in this status. Failed
// states are terminal but retryable; hosting_live is terminal success.
func (s DeploymentStatus) Terminal() bool {
	return s.Failed() || s == DeploymentHostingLive
}

// Deployment is the persisted record for one user blog. Status and
// LastError are written exclusively by the deploy orchestrator.
type Deployment struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`

	SiteName string `json:"site_name"`
	Title    string `json:"title"`
	Theme    string `json:"theme,omitempty"`

	Status DeploymentStatus `json:"status"`

	RepositoryURL      *string `json:"repository_url,omitempty"`
	LiveURL            *string `json:"live_url,omitempty"`
	HostingProjectName *string `json:"hosting_project_name,omitempty"`
	HostingAccountID   *string `json:"hosting_account_id,omitempty"`

	LastError *string `json:"last_error,omitempty"`
	Note      *string `json:"note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// DeploymentPatch is a partial update of a Deployment. Nil fields are left
// untouched; the store applies the patch as a single last-write-wins write.
type DeploymentPatch struct {
	Status *DeploymentStatus

	RepositoryURL      *string
	LiveURL            *string
	HostingProjectName *string
	HostingAccountID   *string

	LastError  *string
	ClearError bool
	Note       *string
	ClearNote  bool
}

type DeploymentCreateRequest struct {
	SiteName string `json:"site_name" validate:"required,max=100"`
	Title    string `json:"title" validate:"required,max=200"`
	Theme    string `json:"theme" validate:"max=100"`
}

type DeploymentRepository interface {
	Create(ctx context.Context, d *Deployment) error
	GetByID(ctx context.Context, ownerID, id string) (*Deployment, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Deployment, error)
	Update(ctx context.Context, id string, patch DeploymentPatch) (*Deployment, error)
	Delete(ctx context.Context, ownerID, id string) error
}

type DeploymentService interface {
	Create(ctx context.Context, ownerID string, req DeploymentCreateRequest) (*Deployment, error)
	GetByID(ctx context.Context, ownerID, id string) (*Deployment, error)
	List(ctx context.Context, ownerID string) ([]*Deployment, error)
	Delete(ctx context.Context, ownerID, id string) error

	// Publish provisions hosting for a deployment that is ready_for_hosting.
	// Calling it on a live deployment is a no-op returning the record as-is.
	Publish(ctx context.Context, ownerID, id string) (*Deployment, error)

	// Retry re-enters the pipeline at the failed stage's starting point.
	Retry(ctx context.Context, ownerID, id string) (*Deployment, error)

	// Watch streams status changes for one owner's deployments. The cancel
	// func detaches the watcher and closes the channel.
	Watch(ownerID string) (<-chan EventDeploymentStatusChanged, func())
}
