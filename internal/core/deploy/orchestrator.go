// Package deploy drives the blog deployment pipeline: repository
// provisioning, content commits and hosting provisioning, with every step
// recorded as a persisted status transition.
package deploy

import (
	"context"
	"fmt"
	"time"

	"blogsmith/internal/domain"
	"blogsmith/internal/event"
	"blogsmith/internal/logger"
)

// ActivityFeed receives a copy of every status transition for the owner's
// recent-activity view. Best effort; feed failures never fail the pipeline.
type ActivityFeed interface {
	Append(ctx context.Context, ownerID string, payload any) (string, error)
}

// Orchestrator owns every status and last_error write for a deployment.
// It holds no mutable state of its own; safety under concurrent runs rests
// on idempotent provisioning and fast-forward-only reference updates.
type Orchestrator struct {
	store     domain.DeploymentRepository
	creds     domain.CredentialRepository
	vcs       domain.SourceControl
	hosting   domain.HostingProvider
	generator ConfigGenerator
	bus       *event.Bus
	feed      ActivityFeed
	log       logger.Logger

	defaultBranch string
	hostingDomain string
}

type OrchestratorDeps struct {
	Store     domain.DeploymentRepository
	Creds     domain.CredentialRepository
	VCS       domain.SourceControl
	Hosting   domain.HostingProvider
	Generator ConfigGenerator
	Bus       *event.Bus
	Feed      ActivityFeed
	Log       logger.Logger

	DefaultBranch string
	HostingDomain string
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	return &Orchestrator{
		store:     deps.Store,
		creds:     deps.Creds,
		vcs:       deps.VCS,
		hosting:   deps.Hosting,
		generator: deps.Generator,
		bus:       deps.Bus,
		feed:      deps.Feed,
		log:       deps.Log,

		defaultBranch: deps.DefaultBranch,
		hostingDomain: deps.HostingDomain,
	}
}

// RunProvisioning executes the repository phase: create (or resolve) the
// repository, push the scaffold commit, push the content commit. Always
// leaves the record in ready_for_hosting or repository_failed.
func (o *Orchestrator) RunProvisioning(ctx context.Context, ownerID, id string) error {
	d, err := o.store.GetByID(ctx, ownerID, id)
	if err != nil {
		return err
	}

	creds, err := o.creds.Get(ctx, ownerID)
	if err != nil || creds.GitToken == "" {
		if err == nil {
			err = domain.ErrMissingCredential
		}
		return o.fail(ctx, d, domain.DeploymentRepositoryFailed, &domain.PipelineError{
			Stage: domain.StageCreateRepository,
			Kind:  domain.KindConfig,
			Err:   err,
		})
	}

	if err := o.transition(ctx, d, domain.DeploymentCreatingRepository, domain.DeploymentPatch{
		Note: strPtr("Provisioning repository"),
	}); err != nil {
		return err
	}

	repo, err := o.vcs.EnsureRepository(ctx, creds.GitToken, d.SiteName, fmt.Sprintf("Blog sources for %s", d.Title))
	if err != nil {
		return o.fail(ctx, d, domain.DeploymentRepositoryFailed, err)
	}

	branch := repo.DefaultBranch
	if branch == "" {
		branch = o.defaultBranch
	}

	if err := o.transition(ctx, d, domain.DeploymentPreparingContent, domain.DeploymentPatch{
		RepositoryURL: &repo.URL,
		Note:          strPtr("Preparing site content"),
	}); err != nil {
		return err
	}

	if _, err := o.vcs.CommitFiles(ctx, creds.GitToken, repo.Owner, repo.Name, branch, scaffoldFiles(d), "Initialize blog"); err != nil {
		return o.fail(ctx, d, domain.DeploymentRepositoryFailed, err)
	}

	if err := o.transition(ctx, d, domain.DeploymentPushingContent, domain.DeploymentPatch{
		Note: strPtr("Pushing site content"),
	}); err != nil {
		return err
	}

	if _, err := o.vcs.CommitFiles(ctx, creds.GitToken, repo.Owner, repo.Name, branch, o.contentFiles(ctx, d), "Add site configuration and first post"); err != nil {
		return o.fail(ctx, d, domain.DeploymentRepositoryFailed, err)
	}

	return o.transition(ctx, d, domain.DeploymentReadyForHosting, domain.DeploymentPatch{
		Note: strPtr("Ready to publish"),
	})
}

// RunHosting executes the hosting phase, entered only on explicit user
// action. A deployment that is already live is left untouched.
func (o *Orchestrator) RunHosting(ctx context.Context, ownerID, id string) error {
	d, err := o.store.GetByID(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if d.Status == domain.DeploymentHostingLive {
		o.log.Info("hosting already live, nothing to do", "deployment_id", d.ID)
		return nil
	}

	if err := o.transition(ctx, d, domain.DeploymentHostingPending, domain.DeploymentPatch{
		Note: strPtr("Validating hosting credentials"),
	}); err != nil {
		return err
	}

	creds, err := o.creds.Get(ctx, ownerID)
	if err != nil {
		return o.fail(ctx, d, domain.DeploymentHostingFailed, &domain.PipelineError{
			Stage: domain.StageHostingAuth,
			Kind:  domain.KindConfig,
			Err:   err,
		})
	}

	auth, err := creds.ResolveHostingAuth()
	if err != nil {
		return o.fail(ctx, d, domain.DeploymentHostingFailed, err)
	}
	if creds.HostingAccountID == "" || creds.GitToken == "" {
		return o.fail(ctx, d, domain.DeploymentHostingFailed, &domain.PipelineError{
			Stage: domain.StageHostingAuth,
			Kind:  domain.KindConfig,
			Err:   domain.ErrMissingCredential,
		})
	}

	if err := o.transition(ctx, d, domain.DeploymentHostingDeploying, domain.DeploymentPatch{
		Note: strPtr("Provisioning hosting project"),
	}); err != nil {
		return err
	}

	// Idempotent re-resolve: the provisioner reports the repository's
	// actual full name and default branch, which hosting must bind to.
	repo, err := o.vcs.EnsureRepository(ctx, creds.GitToken, d.SiteName, "")
	if err != nil {
		return o.fail(ctx, d, domain.DeploymentHostingFailed, err)
	}

	branch := repo.DefaultBranch
	if branch == "" {
		branch = o.defaultBranch
	}

	project, err := o.hosting.EnsureProject(ctx, auth, creds.HostingAccountID, d.SiteName, repo.FullName, branch)
	if err != nil {
		return o.fail(ctx, d, domain.DeploymentHostingFailed, err)
	}

	if err := o.transition(ctx, d, domain.DeploymentHostingLive, domain.DeploymentPatch{
		LiveURL:            &project.LiveURL,
		HostingProjectName: &project.Name,
		HostingAccountID:   &creds.HostingAccountID,
		Note:               strPtr("Your blog is live"),
	}); err != nil {
		return err
	}

	if o.bus != nil {
		o.bus.Publish("deployment_live", domain.EventDeploymentLive{
			DeploymentID: d.ID,
			OwnerID:      d.OwnerID,
			LiveURL:      project.LiveURL,
		})
	}

	return nil
}

// Retry re-enters the pipeline at the failed stage's starting point. The
// provisioners are idempotent, so re-running a phase is safe even when the
// previous attempt partially succeeded.
func (o *Orchestrator) Retry(ctx context.Context, ownerID, id string) error {
	d, err := o.store.GetByID(ctx, ownerID, id)
	if err != nil {
		return err
	}

	switch d.Status {
	case domain.DeploymentRepositoryFailed:
		return o.RunProvisioning(ctx, ownerID, id)
	case domain.DeploymentHostingFailed:
		return o.RunHosting(ctx, ownerID, id)
	default:
		return ErrNotRetryable
	}
}

// transition persists one status write. Transitions out of a failure sink
// clear last_error; the UI treats the store as the single source of truth.
func (o *Orchestrator) transition(ctx context.Context, d *domain.Deployment, status domain.DeploymentStatus, patch domain.DeploymentPatch) error {
	patch.Status = &status
	if !status.Failed() {
		patch.ClearError = true
	}

	updated, err := o.store.Update(ctx, d.ID, patch)
	if err != nil {
		return fmt.Errorf("failed to persist status %s: %w", status, err)
	}
	*d = *updated

	o.log.Info("deployment transition", "deployment_id", d.ID, "status", status)
	o.announce(ctx, d)

	return nil
}

// fail records a failure sink with a non-empty, bounded last_error. It
// returns the original error so callers can log it; the pipeline itself is
// finished once the sink is persisted.
func (o *Orchestrator) fail(ctx context.Context, d *domain.Deployment, sink domain.DeploymentStatus, cause error) error {
	lastError := formatLastError(cause)

	if err := o.transition(ctx, d, sink, domain.DeploymentPatch{
		LastError: &lastError,
		ClearNote: true,
	}); err != nil {
		o.log.Error("failed to persist failure state", "deployment_id", d.ID, "sink", sink, "error", err)
	}

	o.log.Error("deployment step failed", "deployment_id", d.ID, "sink", sink, "error", cause)

	return cause
}

func (o *Orchestrator) announce(ctx context.Context, d *domain.Deployment) {
	evt := domain.EventDeploymentStatusChanged{
		DeploymentID: d.ID,
		OwnerID:      d.OwnerID,
		Status:       d.Status,
		LastError:    d.LastError,
		Note:         d.Note,
		OccurredAt:   time.Now().UTC(),
	}

	if o.bus != nil {
		o.bus.Publish("deployment_status_changed", evt)
	}

	if o.feed != nil {
		if _, err := o.feed.Append(ctx, d.OwnerID, evt); err != nil {
			o.log.Warn("activity feed append failed", "deployment_id", d.ID, "error", err)
		}
	}
}

func strPtr(s string) *string { return &s }
