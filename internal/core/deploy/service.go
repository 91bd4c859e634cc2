package deploy

import (
	"context"
	"fmt"
	"time"

	"blogsmith/internal/domain"
	"blogsmith/internal/event"
	"blogsmith/internal/logger"

	"github.com/google/uuid"
)

// Service is the request-handler-facing surface of the pipeline. It scopes
// every read and mutation to the owner and hands the long-running phases
// to the orchestrator on background contexts with an overall deadline.
type Service struct {
	repo domain.DeploymentRepository
	orch *Orchestrator
	bus  *event.Bus
	log  logger.Logger

	timeout time.Duration
}

func NewService(repo domain.DeploymentRepository, orch *Orchestrator, bus *event.Bus, log logger.Logger, timeout time.Duration) domain.DeploymentService {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &Service{
		repo:    repo,
		orch:    orch,
		bus:     bus,
		log:     log,
		timeout: timeout,
	}
}

func (s *Service) Create(ctx context.Context, ownerID string, req domain.DeploymentCreateRequest) (*domain.Deployment, error) {
	if !domain.ValidSiteName(req.SiteName) {
		return nil, fmt.Errorf("invalid site name %q: only letters, digits, '-' and '_' are allowed", req.SiteName)
	}

	d := &domain.Deployment{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		SiteName: req.SiteName,
		Title:    req.Title,
		Theme:    req.Theme,
		Status:   domain.DeploymentPending,
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish("deployment_created", domain.EventDeploymentCreated{Deployment: d})
	}

	s.launch("provisioning", d.ID, func(ctx context.Context) error {
		return s.orch.RunProvisioning(ctx, ownerID, d.ID)
	})

	return d, nil
}

func (s *Service) GetByID(ctx context.Context, ownerID, id string) (*domain.Deployment, error) {
	return s.repo.GetByID(ctx, ownerID, id)
}

func (s *Service) List(ctx context.Context, ownerID string) ([]*domain.Deployment, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Delete removes the record only. The external repository and hosting
// project are orphaned on purpose.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}

	if s.bus != nil {
		s.bus.Publish("deployment_deleted", domain.EventDeploymentDeleted{
			DeploymentID: id,
			OwnerID:      ownerID,
		})
	}

	return nil
}

func (s *Service) Publish(ctx context.Context, ownerID, id string) (*domain.Deployment, error) {
	d, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	switch d.Status {
	case domain.DeploymentHostingLive:
		return d, nil
	case domain.DeploymentReadyForHosting:
	default:
		return nil, ErrNotReady
	}

	s.launch("hosting", d.ID, func(ctx context.Context) error {
		return s.orch.RunHosting(ctx, ownerID, id)
	})

	return d, nil
}

func (s *Service) Retry(ctx context.Context, ownerID, id string) (*domain.Deployment, error) {
	d, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if !d.Status.Failed() {
		return nil, ErrNotRetryable
	}

	s.launch("retry", d.ID, func(ctx context.Context) error {
		return s.orch.Retry(ctx, ownerID, id)
	})

	return d, nil
}

// watchBuffer bounds how far a slow watcher may lag before events drop.
const watchBuffer = 32

// Watch subscribes to status changes scoped to one owner. Events for other
// owners never reach the returned channel; cancel detaches and closes it.
func (s *Service) Watch(ownerID string) (<-chan domain.EventDeploymentStatusChanged, func()) {
	if s.bus == nil {
		out := make(chan domain.EventDeploymentStatusChanged)
		close(out)
		return out, func() {}
	}

	raw, cancel := s.bus.SubscribeChan("deployment_status_changed", watchBuffer)

	out := make(chan domain.EventDeploymentStatusChanged, watchBuffer)
	go func() {
		defer close(out)
		for event := range raw {
			evt, ok := event.(domain.EventDeploymentStatusChanged)
			if !ok || evt.OwnerID != ownerID {
				continue
			}
			select {
			case out <- evt:
			default:
			}
		}
	}()

	return out, cancel
}

// launch runs one pipeline phase asynchronously under the configured
// overall deadline. Failures are already persisted by the orchestrator;
// here they are only logged.
func (s *Service) launch(phase, id string, run func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := run(ctx); err != nil {
			s.log.Warn("pipeline phase ended with error", "phase", phase, "deployment_id", id, "error", err)
		}
	}()
}
