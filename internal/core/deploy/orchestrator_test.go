package deploy

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"blogsmith/internal/domain"
	"blogsmith/internal/event"
	"blogsmith/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	records map[string]*domain.Deployment
	history []domain.DeploymentStatus
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*domain.Deployment)}
}

func (m *memStore) Create(_ context.Context, d *domain.Deployment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *d
	m.records[d.ID] = &clone
	return nil
}

func (m *memStore) GetByID(_ context.Context, ownerID, id string) (*domain.Deployment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.records[id]
	if !ok || d.OwnerID != ownerID {
		return nil, domain.ErrDeploymentNotFound
	}
	clone := *d
	return &clone, nil
}

func (m *memStore) ListByOwner(_ context.Context, ownerID string) ([]*domain.Deployment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Deployment
	for _, d := range m.records {
		if d.OwnerID == ownerID {
			clone := *d
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, id string, patch domain.DeploymentPatch) (*domain.Deployment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.records[id]
	if !ok {
		return nil, domain.ErrDeploymentNotFound
	}

	if patch.Status != nil {
		d.Status = *patch.Status
		m.history = append(m.history, *patch.Status)
	}
	if patch.RepositoryURL != nil {
		d.RepositoryURL = patch.RepositoryURL
	}
	if patch.LiveURL != nil {
		d.LiveURL = patch.LiveURL
	}
	if patch.HostingProjectName != nil {
		d.HostingProjectName = patch.HostingProjectName
	}
	if patch.HostingAccountID != nil {
		d.HostingAccountID = patch.HostingAccountID
	}
	if patch.LastError != nil {
		d.LastError = patch.LastError
	} else if patch.ClearError {
		d.LastError = nil
	}
	if patch.Note != nil {
		d.Note = patch.Note
	} else if patch.ClearNote {
		d.Note = nil
	}

	clone := *d
	return &clone, nil
}

func (m *memStore) Delete(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.records[id]
	if !ok || d.OwnerID != ownerID {
		return domain.ErrDeploymentNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *memStore) statuses() []domain.DeploymentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.DeploymentStatus(nil), m.history...)
}

type memCreds struct {
	creds map[string]*domain.Credentials
}

func (m *memCreds) Get(_ context.Context, ownerID string) (*domain.Credentials, error) {
	c, ok := m.creds[ownerID]
	if !ok {
		return nil, domain.ErrCredentialsNotFound
	}
	return c, nil
}

func (m *memCreds) Put(_ context.Context, c *domain.Credentials) error {
	m.creds[c.OwnerID] = c
	return nil
}

func (m *memCreds) Delete(_ context.Context, ownerID string) error {
	delete(m.creds, ownerID)
	return nil
}

type fakeVCS struct {
	mu          sync.Mutex
	ensureCalls int
	created     int
	commitCalls int
	commits     [][]domain.ContentFile

	ensureErr error
	commitErr error
	existing  bool
}

func (f *fakeVCS) EnsureRepository(_ context.Context, _, name, _ string) (*domain.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureCalls++
	if f.ensureErr != nil {
		return nil, f.ensureErr
	}
	if !f.existing {
		f.created++
	}
	return &domain.Repository{
		Owner:         "u1",
		Name:          name,
		FullName:      "u1/" + name,
		URL:           "https://github.example/u1/" + name,
		DefaultBranch: "main",
	}, nil
}

func (f *fakeVCS) CommitFiles(_ context.Context, _, _, _, _ string, files []domain.ContentFile, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return "", f.commitErr
	}
	f.commitCalls++
	f.commits = append(f.commits, files)
	return fmt.Sprintf("sha-%d", f.commitCalls), nil
}

type fakeHosting struct {
	mu          sync.Mutex
	createCalls int
	err         error
	domain      string
}

func (f *fakeHosting) EnsureProject(_ context.Context, _ domain.HostingAuth, _, projectName, _, _ string) (*domain.HostingProject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.createCalls++
	return &domain.HostingProject{
		Name:    projectName,
		LiveURL: "https://" + projectName + "." + f.domain,
	}, nil
}

type fixture struct {
	store   *memStore
	creds   *memCreds
	vcs     *fakeVCS
	hosting *fakeHosting
	bus     *event.Bus
	orch    *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	creds := &memCreds{creds: map[string]*domain.Credentials{
		"u1": {
			OwnerID:          "u1",
			GitToken:         "git-token",
			HostingToken:     "cf-token",
			HostingAccountID: "acc-1",
		},
	}}
	vcs := &fakeVCS{}
	hosting := &fakeHosting{domain: "pages.dev"}
	bus := event.New()

	orch := NewOrchestrator(OrchestratorDeps{
		Store:   store,
		Creds:   creds,
		VCS:     vcs,
		Hosting: hosting,
		Bus:     bus,
		Log:     logger.Nop(),

		DefaultBranch: "main",
		HostingDomain: "pages.dev",
	})

	return &fixture{store: store, creds: creds, vcs: vcs, hosting: hosting, bus: bus, orch: orch}
}

func seedDeployment(t *testing.T, f *fixture, status domain.DeploymentStatus) *domain.Deployment {
	t.Helper()

	d := &domain.Deployment{
		ID:       "d1",
		OwnerID:  "u1",
		SiteName: "my-blog",
		Title:    "My Blog",
		Status:   status,
	}
	require.NoError(t, f.store.Create(context.Background(), d))
	return d
}

func TestFullPipelineReachesHostingLive(t *testing.T) {
	f := newFixture(t)
	seedDeployment(t, f, domain.DeploymentPending)
	ctx := context.Background()

	events, cancel := f.bus.SubscribeChan("deployment_status_changed", 32)
	defer cancel()

	require.NoError(t, f.orch.RunProvisioning(ctx, "u1", "d1"))
	require.NoError(t, f.orch.RunHosting(ctx, "u1", "d1"))

	want := []domain.DeploymentStatus{
		domain.DeploymentCreatingRepository,
		domain.DeploymentPreparingContent,
		domain.DeploymentPushingContent,
		domain.DeploymentReadyForHosting,
		domain.DeploymentHostingPending,
		domain.DeploymentHostingDeploying,
		domain.DeploymentHostingLive,
	}
	assert.Equal(t, want, f.store.statuses(), "pipeline must advance strictly forward")

	d, err := f.store.GetByID(ctx, "u1", "d1")
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentHostingLive, d.Status)
	require.NotNil(t, d.RepositoryURL)
	assert.Equal(t, "https://github.example/u1/my-blog", *d.RepositoryURL)
	require.NotNil(t, d.LiveURL)
	assert.Equal(t, "https://my-blog.pages.dev", *d.LiveURL)
	assert.Nil(t, d.LastError)

	assert.Equal(t, 2, f.vcs.commitCalls, "one scaffold commit, one content commit")

	// Every transition was observable on the subscription channel, in order.
	for _, status := range want {
		evt := <-events
		assert.Equal(t, status, evt.(domain.EventDeploymentStatusChanged).Status)
	}
}

func TestRepositoryCreationFailureSinks(t *testing.T) {
	f := newFixture(t)
	seedDeployment(t, f, domain.DeploymentPending)
	f.vcs.ensureErr = &domain.PipelineError{
		Stage:      domain.StageCreateRepository,
		Kind:       domain.KindTransient,
		HTTPStatus: 503,
	}

	err := f.orch.RunProvisioning(context.Background(), "u1", "d1")
	require.Error(t, err)

	d, _ := f.store.GetByID(context.Background(), "u1", "d1")
	assert.Equal(t, domain.DeploymentRepositoryFailed, d.Status)
	require.NotNil(t, d.LastError)
	assert.NotEmpty(t, *d.LastError)
	assert.NotContains(t, f.store.statuses(), domain.DeploymentReadyForHosting)
}

func TestCommitFailureSinksToRepositoryFailed(t *testing.T) {
	f := newFixture(t)
	seedDeployment(t, f, domain.DeploymentPending)
	f.vcs.commitErr = &domain.PipelineError{
		Stage: domain.StageUpdateRef,
		Kind:  domain.KindConflict,
	}

	require.Error(t, f.orch.RunProvisioning(context.Background(), "u1", "d1"))

	d, _ := f.store.GetByID(context.Background(), "u1", "d1")
	assert.Equal(t, domain.DeploymentRepositoryFailed, d.Status)
	require.NotNil(t, d.LastError)
	assert.Contains(t, *d.LastError, "update_ref")
}

func TestHostingQuotaErrorSurfacesProviderMessage(t *testing.T) {
	f := newFixture(t)
	seedDeployment(t, f, domain.DeploymentReadyForHosting)
	f.hosting.err = &domain.PipelineError{
		Stage:           domain.StageHostingCreate,
		Kind:            domain.KindUnexpected,
		ProviderMessage: "8000: quota exceeded",
	}

	require.Error(t, f.orch.RunHosting(context.Background(), "u1", "d1"))

	d, _ := f.store.GetByID(context.Background(), "u1", "d1")
	assert.Equal(t, domain.DeploymentHostingFailed, d.Status)
	require.NotNil(t, d.LastError)
	assert.Contains(t, *d.LastError, "quota exceeded")
}

func TestMissingHostingCredentialsIsFatal(t *testing.T) {
	f := newFixture(t)
	seedDeployment(t, f, domain.DeploymentReadyForHosting)
	f.creds.creds["u1"].HostingToken = ""

	require.Error(t, f.orch.RunHosting(context.Background(), "u1", "d1"))

	d, _ := f.store.GetByID(context.Background(), "u1", "d1")
	assert.Equal(t, domain.DeploymentHostingFailed, d.Status)
	require.NotNil(t, d.LastError)
	assert.Contains(t, *d.LastError, "credentials")
	assert.Zero(t, f.hosting.createCalls, "no provisioning call without credentials")
}

func TestRetryAfterOutOfBandRepositoryCreation(t *testing.T) {
	f := newFixture(t)
	d := seedDeployment(t, f, domain.DeploymentPending)

	// Simulate a crash after creation but before the state write: the
	// record is in repository_failed while the repository exists.
	f.vcs.existing = true
	lastError := "A temporary problem occurred talking to the provider."
	_, err := f.store.Update(context.Background(), d.ID, domain.DeploymentPatch{
		Status:    statusPtr(domain.DeploymentRepositoryFailed),
		LastError: &lastError,
	})
	require.NoError(t, err)

	require.NoError(t, f.orch.Retry(context.Background(), "u1", "d1"))

	updated, _ := f.store.GetByID(context.Background(), "u1", "d1")
	assert.Equal(t, domain.DeploymentReadyForHosting, updated.Status)
	assert.Nil(t, updated.LastError, "retry out of a failed state clears last_error")
	assert.Equal(t, 1, f.vcs.ensureCalls, "ensure resolves, never duplicates")
	assert.Zero(t, f.vcs.created, "existing repository is reused, not recreated")
}

func TestPipelineRunsWithoutBusOrFeed(t *testing.T) {
	f := newFixture(t)
	seedDeployment(t, f, domain.DeploymentPending)
	ctx := context.Background()

	// The bus and feed are optional wiring; every path must tolerate their
	// absence, including the live announcement.
	orch := NewOrchestrator(OrchestratorDeps{
		Store:   f.store,
		Creds:   f.creds,
		VCS:     f.vcs,
		Hosting: f.hosting,
		Log:     logger.Nop(),

		DefaultBranch: "main",
		HostingDomain: "pages.dev",
	})

	require.NoError(t, orch.RunProvisioning(ctx, "u1", "d1"))
	require.NoError(t, orch.RunHosting(ctx, "u1", "d1"))

	d, err := f.store.GetByID(ctx, "u1", "d1")
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentHostingLive, d.Status)
}

func TestRetryRejectsNonFailedStates(t *testing.T) {
	f := newFixture(t)
	seedDeployment(t, f, domain.DeploymentPushingContent)

	err := f.orch.Retry(context.Background(), "u1", "d1")
	assert.ErrorIs(t, err, ErrNotRetryable)
}

func TestHostingNoOpWhenAlreadyLive(t *testing.T) {
	f := newFixture(t)
	d := seedDeployment(t, f, domain.DeploymentHostingLive)
	liveURL := "https://my-blog.pages.dev"
	_, err := f.store.Update(context.Background(), d.ID, domain.DeploymentPatch{LiveURL: &liveURL})
	require.NoError(t, err)

	require.NoError(t, f.orch.RunHosting(context.Background(), "u1", "d1"))

	assert.Empty(t, f.store.statuses(), "no transitions recorded")
	assert.Zero(t, f.hosting.createCalls)

	updated, _ := f.store.GetByID(context.Background(), "u1", "d1")
	assert.Equal(t, liveURL, *updated.LiveURL)
}

func statusPtr(s domain.DeploymentStatus) *domain.DeploymentStatus { return &s }
