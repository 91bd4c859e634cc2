package domain

import "context"

// ContentFile is a logical file to be written by a commit. Content is an
// opaque payload; it is transported byte-for-byte.
type ContentFile struct {
	Path    string
	Content []byte
}

// Repository is the resolved metadata of a source-control repository.
type Repository struct {
	Owner         string
	Name          string
	FullName      string
	URL           string
	DefaultBranch string
}

// SourceControl is the port onto the source-control hosting API. Both
// operations are idempotent from the caller's perspective: EnsureRepository
// resolves an already-existing repository instead of failing, and
// CommitFiles can be re-run after a failure without corrupting history.
type SourceControl interface {
	EnsureRepository(ctx context.Context, token, name, description string) (*Repository, error)

	// CommitFiles produces one new commit on branch containing files,
	// handling the empty-branch (root commit) case transparently. The
	// branch reference update is fast-forward-only; a concurrent tip move
	// fails the whole operation. An empty file set is a no-op.
	CommitFiles(ctx context.Context, token, owner, repo, branch string, files []ContentFile, message string) (string, error)
}

// HostingProject is a static-hosting platform's unit of deployment.
type HostingProject struct {
	Name    string
	LiveURL string
}

// HostingProvider is the port onto the static-hosting API. EnsureProject
// looks the project up by name first and only creates when absent.
type HostingProvider interface {
	EnsureProject(ctx context.Context, auth HostingAuth, accountID, projectName, repoFullName, productionBranch string) (*HostingProject, error)
}
