package github

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"blogsmith/internal/domain"

	gogithub "github.com/google/go-github/v66/github"
)

// EnsureRepository creates a publicly readable repository without any
// auto-generated scaffold, resolving an already-existing repository of the
// same name instead of failing. Safe to call repeatedly.
func (p *Provider) EnsureRepository(ctx context.Context, token, name, description string) (*domain.Repository, error) {
	client, err := p.client(ctx, token)
	if err != nil {
		return nil, &domain.PipelineError{Stage: domain.StageCreateRepository, Kind: domain.KindUnexpected, Err: err}
	}

	created, resp, err := client.Repositories.Create(ctx, "", &gogithub.Repository{
		Name:        gogithub.String(name),
		Description: gogithub.String(description),
		Private:     gogithub.Bool(false),
		AutoInit:    gogithub.Bool(false),
	})
	if err == nil {
		p.log.Info("vcs: repository created", "repo", created.GetFullName())
		return toRepository(created), nil
	}

	if nameAlreadyExists(err) {
		existing, lookupErr := p.lookupOwnRepository(ctx, client, name)
		if lookupErr != nil {
			return nil, lookupErr
		}
		p.log.Info("vcs: repository already exists, resolved", "repo", existing.FullName)
		return existing, nil
	}

	return nil, wrapErr(domain.StageCreateRepository, name, resp, err)
}

// lookupOwnRepository resolves the token owner's repository by name.
func (p *Provider) lookupOwnRepository(ctx context.Context, client *gogithub.Client, name string) (*domain.Repository, error) {
	me, resp, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, wrapErr(domain.StageCreateRepository, name, resp, err)
	}

	repo, resp, err := client.Repositories.Get(ctx, me.GetLogin(), name)
	if err != nil {
		return nil, wrapErr(domain.StageCreateRepository, me.GetLogin()+"/"+name, resp, err)
	}

	return toRepository(repo), nil
}

// nameAlreadyExists detects the 422 validation error GitHub returns when a
// repository with the requested name exists for the authenticated user.
func nameAlreadyExists(err error) bool {
	var apiErr *gogithub.ErrorResponse
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Response == nil || apiErr.Response.StatusCode != http.StatusUnprocessableEntity {
		return false
	}

	for _, detail := range apiErr.Errors {
		if detail.Field == "name" && strings.Contains(detail.Message, "already exists") {
			return true
		}
	}

	return false
}

func toRepository(r *gogithub.Repository) *domain.Repository {
	return &domain.Repository{
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		URL:           r.GetHTMLURL(),
		DefaultBranch: r.GetDefaultBranch(),
	}
}
