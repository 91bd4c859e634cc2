// Package cloudflare implements the hosting port on Cloudflare Pages.
package cloudflare

import (
	"context"
	"errors"
	"fmt"

	"blogsmith/internal/domain"
	"blogsmith/internal/logger"

	cf "github.com/cloudflare/cloudflare-go"
)

// BuildSettings is the fixed build configuration pinned into every project
// so builds stay reproducible across generator releases.
type BuildSettings struct {
	Command          string
	OutputDir        string
	GeneratorVersion string
}

type PagesProvider struct {
	baseURL string
	domain  string
	build   BuildSettings
	log     logger.Logger
}

// NewPagesProvider builds a provider deriving live URLs from domainSuffix
// ("pages.dev" in production). baseURL overrides the API endpoint in tests.
func NewPagesProvider(baseURL, domainSuffix string, build BuildSettings, log logger.Logger) *PagesProvider {
	return &PagesProvider{
		baseURL: baseURL,
		domain:  domainSuffix,
		build:   build,
		log:     log,
	}
}

func (p *PagesProvider) api(auth domain.HostingAuth) (*cf.API, error) {
	var opts []cf.Option
	if p.baseURL != "" {
		opts = append(opts, cf.BaseURL(p.baseURL))
	}

	if auth.IsToken() {
		return cf.NewWithAPIToken(auth.Token, opts...)
	}
	return cf.New(auth.Key, auth.Email, opts...)
}

// EnsureProject resolves or creates the Pages project bound to
// repoFullName's production branch. Lookup runs first so a retried call
// never creates a duplicate. The live URL is derived from the project name
// by convention; the platform auto-deploys on push, so no deploy trigger
// is issued here.
func (p *PagesProvider) EnsureProject(ctx context.Context, auth domain.HostingAuth, accountID, projectName, repoFullName, productionBranch string) (*domain.HostingProject, error) {
	api, err := p.api(auth)
	if err != nil {
		return nil, &domain.PipelineError{Stage: domain.StageHostingAuth, Kind: domain.KindConfig, Err: err}
	}

	rc := cf.AccountIdentifier(accountID)

	existing, err := api.GetPagesProject(ctx, rc, projectName)
	if err == nil {
		p.log.Info("hosting: project already exists", "project", projectName)
		return p.toProject(existing), nil
	}

	var notFound *cf.NotFoundError
	if !errors.As(err, &notFound) {
		return nil, wrapErr(domain.StageHostingLookup, projectName, err)
	}

	owner, repoName := splitFullName(repoFullName)

	created, err := api.CreatePagesProject(ctx, rc, cf.CreatePagesProjectParams{
		Name:             projectName,
		ProductionBranch: productionBranch,
		Source: &cf.PagesProjectSource{
			Type: "github",
			Config: &cf.PagesProjectSourceConfig{
				Owner:                        owner,
				RepoName:                     repoName,
				ProductionBranch:             productionBranch,
				DeploymentsEnabled:           true,
				ProductionDeploymentsEnabled: true,
			},
		},
		BuildConfig: cf.PagesProjectBuildConfig{
			BuildCommand:   p.build.Command,
			DestinationDir: p.build.OutputDir,
		},
		DeploymentConfigs: cf.PagesProjectDeploymentConfigs{
			Production: cf.PagesProjectDeploymentConfigEnvironment{
				EnvVars: cf.EnvironmentVariableMap{
					"HUGO_VERSION": &cf.EnvironmentVariable{
						Value: p.build.GeneratorVersion,
						Type:  cf.PlainText,
					},
				},
			},
		},
	})
	if err != nil {
		return nil, wrapErr(domain.StageHostingCreate, projectName, err)
	}

	p.log.Info("hosting: project created", "project", created.Name, "branch", productionBranch)

	return p.toProject(created), nil
}

func (p *PagesProvider) toProject(project cf.PagesProject) *domain.HostingProject {
	return &domain.HostingProject{
		Name:    project.Name,
		LiveURL: fmt.Sprintf("https://%s.%s", project.Name, p.domain),
	}
}

// wrapErr classifies a cloudflare-go error, preserving the structured
// {code, message} detail the API envelope carries.
func wrapErr(stage domain.PipelineStage, resource string, err error) error {
	pe := &domain.PipelineError{
		Stage:    stage,
		Resource: resource,
		Kind:     domain.KindTransient,
		Err:      err,
	}

	var authzErr *cf.AuthorizationError
	var authnErr *cf.AuthenticationError
	var rateErr *cf.RatelimitError
	var reqErr *cf.RequestError
	switch {
	case errors.As(err, &authzErr) || errors.As(err, &authnErr):
		pe.Kind = domain.KindConfig
	case errors.As(err, &rateErr):
		pe.Kind = domain.KindTransient
	case errors.As(err, &reqErr):
		pe.Kind = domain.KindUnexpected
		for _, info := range reqErr.Errors() {
			if pe.ProviderMessage != "" {
				pe.ProviderMessage += "; "
			}
			pe.ProviderMessage += fmt.Sprintf("%d: %s", info.Code, info.Message)
		}
	}

	return pe
}

func splitFullName(fullName string) (owner, name string) {
	for i := len(fullName) - 1; i >= 0; i-- {
		if fullName[i] == '/' {
			return fullName[:i], fullName[i+1:]
		}
	}
	return "", fullName
}
