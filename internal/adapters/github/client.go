// Package github implements the source-control port against the GitHub
// REST and git data APIs.
package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"blogsmith/internal/domain"
	"blogsmith/internal/logger"

	gogithub "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

type Provider struct {
	baseURL string
	log     logger.Logger
}

// NewProvider builds a Provider. baseURL overrides the API endpoint and is
// empty in production; it must end with a slash when set.
func NewProvider(baseURL string, log logger.Logger) *Provider {
	return &Provider{baseURL: baseURL, log: log}
}

// client builds an authenticated API client for one call. Clients are
// cheap; holding none avoids ambient per-owner state in the provider.
func (p *Provider) client(ctx context.Context, token string) (*gogithub.Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := gogithub.NewClient(oauth2.NewClient(ctx, ts))

	if p.baseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(p.baseURL, "/") + "/")
		if err != nil {
			return nil, err
		}
		client.BaseURL = base
	}

	return client, nil
}

// wrapErr classifies a go-github error into a structured pipeline error.
func wrapErr(stage domain.PipelineStage, resource string, resp *gogithub.Response, err error) error {
	pe := &domain.PipelineError{
		Stage:    stage,
		Resource: resource,
		Kind:     domain.KindTransient,
		Err:      err,
	}

	var apiErr *gogithub.ErrorResponse
	if errors.As(err, &apiErr) {
		pe.ProviderMessage = apiErr.Message
		for _, detail := range apiErr.Errors {
			if detail.Message != "" {
				pe.ProviderMessage += "; " + detail.Message
			}
		}
	}

	if resp != nil {
		pe.HTTPStatus = resp.StatusCode
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			pe.Kind = domain.KindConfig
		case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
			pe.Kind = domain.KindConflict
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			pe.Kind = domain.KindTransient
		case resp.StatusCode >= 400:
			pe.Kind = domain.KindUnexpected
		}
	}

	return pe
}

func notFound(resp *gogithub.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}
