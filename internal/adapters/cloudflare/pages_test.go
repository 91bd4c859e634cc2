package cloudflare

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"blogsmith/internal/domain"
	"blogsmith/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBuild = BuildSettings{
	Command:          "hugo",
	OutputDir:        "public",
	GeneratorVersion: "0.125.4",
}

type fakePagesAPI struct {
	lookupCalls int
	createCalls int

	project map[string]any

	createFailCode int
	createFailMsg  string

	lastAuthHeader map[string]string
	lastCreateBody map[string]any
}

func (f *fakePagesAPI) server(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("GET /accounts/{account}/pages/projects/{name}", func(w http.ResponseWriter, r *http.Request) {
		f.lookupCalls++
		f.captureAuth(r)

		if f.project == nil {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"success":false,"errors":[{"code":8000007,"message":"Project not found."}],"messages":[],"result":null}`)
			return
		}

		writeEnvelope(w, f.project)
	})

	mux.HandleFunc("POST /accounts/{account}/pages/projects", func(w http.ResponseWriter, r *http.Request) {
		f.createCalls++
		f.captureAuth(r)

		if f.createFailCode != 0 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, `{"success":false,"errors":[{"code":%d,"message":%q}],"messages":[],"result":null}`, f.createFailCode, f.createFailMsg)
			return
		}

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.lastCreateBody = body

		f.project = map[string]any{
			"name":              body["name"],
			"subdomain":         fmt.Sprintf("%s.pages.dev", body["name"]),
			"production_branch": body["production_branch"],
		}

		writeEnvelope(w, f.project)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakePagesAPI) captureAuth(r *http.Request) {
	f.lastAuthHeader = map[string]string{
		"Authorization": r.Header.Get("Authorization"),
		"X-Auth-Key":    r.Header.Get("X-Auth-Key"),
		"X-Auth-Email":  r.Header.Get("X-Auth-Email"),
	}
}

func writeEnvelope(w http.ResponseWriter, result any) {
	resp := map[string]any{
		"success":  true,
		"errors":   []any{},
		"messages": []any{},
		"result":   result,
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func tokenAuth() domain.HostingAuth {
	return domain.HostingAuth{Token: "cf-token"}
}

func TestEnsureProjectCreatesOnce(t *testing.T) {
	api := &fakePagesAPI{}
	srv := api.server(t)
	p := NewPagesProvider(srv.URL, "pages.dev", testBuild, logger.Nop())
	ctx := context.Background()

	first, err := p.EnsureProject(ctx, tokenAuth(), "acc-1", "my-blog", "octo/my-blog", "main")
	require.NoError(t, err)
	assert.Equal(t, "my-blog", first.Name)
	assert.Equal(t, "https://my-blog.pages.dev", first.LiveURL)

	second, err := p.EnsureProject(ctx, tokenAuth(), "acc-1", "my-blog", "octo/my-blog", "main")
	require.NoError(t, err)
	assert.Equal(t, first.LiveURL, second.LiveURL)

	assert.Equal(t, 1, api.createCalls, "second call is a pure lookup")
	assert.Equal(t, 2, api.lookupCalls)
}

func TestEnsureProjectPinsBuildConfiguration(t *testing.T) {
	api := &fakePagesAPI{}
	srv := api.server(t)
	p := NewPagesProvider(srv.URL, "pages.dev", testBuild, logger.Nop())

	_, err := p.EnsureProject(context.Background(), tokenAuth(), "acc-1", "my-blog", "octo/my-blog", "main")
	require.NoError(t, err)

	require.NotNil(t, api.lastCreateBody)
	assert.Equal(t, "main", api.lastCreateBody["production_branch"])

	buildConfig, ok := api.lastCreateBody["build_config"].(map[string]any)
	require.True(t, ok, "create request must carry build_config")
	assert.Equal(t, "hugo", buildConfig["build_command"])
	assert.Equal(t, "public", buildConfig["destination_dir"])

	source, ok := api.lastCreateBody["source"].(map[string]any)
	require.True(t, ok)
	sourceConfig := source["config"].(map[string]any)
	assert.Equal(t, "octo", sourceConfig["owner"])
	assert.Equal(t, "my-blog", sourceConfig["repo_name"])
}

func TestEnsureProjectSurfacesStructuredError(t *testing.T) {
	api := &fakePagesAPI{createFailCode: 8000, createFailMsg: "quota exceeded"}
	srv := api.server(t)
	p := NewPagesProvider(srv.URL, "pages.dev", testBuild, logger.Nop())

	_, err := p.EnsureProject(context.Background(), tokenAuth(), "acc-1", "my-blog", "octo/my-blog", "main")
	require.Error(t, err)

	var pe *domain.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.StageHostingCreate, pe.Stage)
	assert.Contains(t, pe.ProviderMessage, "quota exceeded")
	assert.Contains(t, pe.ProviderMessage, "8000")
}

func TestEnsureProjectSupportsKeyAndEmailAuth(t *testing.T) {
	api := &fakePagesAPI{}
	srv := api.server(t)
	p := NewPagesProvider(srv.URL, "pages.dev", testBuild, logger.Nop())

	auth := domain.HostingAuth{Key: "legacy-key", Email: "owner@example.com"}
	_, err := p.EnsureProject(context.Background(), auth, "acc-1", "my-blog", "octo/my-blog", "main")
	require.NoError(t, err)

	assert.Equal(t, "legacy-key", api.lastAuthHeader["X-Auth-Key"])
	assert.Equal(t, "owner@example.com", api.lastAuthHeader["X-Auth-Email"])
	assert.Empty(t, api.lastAuthHeader["Authorization"])
}

func TestEnsureProjectTokenAuthHeader(t *testing.T) {
	api := &fakePagesAPI{}
	srv := api.server(t)
	p := NewPagesProvider(srv.URL, "pages.dev", testBuild, logger.Nop())

	_, err := p.EnsureProject(context.Background(), tokenAuth(), "acc-1", "my-blog", "octo/my-blog", "main")
	require.NoError(t, err)

	assert.Equal(t, "Bearer cf-token", api.lastAuthHeader["Authorization"])
}
