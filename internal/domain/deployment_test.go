package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidSiteName(t *testing.T) {
	valid := []string{"my-blog", "blog_2024", "A", "0", "a-b_c-123"}
	for _, name := range valid {
		assert.True(t, ValidSiteName(name), "expected %q to be valid", name)
	}

	invalid := []string{"", "my blog", "blog!", "café", "a/b", "a.b", "blog\n"}
	for _, name := range invalid {
		assert.False(t, ValidSiteName(name), "expected %q to be invalid", name)
	}
}

func TestStatusFailedAndTerminal(t *testing.T) {
	cases := []struct {
		status   DeploymentStatus
		failed   bool
		terminal bool
	}{
		{DeploymentPending, false, false},
		{DeploymentCreatingRepository, false, false},
		{DeploymentPreparingContent, false, false},
		{DeploymentPushingContent, false, false},
		{DeploymentReadyForHosting, false, false},
		{DeploymentHostingPending, false, false},
		{DeploymentHostingDeploying, false, false},
		{DeploymentHostingLive, false, true},
		{DeploymentRepositoryFailed, true, true},
		{DeploymentHostingFailed, true, true},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.failed, tc.status.Failed(), "Failed(%s)", tc.status)
		assert.Equal(t, tc.terminal, tc.status.Terminal(), "Terminal(%s)", tc.status)
	}
}

func TestResolveHostingAuthPrefersToken(t *testing.T) {
	creds := &Credentials{
		HostingToken: "cf-token",
		HostingKey:   "legacy-key",
		HostingEmail: "owner@example.com",
	}

	auth, err := creds.ResolveHostingAuth()
	require.NoError(t, err)
	assert.True(t, auth.IsToken())
	assert.Equal(t, "cf-token", auth.Token)
	assert.Empty(t, auth.Key)
	assert.Empty(t, auth.Email)
}

func TestResolveHostingAuthKeyEmailFallback(t *testing.T) {
	creds := &Credentials{HostingKey: "legacy-key", HostingEmail: "owner@example.com"}

	auth, err := creds.ResolveHostingAuth()
	require.NoError(t, err)
	assert.False(t, auth.IsToken())
	assert.Equal(t, "legacy-key", auth.Key)
	assert.Equal(t, "owner@example.com", auth.Email)
}

func TestResolveHostingAuthRejectsPartialPair(t *testing.T) {
	for _, creds := range []*Credentials{
		{},
		{HostingKey: "legacy-key"},
		{HostingEmail: "owner@example.com"},
	} {
		_, err := creds.ResolveHostingAuth()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingCredential)

		var pe *PipelineError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, StageHostingAuth, pe.Stage)
		assert.Equal(t, KindConfig, pe.Kind)
	}
}
