package deploy

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"blogsmith/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestUserMessageByKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "missing credential",
			err:  &domain.PipelineError{Kind: domain.KindConfig, Err: domain.ErrMissingCredential},
			want: "Required credentials are missing",
		},
		{
			name: "provider rejection",
			err:  &domain.PipelineError{Kind: domain.KindConfig, HTTPStatus: 422},
			want: "provider rejected",
		},
		{
			name: "fast-forward conflict",
			err:  &domain.PipelineError{Kind: domain.KindConflict, Stage: domain.StageUpdateRef},
			want: "changed while we were writing",
		},
		{
			name: "transient",
			err:  &domain.PipelineError{Kind: domain.KindTransient, HTTPStatus: 503},
			want: "temporary problem",
		},
		{
			name: "unstructured error",
			err:  errors.New("boom"),
			want: "unexpectedly",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, UserMessage(tt.err), tt.want)
		})
	}
}

func TestFormatLastErrorIncludesStageAndDetail(t *testing.T) {
	err := &domain.PipelineError{
		Stage:           domain.StageHostingCreate,
		Kind:            domain.KindUnexpected,
		Resource:        "my-blog",
		ProviderMessage: "8000: quota exceeded",
	}

	got := formatLastError(err)
	assert.Contains(t, got, "hosting_create")
	assert.Contains(t, got, "my-blog")
	assert.Contains(t, got, "quota exceeded")
}

func TestFormatLastErrorIsBounded(t *testing.T) {
	err := &domain.PipelineError{
		Stage:           domain.StageCreateBlob,
		Kind:            domain.KindUnexpected,
		ProviderMessage: strings.Repeat("x", 5000),
	}

	got := formatLastError(err)
	assert.LessOrEqual(t, len(got), maxErrorLen)
	assert.NotEmpty(t, got)
}

func TestFormatLastErrorKeepsValidUTF8(t *testing.T) {
	// Provider messages can carry multi-byte text; the bound must never cut
	// through the middle of a rune.
	err := &domain.PipelineError{
		Stage:           domain.StageHostingCreate,
		Kind:            domain.KindUnexpected,
		ProviderMessage: strings.Repeat("é", 3000),
	}

	got := formatLastError(err)
	assert.LessOrEqual(t, len(got), maxErrorLen)
	assert.True(t, utf8.ValidString(got), "truncation must land on a rune boundary")
}

func TestTruncateRespectsRuneBoundaries(t *testing.T) {
	s := "abé"
	assert.Equal(t, "ab", truncate(s, 3), "cutting inside the 2-byte rune trims back")
	assert.Equal(t, s, truncate(s, 4))
	assert.Equal(t, "", truncate("世界", 2))
}

func TestPipelineErrorRetryable(t *testing.T) {
	assert.True(t, (&domain.PipelineError{Kind: domain.KindTransient}).Retryable())
	assert.True(t, (&domain.PipelineError{Kind: domain.KindConflict}).Retryable())
	assert.False(t, (&domain.PipelineError{Kind: domain.KindConfig}).Retryable())
	assert.False(t, (&domain.PipelineError{Kind: domain.KindUnexpected}).Retryable())
}
