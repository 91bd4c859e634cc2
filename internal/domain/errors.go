package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredential   = errors.New("required credential is not configured")
	ErrCredentialsNotFound = errors.New("credentials not found")
)

// ErrorKind classifies a pipeline failure for retry and messaging decisions.
type ErrorKind string

const (
	// KindConfig covers user-correctable input/settings problems. Never
	// retried automatically; the user has to fix something first.
	KindConfig ErrorKind = "config"
	// KindConflict covers concurrent-mutation detections such as a branch
	// tip moving under a fast-forward update.
	KindConflict ErrorKind = "conflict"
	// KindTransient covers network failures, rate limits and provider 5xx.
	KindTransient ErrorKind = "transient"
	// KindUnexpected covers malformed responses and everything else.
	KindUnexpected ErrorKind = "unexpected"
)

// PipelineStage names the operation that failed, for diagnostics.
type PipelineStage string

const (
	StageCreateRepository PipelineStage = "create_repository"
	StageResolveBranch    PipelineStage = "resolve_branch"
	StageCreateBlob       PipelineStage = "create_blob"
	StageCreateTree       PipelineStage = "create_tree"
	StageCreateCommit     PipelineStage = "create_commit"
	StageUpdateRef        PipelineStage = "update_ref"
	StageHostingAuth      PipelineStage = "hosting_auth"
	StageHostingLookup    PipelineStage = "hosting_lookup"
	StageHostingCreate    PipelineStage = "hosting_create"
)

// PipelineError is the structured error every adapter failure is wrapped
// into before it reaches the orchestrator. Translation to a user-facing
// message is a pure function over these fields.
type PipelineError struct {
	Stage           PipelineStage
	Kind            ErrorKind
	HTTPStatus      int
	ProviderMessage string
	Resource        string
	Err             error
}

func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Stage)
	if e.Resource != "" {
		msg += " (" + e.Resource + ")"
	}
	if e.ProviderMessage != "" {
		msg += ": " + e.ProviderMessage
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Retryable reports whether an explicit user-triggered retry can succeed
// without the user changing anything.
func (e *PipelineError) Retryable() bool {
	return e.Kind == KindTransient || e.Kind == KindConflict
}
