package domain

import "context"

// Credentials holds per-owner secret material. Read-only to the pipeline;
// values are sealed at rest and never logged in cleartext.
type Credentials struct {
	OwnerID string

	GitToken string

	HostingToken     string
	HostingKey       string
	HostingEmail     string
	HostingAccountID string
}

// HostingAuth is the resolved request-signing strategy for the hosting API.
// Exactly one variant is populated.
type HostingAuth struct {
	Token string

	Key   string
	Email string
}

func (a HostingAuth) IsToken() bool { return a.Token != "" }

// ResolveHostingAuth picks the signing strategy once, before any API call.
// An API token wins over the legacy key+email pair when both are present.
func (c *Credentials) ResolveHostingAuth() (HostingAuth, error) {
	switch {
	case c.HostingToken != "":
		return HostingAuth{Token: c.HostingToken}, nil
	case c.HostingKey != "" && c.HostingEmail != "":
		return HostingAuth{Key: c.HostingKey, Email: c.HostingEmail}, nil
	default:
		return HostingAuth{}, &PipelineError{
			Stage: StageHostingAuth,
			Kind:  KindConfig,
			Err:   ErrMissingCredential,
		}
	}
}

type CredentialRepository interface {
	Get(ctx context.Context, ownerID string) (*Credentials, error)
	Put(ctx context.Context, creds *Credentials) error
	Delete(ctx context.Context, ownerID string) error
}
