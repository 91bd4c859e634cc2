package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blogsmith/internal/domain"
	"blogsmith/internal/secrets"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CredentialRepository stores per-owner secret material, sealed before it
// touches the database.
type CredentialRepository struct {
	db  *pgxpool.Pool
	box *secrets.Box
}

func NewCredentialRepository(db *pgxpool.Pool, box *secrets.Box) domain.CredentialRepository {
	return &CredentialRepository{db: db, box: box}
}

func (r *CredentialRepository) Get(ctx context.Context, ownerID string) (*domain.Credentials, error) {
	query := `
		SELECT owner_id, git_token, hosting_token, hosting_key, hosting_email, hosting_account_id
		FROM credentials
		WHERE owner_id = $1
	`

	var c domain.Credentials
	var sealed [4]string
	if err := r.db.QueryRow(ctx, query, ownerID).Scan(
		&c.OwnerID,
		&sealed[0],
		&sealed[1],
		&sealed[2],
		&sealed[3],
		&c.HostingAccountID,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to scan credentials: %w", err)
	}

	var err error
	if c.GitToken, err = r.box.Open(sealed[0]); err != nil {
		return nil, fmt.Errorf("failed to unseal git token: %w", err)
	}
	if c.HostingToken, err = r.box.Open(sealed[1]); err != nil {
		return nil, fmt.Errorf("failed to unseal hosting token: %w", err)
	}
	if c.HostingKey, err = r.box.Open(sealed[2]); err != nil {
		return nil, fmt.Errorf("failed to unseal hosting key: %w", err)
	}
	if c.HostingEmail, err = r.box.Open(sealed[3]); err != nil {
		return nil, fmt.Errorf("failed to unseal hosting email: %w", err)
	}

	return &c, nil
}

func (r *CredentialRepository) Put(ctx context.Context, creds *domain.Credentials) error {
	sealedToken, err := r.box.Seal(creds.GitToken)
	if err != nil {
		return fmt.Errorf("failed to seal git token: %w", err)
	}
	sealedHostingToken, err := r.box.Seal(creds.HostingToken)
	if err != nil {
		return fmt.Errorf("failed to seal hosting token: %w", err)
	}
	sealedKey, err := r.box.Seal(creds.HostingKey)
	if err != nil {
		return fmt.Errorf("failed to seal hosting key: %w", err)
	}
	sealedEmail, err := r.box.Seal(creds.HostingEmail)
	if err != nil {
		return fmt.Errorf("failed to seal hosting email: %w", err)
	}

	query := `
		INSERT INTO credentials (owner_id, git_token, hosting_token, hosting_key, hosting_email, hosting_account_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_id) DO UPDATE SET
			git_token = EXCLUDED.git_token,
			hosting_token = EXCLUDED.hosting_token,
			hosting_key = EXCLUDED.hosting_key,
			hosting_email = EXCLUDED.hosting_email,
			hosting_account_id = EXCLUDED.hosting_account_id,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.Exec(ctx, query,
		creds.OwnerID,
		sealedToken,
		sealedHostingToken,
		sealedKey,
		sealedEmail,
		creds.HostingAccountID,
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to upsert credentials: %w", err)
	}

	return nil
}

func (r *CredentialRepository) Delete(ctx context.Context, ownerID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM credentials WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}

	return nil
}
