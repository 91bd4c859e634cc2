package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"blogsmith/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const deploymentColumns = `
	id,
	owner_id,
	site_name,
	title,
	theme,
	status,
	repository_url,
	live_url,
	hosting_project_name,
	hosting_account_id,
	last_error,
	note,
	created_at
`

type DeploymentRepository struct {
	db *pgxpool.Pool
}

func NewDeploymentRepository(db *pgxpool.Pool) domain.DeploymentRepository {
	return &DeploymentRepository{db: db}
}

func (r *DeploymentRepository) Create(ctx context.Context, d *domain.Deployment) error {
	query := `
		INSERT INTO deployments (id, owner_id, site_name, title, theme, status, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	now := time.Now().UTC()
	if err := r.db.QueryRow(ctx, query,
		d.ID,
		d.OwnerID,
		d.SiteName,
		d.Title,
		d.Theme,
		d.Status,
		d.Note,
		now,
	).Scan(&d.CreatedAt); err != nil {
		return fmt.Errorf("failed to create deployment: %w", err)
	}

	return nil
}

func (r *DeploymentRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.Deployment, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployments WHERE id = $1 AND owner_id = $2`

	d, err := scanDeployment(r.db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDeploymentNotFound
		}
		return nil, fmt.Errorf("failed to scan deployment: %w", err)
	}

	return d, nil
}

func (r *DeploymentRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Deployment, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployments WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deployments: %w", err)
	}
	defer rows.Close()

	var deployments []*domain.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deployments: %w", err)
		}
		deployments = append(deployments, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return deployments, nil
}

// Update applies patch as a single write and returns the updated record.
// Per-row last-write-wins; there is no cross-row transaction.
func (r *DeploymentRepository) Update(ctx context.Context, id string, patch domain.DeploymentPatch) (*domain.Deployment, error) {
	sets := []string{}
	args := []any{}
	argCounter := 1

	set := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argCounter))
		args = append(args, value)
		argCounter++
	}

	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.RepositoryURL != nil {
		set("repository_url", *patch.RepositoryURL)
	}
	if patch.LiveURL != nil {
		set("live_url", *patch.LiveURL)
	}
	if patch.HostingProjectName != nil {
		set("hosting_project_name", *patch.HostingProjectName)
	}
	if patch.HostingAccountID != nil {
		set("hosting_account_id", *patch.HostingAccountID)
	}
	if patch.LastError != nil {
		set("last_error", *patch.LastError)
	} else if patch.ClearError {
		sets = append(sets, "last_error = NULL")
	}
	if patch.Note != nil {
		set("note", *patch.Note)
	} else if patch.ClearNote {
		sets = append(sets, "note = NULL")
	}

	if len(sets) == 0 {
		return nil, errors.New("empty deployment patch")
	}

	query := fmt.Sprintf(
		`UPDATE deployments SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), argCounter, deploymentColumns,
	)
	args = append(args, id)

	d, err := scanDeployment(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDeploymentNotFound
		}
		return nil, fmt.Errorf("failed to update deployment: %w", err)
	}

	return d, nil
}

func (r *DeploymentRepository) Delete(ctx context.Context, ownerID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM deployments WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete deployment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDeploymentNotFound
	}

	return nil
}

func scanDeployment(row pgx.Row) (*domain.Deployment, error) {
	var d domain.Deployment
	if err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.SiteName,
		&d.Title,
		&d.Theme,
		&d.Status,
		&d.RepositoryURL,
		&d.LiveURL,
		&d.HostingProjectName,
		&d.HostingAccountID,
		&d.LastError,
		&d.Note,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}

	return &d, nil
}
