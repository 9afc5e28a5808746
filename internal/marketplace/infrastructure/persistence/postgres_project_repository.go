package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
	"github.com/felixgeelhaar/escrowly/internal/shared/infrastructure/database"
)

// PostgresProjectRepository stores projects with native PostgreSQL types:
// JSONB for nested records and text[] for tags and participant lookups.
type PostgresProjectRepository struct {
	pool *pgxpool.Pool
}

var _ domain.ProjectRepository = (*PostgresProjectRepository)(nil)

// NewPostgresProjectRepository creates a repository over pool.
func NewPostgresProjectRepository(pool *pgxpool.Pool) *PostgresProjectRepository {
	return &PostgresProjectRepository{pool: pool}
}

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// db returns the pgx transaction of a surrounding unit of work, or the pool.
func (r *PostgresProjectRepository) db(ctx context.Context) pgQuerier {
	if info, ok := database.TxInfoFromContext(ctx); ok {
		if tx, ok := info.Tx.(interface{ Tx() pgx.Tx }); ok {
			return tx.Tx()
		}
	}
	return r.pool
}

const pgProjectColumns = `id, title, description, client_id, contractor_id, status, due_date,
	budget, unread_messages, m_score, s_score, proposals, milestones, tags,
	posted_at, needs_evaluation, created_at, updated_at`

// participants lists the user IDs FindByParticipant matches on.
func participants(p *domain.Project) []string {
	ids := []string{p.ClientID.String()}
	if p.ContractorID != uuid.Nil {
		ids = append(ids, p.ContractorID.String())
	}
	return ids
}

func (r *PostgresProjectRepository) Save(ctx context.Context, p *domain.Project) error {
	proposals, err := marshalList(p.Proposals)
	if err != nil {
		return fmt.Errorf("encode proposals: %w", err)
	}
	milestones, err := marshalList(p.Milestones)
	if err != nil {
		return fmt.Errorf("encode milestones: %w", err)
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	var contractor *uuid.UUID
	if p.ContractorID != uuid.Nil {
		contractor = &p.ContractorID
	}

	_, err = r.db(ctx).Exec(ctx, `
		INSERT INTO projects (`+pgProjectColumns+`, participant_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb, $13::jsonb, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			client_id = EXCLUDED.client_id,
			contractor_id = EXCLUDED.contractor_id,
			status = EXCLUDED.status,
			due_date = EXCLUDED.due_date,
			budget = EXCLUDED.budget,
			unread_messages = EXCLUDED.unread_messages,
			m_score = EXCLUDED.m_score,
			s_score = EXCLUDED.s_score,
			proposals = EXCLUDED.proposals,
			milestones = EXCLUDED.milestones,
			tags = EXCLUDED.tags,
			posted_at = EXCLUDED.posted_at,
			needs_evaluation = EXCLUDED.needs_evaluation,
			updated_at = EXCLUDED.updated_at,
			participant_ids = EXCLUDED.participant_ids`,
		p.ID, p.Title, p.Description, p.ClientID, contractor, p.Status.String(), p.DueDate,
		p.Budget, p.UnreadMessages, p.MScore, p.SScore, proposals, milestones, pq.Array(tags),
		p.PostedAt, p.NeedsEvaluation, p.CreatedAt, p.UpdatedAt, pq.Array(participants(p)),
	)
	return err
}

func (r *PostgresProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	p, err := scanPgProject(r.db(ctx).QueryRow(ctx, `SELECT `+pgProjectColumns+` FROM projects WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProjectNotFound
	}
	return p, err
}

func (r *PostgresProjectRepository) FindByParticipant(ctx context.Context, userID uuid.UUID, includeOpen bool) ([]*domain.Project, error) {
	return r.query(ctx, `SELECT `+pgProjectColumns+` FROM projects
		WHERE $1 = ANY(participant_ids) OR ($2 AND status = $3)
		ORDER BY created_at, id`,
		userID.String(), includeOpen, domain.StatusOpenForProposals.String())
}

func (r *PostgresProjectRepository) List(ctx context.Context, f domain.ProjectFilter) ([]*domain.Project, error) {
	q := `SELECT ` + pgProjectColumns + ` FROM projects WHERE 1=1`
	args := []any{}
	if f.Status != "" {
		args = append(args, f.Status.String())
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.ClientID != uuid.Nil {
		args = append(args, f.ClientID)
		q += fmt.Sprintf(" AND client_id = $%d", len(args))
	}
	q += " ORDER BY created_at, id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return r.query(ctx, q, args...)
}

func (r *PostgresProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db(ctx).Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return err
}

func (r *PostgresProjectRepository) query(ctx context.Context, q string, args ...any) ([]*domain.Project, error) {
	rows, err := r.db(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Project{}
	for rows.Next() {
		p, err := scanPgProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPgProject(row pgx.Row) (*domain.Project, error) {
	var (
		p                     domain.Project
		contractor            *uuid.UUID
		status                string
		proposals, milestones []byte
		tags                  []string
		dueDate, postedAt     *time.Time
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.ClientID, &contractor, &status, &dueDate,
		&p.Budget, &p.UnreadMessages, &p.MScore, &p.SScore, &proposals, &milestones, pq.Array(&tags),
		&postedAt, &p.NeedsEvaluation, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if contractor != nil {
		p.ContractorID = *contractor
	}
	p.Status = domain.NormalizeStatus(status)
	p.DueDate = dueDate
	p.PostedAt = postedAt
	p.Tags = tags
	if err := json.Unmarshal(proposals, &p.Proposals); err != nil {
		return nil, fmt.Errorf("decode proposals: %w", err)
	}
	if err := json.Unmarshal(milestones, &p.Milestones); err != nil {
		return nil, fmt.Errorf("decode milestones: %w", err)
	}
	return &p, nil
}
