package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
	"github.com/felixgeelhaar/escrowly/internal/shared/infrastructure/database"
)

const projectColumns = `id, title, description, client_id, contractor_id, status, due_date,
	budget, unread_messages, m_score, s_score, proposals, milestones, tags,
	posted_at, needs_evaluation, created_at, updated_at`

// SQLiteProjectRepository stores projects in the SQLite schema. Nested
// proposals, milestones and tags are kept as JSON text columns.
type SQLiteProjectRepository struct {
	conn database.Connection
}

var _ domain.ProjectRepository = (*SQLiteProjectRepository)(nil)

// NewSQLiteProjectRepository creates a repository over conn.
func NewSQLiteProjectRepository(conn database.Connection) *SQLiteProjectRepository {
	return &SQLiteProjectRepository{conn: conn}
}

func (r *SQLiteProjectRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

// Save upserts the project.
func (r *SQLiteProjectRepository) Save(ctx context.Context, p *domain.Project) error {
	proposals, err := marshalList(p.Proposals)
	if err != nil {
		return fmt.Errorf("encode proposals: %w", err)
	}
	milestones, err := marshalList(p.Milestones)
	if err != nil {
		return fmt.Errorf("encode milestones: %w", err)
	}
	tags, err := marshalList(p.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	contractor := ""
	if p.ContractorID != uuid.Nil {
		contractor = p.ContractorID.String()
	}

	_, err = r.exec(ctx).Exec(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			client_id = excluded.client_id,
			contractor_id = excluded.contractor_id,
			status = excluded.status,
			due_date = excluded.due_date,
			budget = excluded.budget,
			unread_messages = excluded.unread_messages,
			m_score = excluded.m_score,
			s_score = excluded.s_score,
			proposals = excluded.proposals,
			milestones = excluded.milestones,
			tags = excluded.tags,
			posted_at = excluded.posted_at,
			needs_evaluation = excluded.needs_evaluation,
			updated_at = excluded.updated_at`,
		p.ID.String(), p.Title, p.Description, p.ClientID.String(), contractor,
		p.Status.String(), database.FormatTimePtr(p.DueDate), p.Budget, p.UnreadMessages,
		nullInt(p.MScore), nullInt(p.SScore), proposals, milestones, tags,
		database.FormatTimePtr(p.PostedAt), p.NeedsEvaluation,
		database.FormatTime(p.CreatedAt), database.FormatTime(p.UpdatedAt),
	)
	return err
}

func (r *SQLiteProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	row := r.exec(ctx).QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id.String())
	p, err := scanSQLiteProject(row)
	if database.IsNoRows(err) {
		return nil, domain.ErrProjectNotFound
	}
	return p, err
}

func (r *SQLiteProjectRepository) FindByParticipant(ctx context.Context, userID uuid.UUID, includeOpen bool) ([]*domain.Project, error) {
	uid := userID.String()
	return r.query(ctx, `SELECT `+projectColumns+` FROM projects
		WHERE client_id = ? OR contractor_id = ? OR (? AND status = ?)
		ORDER BY created_at, id`,
		uid, uid, includeOpen, domain.StatusOpenForProposals.String())
}

func (r *SQLiteProjectRepository) List(ctx context.Context, f domain.ProjectFilter) ([]*domain.Project, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status.String())
	}
	if f.ClientID != uuid.Nil {
		where = append(where, "client_id = ?")
		args = append(args, f.ClientID.String())
	}

	q := `SELECT ` + projectColumns + ` FROM projects`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at, id"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return r.query(ctx, q, args...)
}

func (r *SQLiteProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.exec(ctx).Exec(ctx, `DELETE FROM projects WHERE id = ?`, id.String())
	return err
}

func (r *SQLiteProjectRepository) query(ctx context.Context, q string, args ...any) ([]*domain.Project, error) {
	rows, err := r.exec(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Project{}
	for rows.Next() {
		p, err := scanSQLiteProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanSQLiteProject(row database.Row) (*domain.Project, error) {
	var (
		id, clientID, contractorID, status string
		dueDate, postedAt                  sql.NullString
		mScore, sScore                     sql.NullInt64
		proposals, milestones, tags        string
		createdAt, updatedAt               string
		p                                  domain.Project
	)
	err := row.Scan(
		&id, &p.Title, &p.Description, &clientID, &contractorID, &status, &dueDate,
		&p.Budget, &p.UnreadMessages, &mScore, &sScore, &proposals, &milestones, &tags,
		&postedAt, &p.NeedsEvaluation, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid project id %q: %w", id, err)
	}
	if p.ClientID, err = uuid.Parse(clientID); err != nil {
		return nil, fmt.Errorf("invalid client_id: %w", err)
	}
	if contractorID != "" {
		if p.ContractorID, err = uuid.Parse(contractorID); err != nil {
			return nil, fmt.Errorf("invalid contractor_id: %w", err)
		}
	}
	p.Status = domain.NormalizeStatus(status)
	p.MScore = intPtr(mScore)
	p.SScore = intPtr(sScore)

	if p.DueDate, err = database.ParseTimePtr(dueDate); err != nil {
		return nil, fmt.Errorf("invalid due_date: %w", err)
	}
	if p.PostedAt, err = database.ParseTimePtr(postedAt); err != nil {
		return nil, fmt.Errorf("invalid posted_at: %w", err)
	}
	if p.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	if p.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at: %w", err)
	}

	if err := json.Unmarshal([]byte(proposals), &p.Proposals); err != nil {
		return nil, fmt.Errorf("decode proposals: %w", err)
	}
	if err := json.Unmarshal([]byte(milestones), &p.Milestones); err != nil {
		return nil, fmt.Errorf("decode milestones: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return &p, nil
}

// marshalList encodes a slice, writing nil as an empty JSON array.
func marshalList[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	data, err := json.Marshal(v)
	return string(data), err
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
