package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/advisorhq/lead-intake-platform/internal/fraud"
	"github.com/advisorhq/lead-intake-platform/internal/qualify"
)

const leadColumns = `id, name, email, phone, initial_message, source, ip_address, goal, timeline, budget_range, quality_score, is_fraud, fraud_signals, status, assigned_to, created_at, updated_at`

// db is the subset of pgxpool.Pool the repository needs, so tests can
// inject a pgxmock pool.
type db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(conn db) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create inserts a new row merging input, qualification and fraud fields.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateLeadRequest, qual qualify.Result, check fraud.Result) (*Lead, error) {
	id := uuid.New()

	signalsJSON, err := json.Marshal(check.Signals)
	if err != nil {
		return nil, fmt.Errorf("leads: marshal fraud signals: %w", err)
	}

	query := `
		INSERT INTO leads (id, name, email, phone, initial_message, source, ip_address,
			goal, timeline, budget_range, quality_score, is_fraud, fraud_signals)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, $12, $13)
		RETURNING status, created_at
	`

	var (
		status    string
		createdAt time.Time
	)
	if err := r.db.QueryRow(ctx, query,
		id,
		req.Name,
		req.Email,
		req.Phone,
		req.InitialMessage,
		req.Source,
		req.IPAddress,
		qual.Goal,
		qual.Timeline,
		qual.BudgetRange,
		qual.QualityScore,
		check.IsFraud,
		signalsJSON,
	).Scan(&status, &createdAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}

	goal := qual.Goal
	timeline := qual.Timeline
	budget := qual.BudgetRange
	score := qual.QualityScore

	return &Lead{
		ID:             id.String(),
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		InitialMessage: req.InitialMessage,
		Source:         req.Source,
		IPAddress:      req.IPAddress,
		Goal:           &goal,
		Timeline:       &timeline,
		BudgetRange:    &budget,
		QualityScore:   &score,
		IsFraud:        check.IsFraud,
		FraudSignals:   append([]string(nil), check.Signals...),
		Status:         status,
		CreatedAt:      createdAt,
	}, nil
}

// GetByID fetches a single lead.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	lead, err := scanLead(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

// List returns leads newest-created first with optional filters.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]*Lead, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.MinScore != nil {
		args = append(args, *filter.MinScore)
		clauses = append(clauses, "quality_score >= $"+strconv.Itoa(len(args)))
	}
	if filter.MaxScore != nil {
		args = append(args, *filter.MaxScore)
		clauses = append(clauses, "quality_score <= $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + leadColumns + ` FROM leads`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += " LIMIT $" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	var result []*Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		result = append(result, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: list rows: %w", err)
	}
	return result, nil
}

// Update mutates status and/or assignee; nothing else is writable after
// creation.
func (r *PostgresRepository) Update(ctx context.Context, id string, req *UpdateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.Status == nil && req.AssignedTo == nil {
		return r.GetByID(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	if req.Status != nil {
		args = append(args, *req.Status)
		sets = append(sets, "status = $"+strconv.Itoa(len(args)))
	}
	if req.AssignedTo != nil {
		args = append(args, *req.AssignedTo)
		sets = append(sets, "assigned_to = $"+strconv.Itoa(len(args)))
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, id)
	query := `UPDATE leads SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)) +
		` RETURNING ` + leadColumns

	lead, err := scanLead(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: update failed: %w", err)
	}
	return lead, nil
}

// Stats aggregates the dashboard counts.
func (r *PostgresRepository) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	queries := []struct {
		sql  string
		dest *int64
	}{
		{`SELECT COUNT(*) FROM leads`, &stats.Total},
		{`SELECT COUNT(*) FROM leads WHERE quality_score >= 70`, &stats.Hot},
		{`SELECT COUNT(*) FROM leads WHERE quality_score >= 40 AND quality_score < 70`, &stats.Warm},
		{`SELECT COUNT(*) FROM leads WHERE quality_score < 40`, &stats.Cold},
		{`SELECT COUNT(*) FROM leads WHERE is_fraud = true`, &stats.Fraud},
	}
	for _, q := range queries {
		if err := r.db.QueryRow(ctx, q.sql).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("leads: stats count: %w", err)
		}
	}
	return stats, nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var (
		lead        Lead
		ipAddress   *string
		signalsJSON []byte
	)
	if err := row.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&lead.InitialMessage,
		&lead.Source,
		&ipAddress,
		&lead.Goal,
		&lead.Timeline,
		&lead.BudgetRange,
		&lead.QualityScore,
		&lead.IsFraud,
		&signalsJSON,
		&lead.Status,
		&lead.AssignedTo,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if ipAddress != nil {
		lead.IPAddress = *ipAddress
	}
	if len(signalsJSON) > 0 {
		if err := json.Unmarshal(signalsJSON, &lead.FraudSignals); err != nil {
			return nil, fmt.Errorf("unmarshal fraud signals: %w", err)
		}
	}
	return &lead, nil
}
