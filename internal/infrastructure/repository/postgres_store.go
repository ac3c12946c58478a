package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"signflow/internal/domain/entity"
	"signflow/internal/domain/repository"
	"signflow/internal/infrastructure/database"
)

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type postgresStore struct {
	*postgresQueries
	db     *database.Database
	logger *zap.Logger
}

// NewPostgresStore returns a Store backed by PostgreSQL
func NewPostgresStore(db *database.Database, logger *zap.Logger) repository.Store {
	return &postgresStore{
		postgresQueries: &postgresQueries{db: db.DB},
		db:              db,
		logger:          logger,
	}
}

func (s *postgresStore) RunTransaction(ctx context.Context, fn func(q repository.Queries) error) error {
	tx, err := s.db.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	q := &postgresQueries{db: tx, journal: true}
	if err := fn(q); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back transaction", zap.Error(rbErr))
		}
		s.logger.Debug("Transaction rolled back",
			zap.Int("operations", len(q.ops)),
			zap.Error(err),
		)
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Debug("Transaction committed", zap.Int("operations", len(q.ops)))
	return nil
}

func (s *postgresStore) ListAuditLogs(ctx context.Context, envelopeID int64, limit int) ([]entity.AuditLogEntry, error) {
	query := `
		SELECT id, envelope_id, type, data, name, email, user_id, ip_address, user_agent, created_at
		FROM audit_logs
		WHERE envelope_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`

	rows, err := s.db.DB.QueryContext(ctx, query, envelopeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	entries := make([]entity.AuditLogEntry, 0)
	for rows.Next() {
		var entry entity.AuditLogEntry
		var data []byte
		var userID sql.NullInt64

		if err := rows.Scan(
			&entry.ID,
			&entry.EnvelopeID,
			&entry.Type,
			&data,
			&entry.Name,
			&entry.Email,
			&userID,
			&entry.IPAddress,
			&entry.UserAgent,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}

		entry.Data = json.RawMessage(data)
		if userID.Valid {
			id := userID.Int64
			entry.UserID = &id
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// postgresQueries runs statements on a connection or a transaction.
// Writes are journaled only inside a transaction.
type postgresQueries struct {
	db      execer
	journal bool
	ops     []repository.Operation
}

func (q *postgresQueries) record(kind repository.OperationKind, id int64) {
	if !q.journal {
		return
	}
	q.ops = append(q.ops, repository.Operation{Kind: kind, TargetID: id})
}

func (q *postgresQueries) Operations() []repository.Operation {
	return q.ops
}

func (q *postgresQueries) FindEnvelope(ctx context.Context, filter repository.EnvelopeFilter) (*entity.Envelope, error) {
	query := `
		SELECT e.id, e.title, e.status, e.signing_order, e.user_id, e.team_id, e.meta, e.auth_options,
			e.page_count, e.completed_at, e.created_at, e.updated_at
		FROM envelopes e
	`

	var arg interface{}
	switch {
	case filter.ID != nil:
		query += ` WHERE e.id = $1`
		arg = *filter.ID
	case filter.RecipientToken != "":
		query += ` JOIN recipients r ON r.envelope_id = e.id WHERE r.token = $1`
		arg = filter.RecipientToken
	default:
		return nil, fmt.Errorf("envelope filter requires an id or recipient token")
	}

	var envelope entity.Envelope
	var teamID sql.NullInt64
	var completedAt sql.NullTime
	var meta, authOptions []byte

	err := q.db.QueryRowContext(ctx, query, arg).Scan(
		&envelope.ID,
		&envelope.Title,
		&envelope.Status,
		&envelope.SigningOrder,
		&envelope.UserID,
		&teamID,
		&meta,
		&authOptions,
		&envelope.PageCount,
		&completedAt,
		&envelope.CreatedAt,
		&envelope.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil // Not found, return nil without error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find envelope: %w", err)
	}

	if teamID.Valid {
		id := teamID.Int64
		envelope.TeamID = &id
	}
	if completedAt.Valid {
		t := completedAt.Time
		envelope.CompletedAt = &t
	}
	if err := json.Unmarshal(meta, &envelope.Meta); err != nil {
		return nil, fmt.Errorf("failed to decode envelope meta: %w", err)
	}
	if err := json.Unmarshal(authOptions, &envelope.AuthOptions); err != nil {
		return nil, fmt.Errorf("failed to decode envelope auth options: %w", err)
	}

	return &envelope, nil
}

func (q *postgresQueries) FindRecipients(ctx context.Context, filter repository.RecipientFilter) ([]entity.Recipient, error) {
	where := newWhereBuilder()
	if filter.EnvelopeID != 0 {
		where.add("envelope_id", filter.EnvelopeID)
	}
	if filter.ID != nil {
		where.add("id", *filter.ID)
	}
	if filter.Token != "" {
		where.add("token", filter.Token)
	}

	query := `
		SELECT id, envelope_id, name, email, token, role, signing_order, signing_status, send_status,
			auth_options, signed_at, rejection_reason
		FROM recipients` + where.sql() + `
		ORDER BY id ASC
	`

	rows, err := q.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find recipients: %w", err)
	}
	defer rows.Close()

	recipients := make([]entity.Recipient, 0)
	for rows.Next() {
		var recipient entity.Recipient
		var signingOrder sql.NullInt64
		var signedAt sql.NullTime
		var authOptions []byte

		if err := rows.Scan(
			&recipient.ID,
			&recipient.EnvelopeID,
			&recipient.Name,
			&recipient.Email,
			&recipient.Token,
			&recipient.Role,
			&signingOrder,
			&recipient.SigningStatus,
			&recipient.SendStatus,
			&authOptions,
			&signedAt,
			&recipient.RejectionReason,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}

		if signingOrder.Valid {
			order := int(signingOrder.Int64)
			recipient.SigningOrder = &order
		}
		if signedAt.Valid {
			t := signedAt.Time
			recipient.SignedAt = &t
		}
		if err := json.Unmarshal(authOptions, &recipient.AuthOptions); err != nil {
			return nil, fmt.Errorf("failed to decode recipient auth options: %w", err)
		}

		recipients = append(recipients, recipient)
	}

	return recipients, rows.Err()
}

func (q *postgresQueries) FindFields(ctx context.Context, filter repository.FieldFilter) ([]entity.Field, error) {
	where := newWhereBuilder()
	if filter.EnvelopeID != 0 {
		where.add("f.envelope_id", filter.EnvelopeID)
	}
	if filter.RecipientID != nil {
		where.add("f.recipient_id", *filter.RecipientID)
	}
	if filter.AutoSign != nil {
		where.add("f.autosign", *filter.AutoSign)
	}
	if filter.Inserted != nil {
		where.add("f.inserted", *filter.Inserted)
	}

	query := `
		SELECT f.id, f.envelope_id, f.recipient_id, f.type, f.page, f.position_x, f.position_y,
			f.width, f.height, f.inserted, f.autosign, f.custom_text, f.meta, r.role
		FROM fields f
		JOIN recipients r ON r.id = f.recipient_id` + where.sql() + `
		ORDER BY f.id ASC
	`

	rows, err := q.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find fields: %w", err)
	}
	defer rows.Close()

	fields := make([]entity.Field, 0)
	for rows.Next() {
		var field entity.Field
		var meta []byte

		if err := rows.Scan(
			&field.ID,
			&field.EnvelopeID,
			&field.RecipientID,
			&field.Type,
			&field.Page,
			&field.PositionX,
			&field.PositionY,
			&field.Width,
			&field.Height,
			&field.Inserted,
			&field.AutoSign,
			&field.CustomText,
			&meta,
			&field.RecipientRole,
		); err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}

		if err := json.Unmarshal(meta, &field.Meta); err != nil {
			return nil, fmt.Errorf("failed to decode field meta: %w", err)
		}

		fields = append(fields, field)
	}

	return fields, rows.Err()
}

func (q *postgresQueries) UpdateEnvelope(ctx context.Context, id int64, patch repository.EnvelopePatch) error {
	set := newSetBuilder()
	if patch.Status != nil {
		set.add("status", string(*patch.Status))
	}
	if patch.CompletedAt != nil {
		set.add("completed_at", *patch.CompletedAt)
	}
	set.add("updated_at", time.Now())

	var expect interface{}
	if patch.ExpectStatus != nil {
		expect = string(*patch.ExpectStatus)
	}

	if err := q.update(ctx, "envelopes", "status", id, set, expect); err != nil {
		return fmt.Errorf("failed to update envelope %d: %w", id, err)
	}

	q.record(repository.OpUpdateEnvelope, id)
	return nil
}

func (q *postgresQueries) UpdateRecipient(ctx context.Context, id int64, patch repository.RecipientPatch) error {
	set := newSetBuilder()
	if patch.Name != nil {
		set.add("name", *patch.Name)
	}
	if patch.Email != nil {
		set.add("email", *patch.Email)
	}
	if patch.SigningStatus != nil {
		set.add("signing_status", string(*patch.SigningStatus))
	}
	if patch.SendStatus != nil {
		set.add("send_status", string(*patch.SendStatus))
	}
	if patch.SignedAt != nil {
		set.add("signed_at", *patch.SignedAt)
	}
	if patch.RejectionReason != nil {
		set.add("rejection_reason", *patch.RejectionReason)
	}

	var expect interface{}
	if patch.ExpectSigningStatus != nil {
		expect = string(*patch.ExpectSigningStatus)
	}

	if err := q.update(ctx, "recipients", "signing_status", id, set, expect); err != nil {
		return fmt.Errorf("failed to update recipient %d: %w", id, err)
	}

	q.record(repository.OpUpdateRecipient, id)
	return nil
}

func (q *postgresQueries) UpdateField(ctx context.Context, id int64, patch repository.FieldPatch) error {
	set := newSetBuilder()
	if patch.Inserted != nil {
		set.add("inserted", *patch.Inserted)
	}
	if patch.CustomText != nil {
		set.add("custom_text", *patch.CustomText)
	}

	if err := q.update(ctx, "fields", "", id, set, nil); err != nil {
		return fmt.Errorf("failed to update field %d: %w", id, err)
	}

	q.record(repository.OpUpdateField, id)
	return nil
}

// update applies set to the row with id. When expect is non-nil the row must also have
// guardColumn = expect, otherwise ErrConflict is returned.
func (q *postgresQueries) update(ctx context.Context, table, guardColumn string, id int64, set *setBuilder, expect interface{}) error {
	if len(set.columns) == 0 {
		return nil
	}

	args := append([]interface{}{}, set.args...)
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", table, strings.Join(set.columns, ", "), len(args))

	if expect != nil {
		args = append(args, expect)
		query += fmt.Sprintf(" AND %s = $%d", guardColumn, len(args))
	}

	result, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if expect != nil {
			return repository.ErrConflict
		}
		return repository.ErrNotFound
	}

	return nil
}

func (q *postgresQueries) CreateSignature(ctx context.Context, signature *entity.Signature) error {
	query := `
		INSERT INTO signatures (field_id, recipient_id, typed_signature, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	if signature.CreatedAt.IsZero() {
		signature.CreatedAt = time.Now()
	}

	err := q.db.QueryRowContext(ctx, query,
		signature.FieldID,
		signature.RecipientID,
		signature.TypedSignature,
		signature.CreatedAt,
	).Scan(&signature.ID)
	if err != nil {
		return fmt.Errorf("failed to create signature: %w", err)
	}

	q.record(repository.OpCreateSignature, signature.ID)
	return nil
}

func (q *postgresQueries) CreateAuditLogEntry(ctx context.Context, entry *entity.AuditLogEntry) error {
	query := `
		INSERT INTO audit_logs (envelope_id, type, data, name, email, user_id, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	data := []byte(entry.Data)
	if len(data) == 0 {
		data = []byte("{}")
	}

	var userID sql.NullInt64
	if entry.UserID != nil {
		userID = sql.NullInt64{Int64: *entry.UserID, Valid: true}
	}

	err := q.db.QueryRowContext(ctx, query,
		entry.EnvelopeID,
		string(entry.Type),
		data,
		entry.Name,
		entry.Email,
		userID,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}

	q.record(repository.OpCreateAuditLog, entry.ID)
	return nil
}

func (q *postgresQueries) CreateEnvelope(ctx context.Context, envelope *entity.Envelope) error {
	query := `
		INSERT INTO envelopes (title, status, signing_order, user_id, team_id, meta, auth_options, page_count, document_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING id
	`

	meta, err := json.Marshal(envelope.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode envelope meta: %w", err)
	}
	authOptions, err := json.Marshal(envelope.AuthOptions)
	if err != nil {
		return fmt.Errorf("failed to encode envelope auth options: %w", err)
	}

	var teamID sql.NullInt64
	if envelope.TeamID != nil {
		teamID = sql.NullInt64{Int64: *envelope.TeamID, Valid: true}
	}

	now := time.Now()
	err = q.db.QueryRowContext(ctx, query,
		envelope.Title,
		string(envelope.Status),
		string(envelope.SigningOrder),
		envelope.UserID,
		teamID,
		meta,
		authOptions,
		envelope.PageCount,
		envelope.DocumentData,
		now,
	).Scan(&envelope.ID)
	if err != nil {
		return fmt.Errorf("failed to create envelope: %w", err)
	}

	envelope.CreatedAt = now
	envelope.UpdatedAt = now
	q.record(repository.OpCreateEnvelope, envelope.ID)
	return nil
}

func (q *postgresQueries) CreateRecipient(ctx context.Context, recipient *entity.Recipient) error {
	query := `
		INSERT INTO recipients (envelope_id, name, email, token, role, signing_order, signing_status, send_status, auth_options)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	authOptions, err := json.Marshal(recipient.AuthOptions)
	if err != nil {
		return fmt.Errorf("failed to encode recipient auth options: %w", err)
	}

	var signingOrder sql.NullInt64
	if recipient.SigningOrder != nil {
		signingOrder = sql.NullInt64{Int64: int64(*recipient.SigningOrder), Valid: true}
	}

	err = q.db.QueryRowContext(ctx, query,
		recipient.EnvelopeID,
		recipient.Name,
		recipient.Email,
		recipient.Token,
		string(recipient.Role),
		signingOrder,
		string(recipient.SigningStatus),
		string(recipient.SendStatus),
		authOptions,
	).Scan(&recipient.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("recipient token already in use: %w", err)
		}
		return fmt.Errorf("failed to create recipient: %w", err)
	}

	q.record(repository.OpCreateRecipient, recipient.ID)
	return nil
}

func (q *postgresQueries) CreateField(ctx context.Context, field *entity.Field) error {
	query := `
		INSERT INTO fields (envelope_id, recipient_id, type, page, position_x, position_y, width, height, inserted, autosign, custom_text, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	meta, err := json.Marshal(field.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode field meta: %w", err)
	}

	err = q.db.QueryRowContext(ctx, query,
		field.EnvelopeID,
		field.RecipientID,
		string(field.Type),
		field.Page,
		field.PositionX,
		field.PositionY,
		field.Width,
		field.Height,
		field.Inserted,
		field.AutoSign,
		field.CustomText,
		meta,
	).Scan(&field.ID)
	if err != nil {
		return fmt.Errorf("failed to create field: %w", err)
	}

	q.record(repository.OpCreateField, field.ID)
	return nil
}
