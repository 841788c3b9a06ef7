package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"devmatch/internal/model"
)

const messageColumns = `
    id, sender_id, recipient_id, project_id, subject, content, message_type,
    is_read, read_at, parent_message_id, priority, is_important, is_archived,
    is_system_message, COALESCE(system_message_type, ''), created_at, updated_at`

type MessageRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMessageRepository(db *pgxpool.Pool, logger *zap.Logger) *MessageRepository {
	return &MessageRepository{
		db:     db,
		logger: logger,
	}
}

func (r *MessageRepository) Insert(ctx context.Context, m *model.Message) (int, error) {
	defer observe("insert", "messages", time.Now())

	r.logger.Debug("Inserting message",
		zap.Int("sender_id", m.SenderID),
		zap.Int("recipient_id", m.RecipientID),
	)

	var systemType *string
	if m.SystemMessageType != "" {
		systemType = &m.SystemMessageType
	}

	query := `
        INSERT INTO messages (sender_id, recipient_id, project_id, subject,
                              content, message_type, parent_message_id,
                              priority, is_important, is_system_message,
                              system_message_type)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		m.SenderID,
		m.RecipientID,
		m.ProjectID,
		m.Subject,
		m.Content,
		m.MessageType,
		m.ParentMessageID,
		m.Priority,
		m.IsImportant,
		m.IsSystemMessage,
		systemType,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)

	if err != nil {
		r.logger.Error("Failed to insert message", zap.Error(err))
		return 0, err
	}

	r.logger.Info("Message inserted successfully",
		zap.Int("id", m.ID),
		zap.Int("sender_id", m.SenderID),
		zap.Int("recipient_id", m.RecipientID),
	)
	return m.ID, nil
}

func (r *MessageRepository) FindByID(ctx context.Context, id int) (*model.Message, error) {
	defer observe("select", "messages", time.Now())

	query := `SELECT` + messageColumns + ` FROM messages WHERE id = $1`

	var m model.Message
	err := r.db.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.SenderID, &m.RecipientID, &m.ProjectID, &m.Subject,
		&m.Content, &m.MessageType, &m.IsRead, &m.ReadAt, &m.ParentMessageID,
		&m.Priority, &m.IsImportant, &m.IsArchived, &m.IsSystemMessage,
		&m.SystemMessageType, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if err != pgx.ErrNoRows {
			r.logger.Error("Failed to find message", zap.Int("id", id), zap.Error(err))
		}
		return nil, err
	}

	return &m, nil
}

// ListReplyIDs returns the ids of direct replies, oldest first. The reply
// list is always derived from parent_message_id, never stored.
func (r *MessageRepository) ListReplyIDs(ctx context.Context, parentID int) ([]int, error) {
	defer observe("select", "messages", time.Now())

	rows, err := r.db.Query(ctx,
		`SELECT id FROM messages WHERE parent_message_id = $1 ORDER BY created_at ASC`,
		parentID,
	)
	if err != nil {
		r.logger.Error("Failed to list replies", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *MessageRepository) Update(ctx context.Context, m *model.Message) error {
	defer observe("update", "messages", time.Now())

	query := `
        UPDATE messages
        SET subject = $1, content = $2, priority = $3, is_important = $4,
            is_archived = $5, updated_at = now()
        WHERE id = $6
    `
	tag, err := r.db.Exec(ctx, query,
		m.Subject, m.Content, m.Priority, m.IsImportant, m.IsArchived, m.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update message", zap.Int("id", m.ID), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (r *MessageRepository) Delete(ctx context.Context, id int) error {
	defer observe("delete", "messages", time.Now())

	tag, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete message", zap.Int("id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRowsAffected
	}

	r.logger.Info("Message deleted", zap.Int("id", id))
	return nil
}

// MarkRead flips is_read once. read_at is stamped on the false→true
// transition only and never cleared; re-marking is a no-op.
func (r *MessageRepository) MarkRead(ctx context.Context, id int) error {
	defer observe("update", "messages", time.Now())

	_, err := r.db.Exec(ctx,
		`UPDATE messages SET is_read = TRUE, read_at = now(), updated_at = now()
         WHERE id = $1 AND is_read = FALSE`,
		id,
	)
	if err != nil {
		r.logger.Error("Failed to mark message read", zap.Int("id", id), zap.Error(err))
	}
	return err
}

// Conversation returns the non-archived messages exchanged between two
// users in either direction, oldest first, optionally scoped to a project.
func (r *MessageRepository) Conversation(ctx context.Context, userA, userB int, projectID *int) ([]model.Message, error) {
	defer observe("select", "messages", time.Now())

	query := `SELECT` + messageColumns + `
        FROM messages
        WHERE ((sender_id = $1 AND recipient_id = $2)
            OR (sender_id = $2 AND recipient_id = $1))
          AND is_archived = FALSE`
	args := []any{userA, userB}

	if projectID != nil {
		args = append(args, *projectID)
		query += fmt.Sprintf(" AND project_id = $%d", len(args))
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to load conversation", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// Inbox returns non-archived thread roots addressed to the user, newest
// first.
func (r *MessageRepository) Inbox(ctx context.Context, userID, skip, limit int) ([]model.Message, error) {
	defer observe("select", "messages", time.Now())

	query := `SELECT` + messageColumns + `
        FROM messages
        WHERE recipient_id = $1
          AND is_archived = FALSE
          AND parent_message_id IS NULL
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, skip)
	if err != nil {
		r.logger.Error("Failed to load inbox", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (r *MessageRepository) CountInbox(ctx context.Context, userID int) (int, error) {
	defer observe("select", "messages", time.Now())

	var total int
	err := r.db.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM messages
        WHERE recipient_id = $1
          AND is_archived = FALSE
          AND parent_message_id IS NULL`,
		userID,
	).Scan(&total)
	return total, err
}

func (r *MessageRepository) UnreadCount(ctx context.Context, userID int) (int, error) {
	defer observe("select", "messages", time.Now())

	var total int
	err := r.db.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM messages
        WHERE recipient_id = $1 AND is_read = FALSE AND is_archived = FALSE`,
		userID,
	).Scan(&total)
	return total, err
}

func buildMessageFilter(userID int, f model.MessageFilters) (string, []any) {
	clauses := []string{
		"(sender_id = $1 OR recipient_id = $1)",
		"is_archived = $2",
	}
	args := []any{userID, f.IsArchived}

	if f.MessageType != "" {
		args = append(args, f.MessageType)
		clauses = append(clauses, fmt.Sprintf("message_type = $%d", len(args)))
	}
	if f.Priority != "" {
		args = append(args, f.Priority)
		clauses = append(clauses, fmt.Sprintf("priority = $%d", len(args)))
	}
	if f.IsRead != nil {
		args = append(args, *f.IsRead)
		clauses = append(clauses, fmt.Sprintf("is_read = $%d", len(args)))
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListForUser returns every message the user sent or received, filtered and
// paginated, newest first.
func (r *MessageRepository) ListForUser(ctx context.Context, userID int, f model.MessageFilters, skip, limit int) ([]model.Message, error) {
	defer observe("select", "messages", time.Now())

	where, args := buildMessageFilter(userID, f)
	args = append(args, limit, skip)

	query := fmt.Sprintf(
		`SELECT %s FROM messages%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		messageColumns, where, len(args)-1, len(args),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list messages", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (r *MessageRepository) CountForUser(ctx context.Context, userID int, f model.MessageFilters) (int, error) {
	defer observe("select", "messages", time.Now())

	where, args := buildMessageFilter(userID, f)

	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM messages`+where, args...).Scan(&total)
	return total, err
}

func scanMessages(rows pgx.Rows) ([]model.Message, error) {
	var messages []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(
			&m.ID, &m.SenderID, &m.RecipientID, &m.ProjectID, &m.Subject,
			&m.Content, &m.MessageType, &m.IsRead, &m.ReadAt, &m.ParentMessageID,
			&m.Priority, &m.IsImportant, &m.IsArchived, &m.IsSystemMessage,
			&m.SystemMessageType, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
