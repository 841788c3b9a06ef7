// Package messaging stores direct messages between users, threads replies,
// and tracks read/unread/archived state.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"devmatch/internal/errs"
	"devmatch/internal/model"
	"devmatch/internal/repository"
	"devmatch/pkg/metrics"
	"devmatch/pkg/mq"
)

type Repository interface {
	Insert(ctx context.Context, m *model.Message) (int, error)
	FindByID(ctx context.Context, id int) (*model.Message, error)
	ListReplyIDs(ctx context.Context, parentID int) ([]int, error)
	Update(ctx context.Context, m *model.Message) error
	Delete(ctx context.Context, id int) error
	MarkRead(ctx context.Context, id int) error
	Conversation(ctx context.Context, userA, userB int, projectID *int) ([]model.Message, error)
	Inbox(ctx context.Context, userID, skip, limit int) ([]model.Message, error)
	CountInbox(ctx context.Context, userID int) (int, error)
	UnreadCount(ctx context.Context, userID int) (int, error)
	ListForUser(ctx context.Context, userID int, f model.MessageFilters, skip, limit int) ([]model.Message, error)
	CountForUser(ctx context.Context, userID int, f model.MessageFilters) (int, error)
}

type Publisher interface {
	Publish(routingKey string, payload any) error
}

type Service struct {
	repo      Repository
	publisher Publisher
	logger    *zap.Logger
}

func NewService(repo Repository, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Service) publishSent(m *model.Message) {
	if s.publisher == nil {
		return
	}
	payload := mq.MessageSentPayload{
		MessageID:   m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
	}
	if err := s.publisher.Publish(mq.RoutingKeyMessageSent, payload); err != nil {
		s.logger.Error("Failed to publish event",
			zap.String("routing_key", mq.RoutingKeyMessageSent),
			zap.Error(err),
		)
		metrics.IncrementEventsPublished(mq.RoutingKeyMessageSent, "failed")
		return
	}
	metrics.IncrementEventsPublished(mq.RoutingKeyMessageSent, "success")
}

type SendInput struct {
	RecipientID int    `json:"recipient_id"`
	ProjectID   *int   `json:"project_id"`
	Subject     string `json:"subject"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	Priority    string `json:"priority"`
	IsImportant bool   `json:"is_important"`
}

type ReplyInput struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

type UpdateInput struct {
	Subject     *string `json:"subject"`
	Content     *string `json:"content"`
	Priority    *string `json:"priority"`
	IsImportant *bool   `json:"is_important"`
	IsArchived  *bool   `json:"is_archived"`
}

var validMessageTypes = map[string]bool{
	model.MessageTypeGeneral: true, model.MessageTypeProjectInquiry: true,
	model.MessageTypeApplication: true, model.MessageTypeMilestoneUpdate: true,
	model.MessageTypePayment: true, model.MessageTypeSupport: true,
}

var validMessagePriorities = map[string]bool{
	model.MessagePriorityLow: true, model.MessagePriorityNormal: true,
	model.MessagePriorityHigh: true, model.MessagePriorityUrgent: true,
}

func validateContent(subject, content string) []errs.FieldError {
	var fields []errs.FieldError
	if len(subject) < 5 || len(subject) > 200 {
		fields = append(fields, errs.Field("subject", "must be between 5 and 200 characters"))
	}
	if len(content) < 10 || len(content) > 5000 {
		fields = append(fields, errs.Field("content", "must be between 10 and 5000 characters"))
	}
	return fields
}

// Send creates a new thread-root message from sender to recipient.
func (s *Service) Send(ctx context.Context, senderID int, in SendInput) (*model.Message, error) {
	fields := validateContent(in.Subject, in.Content)
	if in.RecipientID <= 0 {
		fields = append(fields, errs.Field("recipient_id", "is required"))
	} else if in.RecipientID == senderID {
		fields = append(fields, errs.Field("recipient_id", "cannot message yourself"))
	}
	if in.MessageType != "" && !validMessageTypes[in.MessageType] {
		fields = append(fields, errs.Field("message_type", "invalid message type"))
	}
	if in.Priority != "" && !validMessagePriorities[in.Priority] {
		fields = append(fields, errs.Field("priority", "invalid priority"))
	}
	if len(fields) > 0 {
		return nil, errs.Validation(fields...)
	}

	m := &model.Message{
		SenderID:    senderID,
		RecipientID: in.RecipientID,
		ProjectID:   in.ProjectID,
		Subject:     in.Subject,
		Content:     in.Content,
		MessageType: model.MessageTypeGeneral,
		Priority:    model.MessagePriorityNormal,
		IsImportant: in.IsImportant,
	}
	if in.MessageType != "" {
		m.MessageType = in.MessageType
	}
	if in.Priority != "" {
		m.Priority = in.Priority
	}

	if _, err := s.repo.Insert(ctx, m); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	metrics.IncrementMessagesSent("user")
	s.publishSent(m)
	return m, nil
}

// Reply creates a message under an existing one. The reply inherits the
// parent's project and goes to the other participant; the parent's reply
// list is derived from parent_message_id, so nothing else is written.
func (s *Service) Reply(ctx context.Context, parentID, senderID int, in ReplyInput) (*model.Message, error) {
	parent, err := s.repo.FindByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	if senderID != parent.SenderID && senderID != parent.RecipientID {
		return nil, errs.ErrForbidden
	}

	subject := in.Subject
	if subject == "" {
		subject = "Re: " + parent.Subject
	}
	if fields := validateContent(subject, in.Content); len(fields) > 0 {
		return nil, errs.Validation(fields...)
	}

	recipientID := parent.RecipientID
	if senderID == parent.RecipientID {
		recipientID = parent.SenderID
	}

	m := &model.Message{
		SenderID:        senderID,
		RecipientID:     recipientID,
		ProjectID:       parent.ProjectID,
		Subject:         subject,
		Content:         in.Content,
		MessageType:     parent.MessageType,
		ParentMessageID: &parentID,
		Priority:        model.MessagePriorityNormal,
	}

	if _, err := s.repo.Insert(ctx, m); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	metrics.IncrementMessagesSent("user")
	s.publishSent(m)
	return m, nil
}

// Get returns one message with its derived reply ids. Participant-only.
// A recipient fetching an unread message marks it read.
func (s *Service) Get(ctx context.Context, id, callerID int) (*model.Message, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	if callerID != m.SenderID && callerID != m.RecipientID {
		return nil, errs.ErrForbidden
	}

	if callerID == m.RecipientID && !m.IsRead {
		if err := s.repo.MarkRead(ctx, id); err != nil {
			s.logger.Warn("Failed to mark message read on fetch",
				zap.Int("message_id", id),
				zap.Error(err),
			)
		} else {
			now := time.Now()
			m.IsRead = true
			m.ReadAt = &now
		}
	}

	replies, err := s.repo.ListReplyIDs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	m.Replies = replies

	return m, nil
}

// MarkRead flips a message to read. Recipient-only, idempotent: readAt is
// stamped once and never cleared.
func (s *Service) MarkRead(ctx context.Context, id, callerID int) error {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	if callerID != m.RecipientID {
		return errs.ErrForbidden
	}
	if m.IsRead {
		return nil
	}

	if err := s.repo.MarkRead(ctx, id); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	return nil
}

// Update edits message content. Sender-only.
func (s *Service) Update(ctx context.Context, id, callerID int, in UpdateInput) (*model.Message, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	if callerID != m.SenderID {
		return nil, errs.ErrForbidden
	}

	var fields []errs.FieldError
	if in.Subject != nil {
		if len(*in.Subject) < 5 || len(*in.Subject) > 200 {
			fields = append(fields, errs.Field("subject", "must be between 5 and 200 characters"))
		} else {
			m.Subject = *in.Subject
		}
	}
	if in.Content != nil {
		if len(*in.Content) < 10 || len(*in.Content) > 5000 {
			fields = append(fields, errs.Field("content", "must be between 10 and 5000 characters"))
		} else {
			m.Content = *in.Content
		}
	}
	if in.Priority != nil {
		if !validMessagePriorities[*in.Priority] {
			fields = append(fields, errs.Field("priority", "invalid priority"))
		} else {
			m.Priority = *in.Priority
		}
	}
	if in.IsImportant != nil {
		m.IsImportant = *in.IsImportant
	}
	if in.IsArchived != nil {
		m.IsArchived = *in.IsArchived
	}
	if len(fields) > 0 {
		return nil, errs.Validation(fields...)
	}

	if err := s.repo.Update(ctx, m); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	return m, nil
}

// Delete removes a message. Sender or recipient may call.
func (s *Service) Delete(ctx context.Context, id, callerID int) error {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	if callerID != m.SenderID && callerID != m.RecipientID {
		return errs.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return errs.ErrNotFound
		}
		return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	return nil
}

// Conversation returns the messages between the caller and another user,
// oldest first, optionally scoped to a project.
func (s *Service) Conversation(ctx context.Context, callerID, otherID int, projectID *int) ([]model.Message, error) {
	messages, err := s.repo.Conversation(ctx, callerID, otherID, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	return messages, nil
}

// Inbox returns the caller's non-archived thread roots, newest first.
func (s *Service) Inbox(ctx context.Context, userID, page, limit int) ([]model.Message, model.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	skip := (page - 1) * limit

	messages, err := s.repo.Inbox(ctx, userID, skip, limit)
	if err != nil {
		return nil, model.Pagination{}, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	total, err := s.repo.CountInbox(ctx, userID)
	if err != nil {
		return nil, model.Pagination{}, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	return messages, model.NewPagination(page, limit, total, len(messages)), nil
}

// UnreadCount counts non-archived unread messages addressed to the user.
func (s *Service) UnreadCount(ctx context.Context, userID int) (int, error) {
	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	return count, nil
}

// List returns every message the user participates in, filtered and
// paginated.
func (s *Service) List(ctx context.Context, userID int, f model.MessageFilters, page, limit int) ([]model.Message, model.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	skip := (page - 1) * limit

	messages, err := s.repo.ListForUser(ctx, userID, f, skip, limit)
	if err != nil {
		return nil, model.Pagination{}, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	total, err := s.repo.CountForUser(ctx, userID, f)
	if err != nil {
		return nil, model.Pagination{}, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	return messages, model.NewPagination(page, limit, total, len(messages)), nil
}
