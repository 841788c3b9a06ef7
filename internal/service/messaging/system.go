package messaging

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"devmatch/internal/errs"
	"devmatch/internal/model"
	"devmatch/pkg/metrics"
)

// SendSystem writes an automated message. Bypasses the user validation path
// since the content is generated, not typed.
func (s *Service) SendSystem(ctx context.Context, senderID, recipientID int, projectID *int, systemType, subject, content string) (*model.Message, error) {
	m := &model.Message{
		SenderID:          senderID,
		RecipientID:       recipientID,
		ProjectID:         projectID,
		Subject:           subject,
		Content:           content,
		MessageType:       model.MessageTypeMilestoneUpdate,
		Priority:          model.MessagePriorityHigh,
		IsImportant:       true,
		IsSystemMessage:   true,
		SystemMessageType: systemType,
	}

	if _, err := s.repo.Insert(ctx, m); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}

	metrics.IncrementMessagesSent("system")
	s.publishSent(m)
	s.logger.Info("System message sent",
		zap.Int("message_id", m.ID),
		zap.String("system_type", systemType),
		zap.Int("recipient_id", recipientID),
	)
	return m, nil
}

// ProjectAssigned notifies the developer that their application was accepted.
func (s *Service) ProjectAssigned(ctx context.Context, p *model.Project, a *model.Application) error {
	subject := fmt.Sprintf("You've been assigned to \"%s\"", p.Title)
	content := fmt.Sprintf(
		"Congratulations! Your application for \"%s\" has been accepted and the project is now in progress. "+
			"You can coordinate the details with the client through messages on this project.",
		p.Title,
	)
	_, err := s.SendSystem(ctx, p.OwnerID, a.DeveloperID, &p.ID, model.SystemMessageProjectAssigned, subject, content)
	return err
}

// ProjectCompleted notifies the assigned developer that the project reached
// completion.
func (s *Service) ProjectCompleted(ctx context.Context, p *model.Project) error {
	if p.AssignedDeveloperID == nil {
		return nil
	}
	subject := fmt.Sprintf("Project \"%s\" completed", p.Title)
	content := fmt.Sprintf(
		"The project \"%s\" has been marked as completed. Thank you for your work!",
		p.Title,
	)
	_, err := s.SendSystem(ctx, p.OwnerID, *p.AssignedDeveloperID, &p.ID, model.SystemMessageProjectCompleted, subject, content)
	return err
}
