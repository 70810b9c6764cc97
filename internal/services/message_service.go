package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoodesk/internal/models"
	pgrepo "github.com/yoockh/yoodesk/internal/repositories/postgres"
	"github.com/yoockh/yoodesk/internal/utils"
)

type MessageService interface {
	List(ctx context.Context, viewerID, conversationID string) ([]MessageView, error)
	Send(ctx context.Context, senderID, conversationID, content string) (*MessageView, error)
	MarkRead(ctx context.Context, viewerID, messageID string) error
}

type messageService struct {
	convos   pgrepo.ConversationRepo
	messages pgrepo.MessageRepository
	jobs     JobQueue
	logger   *logrus.Logger
	now      func() time.Time
}

func NewMessageService(convos pgrepo.ConversationRepo, messages pgrepo.MessageRepository, jobs JobQueue, logger *logrus.Logger) MessageService {
	return &messageService{
		convos:   convos,
		messages: messages,
		jobs:     jobs,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *messageService) List(ctx context.Context, viewerID, conversationID string) ([]MessageView, error) {
	const op = "MessageService.List"

	c, err := s.participantConversation(ctx, viewerID, conversationID, op)
	if err != nil {
		return nil, err
	}
	rows, err := s.messages.ListByConversation(ctx, c.ID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list messages", err)
	}
	return projectMessages(rows), nil
}

func (s *messageService) Send(ctx context.Context, senderID, conversationID, content string) (*MessageView, error) {
	const op = "MessageService.Send"

	if strings.TrimSpace(content) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "content can't be blank", nil)
	}
	c, err := s.participantConversation(ctx, senderID, conversationID, op)
	if err != nil {
		return nil, err
	}

	role := models.RoleExpert
	if c.InitiatorID == senderID {
		role = models.RoleInitiator
	}

	now := s.now()
	m := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: c.ID,
		SenderID:       senderID,
		SenderRole:     role,
		Content:        content,
		CreatedAt:      now,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create message", err)
	}
	if err := s.convos.TouchLastMessage(ctx, c.ID, now); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to update conversation", err)
	}

	switch {
	case c.AssignedExpertID == nil:
		enqueue(ctx, s.jobs, s.logger, models.Job{Kind: models.JobAutoAssign, ConversationID: c.ID})
	case role == models.RoleInitiator:
		enqueue(ctx, s.jobs, s.logger, models.Job{Kind: models.JobFAQRespond, ConversationID: c.ID, MessageID: m.ID})
	}

	stored, err := s.messages.GetByID(ctx, m.ID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load message", err)
	}
	v := projectMessage(stored)
	return &v, nil
}

func (s *messageService) MarkRead(ctx context.Context, viewerID, messageID string) error {
	const op = "MessageService.MarkRead"

	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "message not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to load message", err)
	}

	c, err := s.convos.GetByID(ctx, m.ConversationID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "conversation not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to load conversation", err)
	}
	if !c.IsParticipant(viewerID) {
		return utils.E(utils.CodeForbidden, op, "unauthorized", nil)
	}
	if m.SenderID == viewerID {
		return utils.E(utils.CodeForbidden, op, "cannot mark your own messages as read", nil)
	}

	if err := s.messages.MarkRead(ctx, m.ID, s.now()); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "message not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to mark message read", err)
	}
	return nil
}

// participantConversation returns NotFound for a missing conversation and
// Forbidden for one the caller does not take part in.
func (s *messageService) participantConversation(ctx context.Context, userID, conversationID, op string) (*models.Conversation, error) {
	if conversationID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "conversation_id is required", nil)
	}
	c, err := s.convos.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "conversation not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load conversation", err)
	}
	if !c.IsParticipant(userID) {
		return nil, utils.E(utils.CodeForbidden, op, "unauthorized", nil)
	}
	return c, nil
}
