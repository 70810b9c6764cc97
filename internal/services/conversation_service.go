package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoodesk/internal/models"
	pgrepo "github.com/yoockh/yoodesk/internal/repositories/postgres"
	"github.com/yoockh/yoodesk/internal/utils"
)

type ConversationService interface {
	Create(ctx context.Context, initiatorID, title string) (*ConversationView, error)
	List(ctx context.Context, viewerID string) ([]ConversationView, error)
	Get(ctx context.Context, viewerID, id string) (*ConversationView, error)
}

type conversationService struct {
	convos pgrepo.ConversationRepo
	views  ViewBuilder
	jobs   JobQueue
	logger *logrus.Logger
}

func NewConversationService(convos pgrepo.ConversationRepo, views ViewBuilder, jobs JobQueue, logger *logrus.Logger) ConversationService {
	return &conversationService{convos: convos, views: views, jobs: jobs, logger: logger}
}

func (s *conversationService) Create(ctx context.Context, initiatorID, title string) (*ConversationView, error) {
	const op = "ConversationService.Create"

	title = strings.TrimSpace(title)
	if initiatorID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "unauthorized", nil)
	}
	if title == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "title is required", nil)
	}
	if len(title) > models.MaxTitleLength {
		return nil, utils.E(utils.CodeInvalidArgument, op, "title is too long", nil)
	}

	c := &models.Conversation{
		ID:          uuid.NewString(),
		Title:       title,
		Status:      models.StatusWaiting,
		InitiatorID: initiatorID,
	}
	if err := s.convos.Create(ctx, c); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create conversation", err)
	}

	enqueue(ctx, s.jobs, s.logger, models.Job{Kind: models.JobAutoAssign, ConversationID: c.ID})

	// reload for the initiator association
	stored, err := s.convos.GetByID(ctx, c.ID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load conversation", err)
	}
	v, err := s.views.Project(ctx, stored, initiatorID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to build conversation view", err)
	}
	return &v, nil
}

func (s *conversationService) List(ctx context.Context, viewerID string) ([]ConversationView, error) {
	const op = "ConversationService.List"

	rows, err := s.convos.ListForParticipant(ctx, viewerID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list conversations", err)
	}
	out, err := s.views.ProjectAll(ctx, rows, viewerID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to build conversation views", err)
	}
	return out, nil
}

func (s *conversationService) Get(ctx context.Context, viewerID, id string) (*ConversationView, error) {
	const op = "ConversationService.Get"

	c, err := loadVisibleConversation(ctx, s.convos, viewerID, id, op)
	if err != nil {
		return nil, err
	}
	v, err := s.views.Project(ctx, c, viewerID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to build conversation view", err)
	}
	return &v, nil
}

// loadVisibleConversation hides conversations the viewer does not take part
// in behind NotFound.
func loadVisibleConversation(ctx context.Context, convos pgrepo.ConversationRepo, viewerID, id, op string) (*models.Conversation, error) {
	c, err := convos.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "conversation not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load conversation", err)
	}
	if !c.IsParticipant(viewerID) {
		return nil, utils.E(utils.CodeNotFound, op, "conversation not found", utils.ErrNotFound)
	}
	return c, nil
}
