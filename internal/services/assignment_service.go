package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoodesk/internal/metrics"
	pgrepo "github.com/yoockh/yoodesk/internal/repositories/postgres"
	"github.com/yoockh/yoodesk/internal/utils"
)

type ExpertQueue struct {
	WaitingConversations  []ConversationView `json:"waitingConversations"`
	AssignedConversations []ConversationView `json:"assignedConversations"`
}

type AssignmentView struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	ExpertID       string     `json:"expertId"`
	Status         string     `json:"status"`
	AssignedAt     time.Time  `json:"assignedAt"`
	ResolvedAt     *time.Time `json:"resolvedAt"`
	Rating         *int       `json:"rating"`
}

type AssignmentService interface {
	Claim(ctx context.Context, conversationID, expertID string) error
	Unclaim(ctx context.Context, conversationID, expertID string) error
	// AutoAssign is the background job body. It only returns store failures;
	// "nobody to assign" is a normal outcome.
	AutoAssign(ctx context.Context, conversationID string) error
	Queue(ctx context.Context, expertID string) (*ExpertQueue, error)
	History(ctx context.Context, expertID string) ([]AssignmentView, error)
}

type assignmentService struct {
	convos      pgrepo.ConversationRepo
	messages    pgrepo.MessageRepository
	assignments pgrepo.AssignmentRepository
	directory   ExpertDirectory
	matcher     Matcher
	views       ViewBuilder
	logger      *logrus.Logger
	now         func() time.Time
}

func NewAssignmentService(
	convos pgrepo.ConversationRepo,
	messages pgrepo.MessageRepository,
	assignments pgrepo.AssignmentRepository,
	directory ExpertDirectory,
	matcher Matcher,
	views ViewBuilder,
	logger *logrus.Logger,
) AssignmentService {
	return &assignmentService{
		convos:      convos,
		messages:    messages,
		assignments: assignments,
		directory:   directory,
		matcher:     matcher,
		views:       views,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *assignmentService) Claim(ctx context.Context, conversationID, expertID string) error {
	const op = "AssignmentService.Claim"

	if conversationID == "" || expertID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "conversation_id and expert_id are required", nil)
	}

	_, err := s.convos.Assign(ctx, conversationID, expertID, uuid.NewString(), s.now())
	switch {
	case err == nil:
		metrics.Claims.WithLabelValues("manual", "claimed").Inc()
		return nil
	case errors.Is(err, utils.ErrAlreadyAssigned):
		metrics.Claims.WithLabelValues("manual", "conflict").Inc()
		return utils.E(utils.CodeConflict, op, "conversation is already assigned to an expert", err)
	case errors.Is(err, utils.ErrExpertNotFound):
		metrics.Claims.WithLabelValues("manual", "not_found").Inc()
		return utils.E(utils.CodeNotFound, op, "expert not found", err)
	case errors.Is(err, utils.ErrNotFound):
		metrics.Claims.WithLabelValues("manual", "not_found").Inc()
		return utils.E(utils.CodeNotFound, op, "conversation not found", err)
	default:
		metrics.Claims.WithLabelValues("manual", "error").Inc()
		return utils.E(utils.CodeInternal, op, "failed to claim conversation", err)
	}
}

func (s *assignmentService) Unclaim(ctx context.Context, conversationID, expertID string) error {
	const op = "AssignmentService.Unclaim"

	if conversationID == "" || expertID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "conversation_id and expert_id are required", nil)
	}

	c, err := s.convos.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "conversation not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to load conversation", err)
	}
	// cheap rejection; the repository checks again under the row lock
	if !c.IsAssignedTo(expertID) {
		return utils.E(utils.CodeForbidden, op, "you are not assigned to this conversation", utils.ErrNotAssignee)
	}

	err = s.convos.Unassign(ctx, conversationID, expertID, s.now())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, utils.ErrNotAssignee):
		return utils.E(utils.CodeForbidden, op, "you are not assigned to this conversation", err)
	case errors.Is(err, utils.ErrNotFound):
		return utils.E(utils.CodeNotFound, op, "conversation not found", err)
	default:
		return utils.E(utils.CodeInternal, op, "failed to unclaim conversation", err)
	}
}

func (s *assignmentService) AutoAssign(ctx context.Context, conversationID string) error {
	const op = "AssignmentService.AutoAssign"

	log := s.logger.WithField("conversation_id", conversationID)

	c, err := s.convos.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			log.Info("auto-assign skipped: conversation not found")
			return nil
		}
		return utils.E(utils.CodeInternal, op, "failed to load conversation", err)
	}
	if c.AssignedExpertID != nil {
		return nil
	}

	topic := c.Title
	first, err := s.messages.First(ctx, c.ID)
	switch {
	case err == nil:
		topic = first.Content
	case !errors.Is(err, utils.ErrNotFound):
		return utils.E(utils.CodeInternal, op, "failed to load first message", err)
	}

	candidates, err := s.directory.Candidates(ctx, c.InitiatorID)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to list experts", err)
	}
	if len(candidates) == 0 {
		metrics.Claims.WithLabelValues("auto", "no_candidates").Inc()
		log.Info("auto-assign skipped: no candidate experts")
		return nil
	}

	expertID, ok := s.matcher.SelectExpert(ctx, topic, c.InitiatorID, candidates)
	if !ok {
		metrics.Claims.WithLabelValues("auto", "no_match").Inc()
		log.Info("auto-assign skipped: matcher found no expert")
		return nil
	}

	_, err = s.convos.Assign(ctx, c.ID, expertID, uuid.NewString(), s.now())
	switch {
	case err == nil:
		metrics.Claims.WithLabelValues("auto", "claimed").Inc()
		log.WithField("expert_id", expertID).Info("conversation auto-assigned")
		return nil
	case errors.Is(err, utils.ErrAlreadyAssigned):
		metrics.Claims.WithLabelValues("auto", "conflict").Inc()
		log.Info("auto-assign lost the race to another claim")
		return nil
	case errors.Is(err, utils.ErrNotFound):
		metrics.Claims.WithLabelValues("auto", "not_found").Inc()
		log.WithField("expert_id", expertID).Info("auto-assign skipped: conversation or expert vanished")
		return nil
	default:
		metrics.Claims.WithLabelValues("auto", "error").Inc()
		return utils.E(utils.CodeInternal, op, "failed to assign expert", err)
	}
}

func (s *assignmentService) Queue(ctx context.Context, expertID string) (*ExpertQueue, error) {
	const op = "AssignmentService.Queue"

	if expertID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "expert_id is required", nil)
	}
	q, err := buildExpertQueue(ctx, s.convos, s.views, expertID, nil)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load queue", err)
	}
	return q, nil
}

func buildExpertQueue(ctx context.Context, convos pgrepo.ConversationRepo, views ViewBuilder, expertID string, since *time.Time) (*ExpertQueue, error) {
	waiting, err := convos.ListWaiting(ctx, since)
	if err != nil {
		return nil, err
	}
	assigned, err := convos.ListActiveForExpert(ctx, expertID, since)
	if err != nil {
		return nil, err
	}

	q := &ExpertQueue{}
	if q.WaitingConversations, err = views.ProjectAll(ctx, waiting, expertID); err != nil {
		return nil, err
	}
	if q.AssignedConversations, err = views.ProjectAll(ctx, assigned, expertID); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *assignmentService) History(ctx context.Context, expertID string) ([]AssignmentView, error) {
	const op = "AssignmentService.History"

	if expertID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "expert_id is required", nil)
	}
	rows, err := s.assignments.ListByExpert(ctx, expertID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list assignments", err)
	}

	out := make([]AssignmentView, 0, len(rows))
	for _, a := range rows {
		out = append(out, AssignmentView{
			ID:             a.ID,
			ConversationID: a.ConversationID,
			ExpertID:       a.ExpertID,
			Status:         string(a.Status),
			AssignedAt:     a.AssignedAt,
			ResolvedAt:     a.ResolvedAt,
			Rating:         a.Rating,
		})
	}
	return out, nil
}
