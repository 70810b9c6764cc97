package services

import (
	"context"
	"time"

	"github.com/yoockh/yoodesk/internal/models"
	pgrepo "github.com/yoockh/yoodesk/internal/repositories/postgres"
	"golang.org/x/sync/errgroup"
)

// ConversationView is the conversation as one viewer sees it.
type ConversationView struct {
	ID                     string     `json:"id"`
	Title                  string     `json:"title"`
	Status                 string     `json:"status"`
	QuestionerID           string     `json:"questionerId"`
	QuestionerUsername     string     `json:"questionerUsername"`
	AssignedExpertID       *string    `json:"assignedExpertId"`
	AssignedExpertUsername *string    `json:"assignedExpertUsername"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
	LastMessageAt          *time.Time `json:"lastMessageAt"`
	UnreadCount            int64      `json:"unreadCount"`
	Summary                string     `json:"summary"`
}

type MessageView struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	SenderUsername string    `json:"senderUsername"`
	SenderRole     string    `json:"senderRole"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	IsRead         bool      `json:"isRead"`
}

// ViewBuilder projects conversations for a viewer. Conversations passed in
// are expected to carry their Initiator and AssignedExpert associations.
type ViewBuilder interface {
	Project(ctx context.Context, c *models.Conversation, viewerID string) (ConversationView, error)
	ProjectAll(ctx context.Context, rows []models.Conversation, viewerID string) ([]ConversationView, error)
}

type viewBuilder struct {
	messages  pgrepo.MessageRepository
	summaries SummaryService
}

func NewViewBuilder(messages pgrepo.MessageRepository, summaries SummaryService) ViewBuilder {
	return &viewBuilder{messages: messages, summaries: summaries}
}

func (b *viewBuilder) Project(ctx context.Context, c *models.Conversation, viewerID string) (ConversationView, error) {
	unread, err := b.messages.CountUnread(ctx, c.ID, viewerID)
	if err != nil {
		return ConversationView{}, err
	}
	total, err := b.messages.Count(ctx, c.ID)
	if err != nil {
		return ConversationView{}, err
	}

	v := ConversationView{
		ID:               c.ID,
		Title:            c.Title,
		Status:           string(c.Status),
		QuestionerID:     c.InitiatorID,
		AssignedExpertID: c.AssignedExpertID,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
		LastMessageAt:    c.LastMessageAt,
		UnreadCount:      unread,
		Summary:          b.summaries.Resolve(ctx, c, total),
	}
	if c.Initiator != nil {
		v.QuestionerUsername = c.Initiator.Username
	}
	if c.AssignedExpert != nil {
		name := c.AssignedExpert.Username
		v.AssignedExpertUsername = &name
	}
	return v, nil
}

// ProjectAll keeps the input order.
func (b *viewBuilder) ProjectAll(ctx context.Context, rows []models.Conversation, viewerID string) ([]ConversationView, error) {
	out := make([]ConversationView, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range rows {
		g.Go(func() error {
			v, err := b.Project(gctx, &rows[i], viewerID)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func projectMessage(m *models.Message) MessageView {
	v := MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderRole:     string(m.SenderRole),
		Content:        m.Content,
		Timestamp:      m.CreatedAt,
		IsRead:         m.IsRead,
	}
	if m.Sender != nil {
		v.SenderUsername = m.Sender.Username
	}
	return v
}

func projectMessages(rows []models.Message) []MessageView {
	out := make([]MessageView, 0, len(rows))
	for i := range rows {
		out = append(out, projectMessage(&rows[i]))
	}
	return out
}
