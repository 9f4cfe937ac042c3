package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Leganyst/legal-marketplace/internal/domainerr"
	"github.com/Leganyst/legal-marketplace/internal/model"
	"github.com/Leganyst/legal-marketplace/internal/repository"
)

const (
	DefaultThreadLimit = 50
	MaxThreadLimit     = 500
	searchLimit        = 20
)

// Conversation: сводка диалога для зрителя.
type Conversation struct {
	OtherID          uuid.UUID `json:"other_id"`
	OtherDisplayName string    `json:"other_display_name"`
	LastMessage      string    `json:"last_message"`
	LastMessageAt    time.Time `json:"last_message_at"`
	UnreadCount      int64     `json:"unread_count"`

	lastID int64
}

type ConversationStats struct {
	ConversationCount int64 `json:"conversation_count"`
	MessageCount      int64 `json:"message_count"`
	UnreadCount       int64 `json:"unread_count"`
}

// BlockedIdentity: запись чёрного списка зрителя.
type BlockedIdentity struct {
	IdentityID  uuid.UUID `json:"identity_id"`
	DisplayName string    `json:"display_name"`
	BlockedAt   time.Time `json:"blocked_at"`
}

// MessagingService handles direct messages, read tracking and blocks.
type MessagingService struct {
	base
	identities *IdentityService
}

// Send delivers a direct message unless the receiver has blocked the sender.
func (s *MessagingService) Send(ctx context.Context, senderID, receiverID uuid.UUID, body string) (*model.Message, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var out *model.Message
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		m, err := s.sendTx(ctx, tx, senderID, receiverID, body, true)
		out = m
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// notifyTx sends a workflow notice. Blocks silence direct messages only.
func (s *MessagingService) notifyTx(ctx context.Context, tx *repository.Store, fromID, toID uuid.UUID, text string) error {
	_, err := s.sendTx(ctx, tx, fromID, toID, text, false)
	return err
}

func (s *MessagingService) sendTx(ctx context.Context, tx *repository.Store, senderID, receiverID uuid.UUID, body string, checkBlock bool) (*model.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, validation("message body is empty")
	}
	if senderID == receiverID {
		return nil, validation("cannot message yourself")
	}

	if _, err := tx.Users.GetByID(ctx, receiverID); err != nil {
		return nil, storeErr(err, "receiver")
	}

	if checkBlock {
		blocked, err := tx.Blocks.Exists(ctx, receiverID, senderID)
		if err != nil {
			return nil, storeErr(err, "block")
		}
		if blocked {
			return nil, domainerr.New(domainerr.CodeForbidden, "receiver does not accept messages from sender")
		}
	}

	m := &model.Message{
		SenderIdentityID:   senderID,
		ReceiverIdentityID: receiverID,
		Body:               body,
		SentAt:             s.now(),
	}
	if err := tx.Messages.Create(ctx, m); err != nil {
		return nil, storeErr(err, "message")
	}

	s.metrics.MessagesSent.Inc()
	s.logger.Debug("message sent",
		zap.Int64("message_id", m.ID),
		zap.String("sender_id", senderID.String()),
		zap.String("receiver_id", receiverID.String()),
	)
	return m, nil
}

// Thread returns the latest limit messages between viewer and other, oldest
// first, and marks everything other sent to viewer as read. The returned
// messages reflect the state before marking.
func (s *MessagingService) Thread(ctx context.Context, viewerID, otherID uuid.UUID, limit int) ([]model.Message, error) {
	if viewerID == otherID {
		return nil, validation("cannot open a thread with yourself")
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var out []model.Message
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		msgs, err := tx.Messages.Thread(ctx, viewerID, otherID, clampLimit(limit))
		if err != nil {
			return storeErr(err, "message")
		}
		if _, err := tx.Messages.MarkRead(ctx, otherID, viewerID, s.now()); err != nil {
			return storeErr(err, "message")
		}
		out = msgs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PeekThread is Thread without marking anything read.
func (s *MessagingService) PeekThread(ctx context.Context, viewerID, otherID uuid.UUID, limit int) ([]model.Message, error) {
	if viewerID == otherID {
		return nil, validation("cannot open a thread with yourself")
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	msgs, err := s.store.Messages.Thread(ctx, viewerID, otherID, clampLimit(limit))
	if err != nil {
		return nil, storeErr(err, "message")
	}
	return msgs, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultThreadLimit
	}
	if limit > MaxThreadLimit {
		return MaxThreadLimit
	}
	return limit
}

// Conversations lists the viewer's dialogs, most recent activity first.
func (s *MessagingService) Conversations(ctx context.Context, viewerID uuid.UUID) ([]Conversation, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	heads, err := s.store.Messages.ConversationHeads(ctx, viewerID)
	if err != nil {
		return nil, storeErr(err, "message")
	}
	if len(heads) == 0 {
		return []Conversation{}, nil
	}

	msgIDs := make([]int64, 0, len(heads))
	others := make([]uuid.UUID, 0, len(heads))
	for _, h := range heads {
		msgIDs = append(msgIDs, h.LastMessageID)
		others = append(others, h.OtherID)
	}

	last, err := s.store.Messages.ListByIDs(ctx, msgIDs)
	if err != nil {
		return nil, storeErr(err, "message")
	}
	byID := make(map[int64]model.Message, len(last))
	for _, m := range last {
		byID[m.ID] = m
	}

	names, err := s.identities.DisplayNames(ctx, others)
	if err != nil {
		return nil, err
	}

	out := make([]Conversation, 0, len(heads))
	for _, h := range heads {
		m := byID[h.LastMessageID]
		out = append(out, Conversation{
			OtherID:          h.OtherID,
			OtherDisplayName: names[h.OtherID],
			LastMessage:      m.Body,
			LastMessageAt:    m.SentAt,
			UnreadCount:      h.UnreadCount,
			lastID:           h.LastMessageID,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastMessageAt.Equal(out[j].LastMessageAt) {
			return out[i].LastMessageAt.After(out[j].LastMessageAt)
		}
		return out[i].lastID > out[j].lastID
	})
	return out, nil
}

func (s *MessagingService) ConversationStats(ctx context.Context, viewerID uuid.UUID) (ConversationStats, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	c, err := s.store.Messages.Stats(ctx, viewerID)
	if err != nil {
		return ConversationStats{}, storeErr(err, "message")
	}
	return ConversationStats{
		ConversationCount: c.ConversationCount,
		MessageCount:      c.MessageCount,
		UnreadCount:       c.UnreadCount,
	}, nil
}

func (s *MessagingService) UnreadCount(ctx context.Context, viewerID uuid.UUID) (int64, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	n, err := s.store.Messages.CountUnread(ctx, viewerID)
	if err != nil {
		return 0, storeErr(err, "message")
	}
	return n, nil
}

// SearchThread finds messages between viewer and other containing term,
// case-insensitively, newest first.
func (s *MessagingService) SearchThread(ctx context.Context, viewerID, otherID uuid.UUID, term string) ([]model.Message, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, validation("search term is required")
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	out, err := s.store.Messages.Search(ctx, viewerID, otherID, term, searchLimit)
	if err != nil {
		return nil, storeErr(err, "message")
	}
	return out, nil
}

// Delete removes a message; only its sender may do that.
func (s *MessagingService) Delete(ctx context.Context, messageID int64, requesterID uuid.UUID) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		m, err := tx.Messages.GetByID(ctx, messageID)
		if err != nil {
			return storeErr(err, "message")
		}
		if m.SenderIdentityID != requesterID {
			return domainerr.New(domainerr.CodeForbidden, "only the sender may delete a message")
		}
		if err := tx.Messages.Delete(ctx, messageID); err != nil {
			return storeErr(err, "message")
		}
		return nil
	})
}

// Block stops blockedID from messaging blockerID. Repeating it is a no-op.
func (s *MessagingService) Block(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	if blockerID == blockedID {
		return validation("cannot block yourself")
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	if _, err := s.store.Users.GetByID(ctx, blockedID); err != nil {
		return storeErr(err, "identity")
	}
	created, err := s.store.Blocks.Create(ctx, blockerID, blockedID)
	if err != nil {
		return storeErr(err, "block")
	}
	if created {
		s.logger.Info("identity blocked",
			zap.String("identity_id", blockerID.String()),
			zap.String("blocked_id", blockedID.String()),
		)
	}
	return nil
}

// Unblock is a no-op when no block exists.
func (s *MessagingService) Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	if _, err := s.store.Blocks.Delete(ctx, blockerID, blockedID); err != nil {
		return storeErr(err, "block")
	}
	return nil
}

// Blocked lists the identities blockerID has blocked, newest first.
func (s *MessagingService) Blocked(ctx context.Context, blockerID uuid.UUID) ([]BlockedIdentity, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	rels, err := s.store.Blocks.ListBlocked(ctx, blockerID)
	if err != nil {
		return nil, storeErr(err, "block")
	}
	ids := make([]uuid.UUID, 0, len(rels))
	for _, rel := range rels {
		ids = append(ids, rel.BlockedIdentityID)
	}
	names, err := s.identities.DisplayNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]BlockedIdentity, 0, len(rels))
	for _, rel := range rels {
		out = append(out, BlockedIdentity{
			IdentityID:  rel.BlockedIdentityID,
			DisplayName: names[rel.BlockedIdentityID],
			BlockedAt:   rel.CreatedAt,
		})
	}
	return out, nil
}

// IsBlocked reports whether receiverID has blocked senderID.
func (s *MessagingService) IsBlocked(ctx context.Context, senderID, receiverID uuid.UUID) (bool, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	ok, err := s.store.Blocks.Exists(ctx, receiverID, senderID)
	if err != nil {
		return false, storeErr(err, "block")
	}
	return ok, nil
}
