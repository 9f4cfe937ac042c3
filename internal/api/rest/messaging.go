package rest

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Leganyst/legal-marketplace/internal/access"
	"github.com/Leganyst/legal-marketplace/internal/domainerr"
	"github.com/Leganyst/legal-marketplace/internal/model"
	"github.com/Leganyst/legal-marketplace/internal/service"
)

func (h *handler) registerMessaging(r chi.Router) {
	r.Post("/messages", h.handleSendMessage)
	r.Delete("/messages/{messageID}", h.handleDeleteMessage)
	r.Get("/messages/unread", h.handleUnreadCount)

	r.Get("/threads/{otherID}", h.handleThread)
	r.Get("/threads/{otherID}/search", h.handleSearchThread)

	r.Get("/conversations", h.handleConversations)
	r.Get("/conversations/stats", h.handleConversationStats)

	r.Get("/blocks", h.handleListBlocked)
	r.Post("/blocks", h.handleBlock)
	r.Delete("/blocks/{identityID}", h.handleUnblock)
}

type sendMessageRequest struct {
	ReceiverID uuid.UUID `json:"receiver_id"`
	Body       string    `json:"body"`
}

func (h *handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	actor, err := access.Require(r.Context(), access.CapSendMessage)
	if err != nil {
		writeError(w, err)
		return
	}
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	m, err := h.svc.Messaging.Send(r.Context(), actor.ID, req.ReceiverID, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessage(*m))
}

func (h *handler) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "messageID"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, domainerr.New(domainerr.CodeValidation, "invalid messageID"))
		return
	}
	if err := h.svc.Messaging.Delete(r.Context(), id, actor.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	n, err := h.svc.Messaging.UnreadCount(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread_count": n})
}

// handleThread возвращает переписку по возрастанию времени.
// Обычный просмотр помечает входящие прочитанными, с peek=true не помечает.
func (h *handler) handleThread(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	otherID, err := uuidParam(r, "otherID")
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := intQuery(r, "limit", service.DefaultThreadLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	peek, err := boolQuery(r, "peek")
	if err != nil {
		writeError(w, err)
		return
	}

	var msgs []model.Message
	if peek {
		msgs, err = h.svc.Messaging.PeekThread(r.Context(), actor.ID, otherID, limit)
	} else {
		msgs, err = h.svc.Messaging.Thread(r.Context(), actor.ID, otherID, limit)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(msgs, toMessage))
}

func (h *handler) handleSearchThread(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	otherID, err := uuidParam(r, "otherID")
	if err != nil {
		writeError(w, err)
		return
	}
	msgs, err := h.svc.Messaging.SearchThread(r.Context(), actor.ID, otherID, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(msgs, toMessage))
}

func (h *handler) handleConversations(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	convs, err := h.svc.Messaging.Conversations(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if convs == nil {
		convs = []service.Conversation{}
	}
	writeJSON(w, http.StatusOK, convs)
}

func (h *handler) handleConversationStats(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := h.svc.Messaging.ConversationStats(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) handleListBlocked(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	blocked, err := h.svc.Messaging.Blocked(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blocked)
}

type blockRequest struct {
	IdentityID uuid.UUID `json:"identity_id"`
}

func (h *handler) handleBlock(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req blockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.Messaging.Block(r.Context(), actor.ID, req.IdentityID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleUnblock(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := uuidParam(r, "identityID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.Messaging.Unblock(r.Context(), actor.ID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
