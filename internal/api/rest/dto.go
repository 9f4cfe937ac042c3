package rest

import (
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/legal-marketplace/internal/model"
)

type caseResponse struct {
	ID                uuid.UUID  `json:"id"`
	ClientIdentityID  uuid.UUID  `json:"client_identity_id"`
	ProviderProfileID *uuid.UUID `json:"provider_profile_id,omitempty"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Category          string     `json:"category"`
	Status            string     `json:"status"`
	Priority          string     `json:"priority"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func toCase(c model.Case) caseResponse {
	return caseResponse{
		ID:                c.ID,
		ClientIdentityID:  c.ClientIdentityID,
		ProviderProfileID: c.ProviderProfileID,
		Title:             c.Title,
		Description:       c.Description,
		Category:          c.Category,
		Status:            string(c.Status),
		Priority:          string(c.Priority),
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

type consultationResponse struct {
	ID                uuid.UUID `json:"id"`
	ClientIdentityID  uuid.UUID `json:"client_identity_id"`
	ProviderProfileID uuid.UUID `json:"provider_profile_id"`
	ScheduledAt       time.Time `json:"scheduled_at"`
	Status            string    `json:"status"`
	FeeAmount         float64   `json:"fee_amount"`
	Notes             string    `json:"notes"`
}

func toConsultation(c model.Consultation) consultationResponse {
	return consultationResponse{
		ID:                c.ID,
		ClientIdentityID:  c.ClientIdentityID,
		ProviderProfileID: c.ProviderProfileID,
		ScheduledAt:       c.ScheduledAt,
		Status:            string(c.Status),
		FeeAmount:         c.FeeAmount,
		Notes:             c.Notes,
	}
}

type messageResponse struct {
	ID         int64      `json:"id"`
	SenderID   uuid.UUID  `json:"sender_id"`
	ReceiverID uuid.UUID  `json:"receiver_id"`
	Body       string     `json:"body"`
	SentAt     time.Time  `json:"sent_at"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

func toMessage(m model.Message) messageResponse {
	return messageResponse{
		ID:         m.ID,
		SenderID:   m.SenderIdentityID,
		ReceiverID: m.ReceiverIdentityID,
		Body:       m.Body,
		SentAt:     m.SentAt,
		ReadAt:     m.ReadAt,
	}
}

type profileResponse struct {
	ID              uuid.UUID `json:"id"`
	IdentityID      uuid.UUID `json:"identity_id"`
	Name            string    `json:"name"`
	Contact         string    `json:"contact"`
	Specialization  string    `json:"specialization"`
	ExperienceYears int       `json:"experience_years"`
	Location        string    `json:"location"`
	Languages       []string  `json:"languages"`
	FeeRange        string    `json:"fee_range"`
	Rating          float64   `json:"rating"`
	Verified        bool      `json:"verified"`
}

func toProfile(p model.ProviderProfile) profileResponse {
	langs := []string(p.Languages)
	if langs == nil {
		langs = []string{}
	}
	return profileResponse{
		ID:              p.ID,
		IdentityID:      p.IdentityID,
		Name:            p.Name,
		Contact:         p.Contact,
		Specialization:  p.Specialization,
		ExperienceYears: p.ExperienceYears,
		Location:        p.Location,
		Languages:       langs,
		FeeRange:        p.FeeRange,
		Rating:          p.Rating,
		Verified:        p.Verified,
	}
}

type identityResponse struct {
	ID          uuid.UUID `json:"id"`
	Role        string    `json:"role"`
	DisplayName string    `json:"display_name"`
	Contact     string    `json:"contact"`
}

func toIdentity(u model.User) identityResponse {
	return identityResponse{ID: u.ID, Role: string(u.Role), DisplayName: u.DisplayName, Contact: u.Contact}
}

type eventResponse struct {
	Type      string     `json:"type"`
	ActorID   *uuid.UUID `json:"actor_id,omitempty"`
	Details   string     `json:"details"`
	CreatedAt time.Time  `json:"created_at"`
}

func toEvent(e model.Event) eventResponse {
	return eventResponse{Type: string(e.EventType), ActorID: e.ActorIdentityID, Details: e.Details, CreatedAt: e.CreatedAt}
}

// mapSlice converts every element of in; a nil input yields an empty slice.
func mapSlice[T, U any](in []T, fn func(T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
