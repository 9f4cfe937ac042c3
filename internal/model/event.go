package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Тип события аудита.
type EventType string

const (
	EventTypeCaseCreated               EventType = "case_created"
	EventTypeCaseAssigned              EventType = "case_assigned"
	EventTypeCaseStatusChanged         EventType = "case_status_changed"
	EventTypeConsultationScheduled     EventType = "consultation_scheduled"
	EventTypeConsultationStatusChanged EventType = "consultation_status_changed"
	EventTypeConsultationReminded      EventType = "consultation_reminded"
	EventTypeProfileProvisioned        EventType = "profile_provisioned"
	EventTypeProfileVerified           EventType = "profile_verified"
)

// events: события аудита
type Event struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	EventType EventType `gorm:"type:varchar(64);not null;index"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`

	ActorIdentityID *uuid.UUID `gorm:"type:uuid;index"`
	CaseID          *uuid.UUID `gorm:"type:uuid;index"`
	ConsultationID  *uuid.UUID `gorm:"type:uuid;index"`

	Details string `gorm:"type:text"`

	// Навигационные поля
	Actor        *User         `gorm:"foreignKey:ActorIdentityID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Case         *Case         `gorm:"foreignKey:CaseID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Consultation *Consultation `gorm:"foreignKey:ConsultationID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
