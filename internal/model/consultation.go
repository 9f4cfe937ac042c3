package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConsultationStatus string

const (
	ConsultationStatusScheduled ConsultationStatus = "Scheduled"
	ConsultationStatusCompleted ConsultationStatus = "Completed"
	ConsultationStatusCancelled ConsultationStatus = "Cancelled"
	ConsultationStatusPending   ConsultationStatus = "Pending"
)

func (s ConsultationStatus) Valid() bool {
	switch s {
	case ConsultationStatusScheduled, ConsultationStatusCompleted, ConsultationStatusCancelled, ConsultationStatusPending:
		return true
	}
	return false
}

// consultations: назначенные встречи клиента и юриста.
// Юрист всегда адресуется через профиль, а не через идентичность.
type Consultation struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	ClientIdentityID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ProviderProfileID uuid.UUID `gorm:"type:uuid;not null;index"`

	ScheduledAt time.Time          `gorm:"type:timestamp with time zone;not null;index"`
	Status      ConsultationStatus `gorm:"type:varchar(32);not null;index"`
	FeeAmount   float64            `gorm:"type:numeric(10,2);not null;default:0"`
	Notes       string             `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Client   *User            `gorm:"foreignKey:ClientIdentityID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Provider *ProviderProfile `gorm:"foreignKey:ProviderProfileID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (c *Consultation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
