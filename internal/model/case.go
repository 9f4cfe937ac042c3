package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Статус дела. Строгий автомат переходов не применяется:
// статус: свободная метка из фиксированного набора.
type CaseStatus string

const (
	CaseStatusOpen       CaseStatus = "Open"
	CaseStatusInProgress CaseStatus = "InProgress"
	CaseStatusOnHold     CaseStatus = "OnHold"
	CaseStatusPending    CaseStatus = "Pending"
	CaseStatusClosed     CaseStatus = "Closed"
)

// Valid reports whether s is one of the known case statuses.
func (s CaseStatus) Valid() bool {
	switch s {
	case CaseStatusOpen, CaseStatusInProgress, CaseStatusOnHold, CaseStatusPending, CaseStatusClosed:
		return true
	}
	return false
}

// Active statuses count towards workload statistics.
func (s CaseStatus) Active() bool {
	return s == CaseStatusOpen || s == CaseStatusInProgress
}

type CasePriority string

const (
	CasePriorityLow    CasePriority = "Low"
	CasePriorityMedium CasePriority = "Medium"
	CasePriorityHigh   CasePriority = "High"
	CasePriorityUrgent CasePriority = "Urgent"
)

func (p CasePriority) Valid() bool {
	switch p {
	case CasePriorityLow, CasePriorityMedium, CasePriorityHigh, CasePriorityUrgent:
		return true
	}
	return false
}

// cases: юридические дела клиентов.
type Case struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	ClientIdentityID uuid.UUID `gorm:"type:uuid;not null;index"`
	// nil, пока дело никто не взял.
	ProviderProfileID *uuid.UUID `gorm:"type:uuid;index"`

	Title       string       `gorm:"type:varchar(500);not null"`
	Description string       `gorm:"type:text"`
	Category    string       `gorm:"type:varchar(255);not null;index"`
	Status      CaseStatus   `gorm:"type:varchar(32);not null;default:'Open';index"`
	Priority    CasePriority `gorm:"type:varchar(32);not null;index"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now();index"`

	Client   *User            `gorm:"foreignKey:ClientIdentityID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Provider *ProviderProfile `gorm:"foreignKey:ProviderProfileID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
