package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Роль учётной записи в каталоге идентичностей.
type Role string

const (
	RoleClient      Role = "client"
	RoleProvider    Role = "provider"
	RoleCoordinator Role = "coordinator"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleProvider, RoleCoordinator:
		return true
	}
	return false
}

// users: каталог идентичностей. Ядро только читает эту таблицу,
// запись идёт через внешний слой регистрации (и CLI для локальной разработки).
type User struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	Role        Role   `gorm:"type:varchar(32);not null;index"`
	DisplayName string `gorm:"type:varchar(255);not null"`
	// email или телефон
	Contact string `gorm:"type:varchar(255)"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Profile *ProviderProfile `gorm:"foreignKey:IdentityID"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
