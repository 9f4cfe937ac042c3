package model

import (
	"time"

	"github.com/google/uuid"
)

// messages: личные сообщения. Неизменяемы после отправки,
// кроме ReadAt: nil -> время прочтения, ровно один раз.
// ID монотонный, им разрешаются совпадения SentAt.
type Message struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`

	SenderIdentityID   uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_pair,priority:1"`
	ReceiverIdentityID uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_pair,priority:2;index"`

	Body   string     `gorm:"type:text;not null"`
	SentAt time.Time  `gorm:"type:timestamp with time zone;not null;autoCreateTime;index"`
	ReadAt *time.Time `gorm:"type:timestamp with time zone"`

	Sender   *User `gorm:"foreignKey:SenderIdentityID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Receiver *User `gorm:"foreignKey:ReceiverIdentityID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// Unread reports whether the receiver has not opened the thread yet.
func (m *Message) Unread() bool {
	return m.ReadAt == nil
}

// block_relations: заблокированный не может писать блокирующему.
type BlockRelation struct {
	BlockerIdentityID uuid.UUID `gorm:"type:uuid;primaryKey"`
	BlockedIdentityID uuid.UUID `gorm:"type:uuid;primaryKey"`

	CreatedAt time.Time `gorm:"not null;default:now()"`

	Blocker *User `gorm:"foreignKey:BlockerIdentityID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Blocked *User `gorm:"foreignKey:BlockedIdentityID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
