package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Значения, которыми заполняется автоматически созданный профиль.
const (
	DefaultSpecialization = "General Practice"
	DefaultLocation       = "Not Specified"
)

// FeeBand: ценовой диапазон каталога. FeeRange у профиля хранится
// свободным текстом, поэтому диапазон сопоставляется по подстрокам.
type FeeBand string

const (
	FeeBandUpTo500    FeeBand = "0-500"
	FeeBand500To1500  FeeBand = "500-1500"
	FeeBand1500To3000 FeeBand = "1500-3000"
	FeeBandOver3000   FeeBand = "3000+"
)

var feeBandTerms = map[FeeBand][]string{
	FeeBandUpTo500:    {"0-500", "under 500"},
	FeeBand500To1500:  {"500-1500", "500-1000"},
	FeeBand1500To3000: {"1500-3000", "2000-3000"},
	FeeBandOver3000:   {"3000+", "above 3000"},
}

// ParseFeeBand accepts a band with or without the currency sign; "" and
// "all" mean no band.
func ParseFeeBand(v string) (FeeBand, bool) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "₹")
	if v == "" || strings.EqualFold(v, "all") {
		return "", true
	}
	b := FeeBand(v)
	_, ok := feeBandTerms[b]
	return b, ok
}

// Terms returns the fee_range substrings that place a profile in the band.
func (b FeeBand) Terms() []string {
	return feeBandTerms[b]
}

// ProviderProfile: профессиональный профиль юриста.
// Привязан к каталогу идентичностей 1:1 через IdentityID.
type ProviderProfile struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	IdentityID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`

	Name    string `gorm:"type:varchar(255);not null"`
	Contact string `gorm:"type:varchar(255)"`

	Specialization  string                      `gorm:"type:varchar(255);not null;index"`
	ExperienceYears int                         `gorm:"not null;default:0"`
	Location        string                      `gorm:"type:varchar(255);index"`
	Languages       datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	FeeRange        string                      `gorm:"type:varchar(100)"`
	Rating          float64                     `gorm:"type:numeric(3,2);not null;default:0"`
	Verified        bool                        `gorm:"not null;default:false;index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Identity *User `gorm:"foreignKey:IdentityID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (p *ProviderProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
