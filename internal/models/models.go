package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Product struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Name         string    `gorm:"not null"              json:"name"`
	Category     string    `gorm:"not null;index"        json:"category"`
	Price        int64     `gorm:"not null"              json:"price"`
	Image        string    `gorm:"not null"              json:"image"`
	ImageVersion int       `gorm:"not null"              json:"image_version"`
	Processor    string    `gorm:"not null"              json:"processor"`
	RAM          string    `gorm:"column:ram;not null"   json:"ram"`
	Storage      string    `gorm:"not null"              json:"storage"`
	Display      string    `gorm:"not null"              json:"display"`
	Condition    string    `gorm:"not null"              json:"condition"`
	InStock      bool      `gorm:"not null"              json:"in_stock"`
	DateAdded    time.Time `gorm:"not null"              json:"date_added"`
	CreatedAt    time.Time `gorm:"index"                 json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.ImageVersion < 1 {
		p.ImageVersion = 1
	}
	if p.DateAdded.IsZero() {
		p.DateAdded = time.Now().UTC()
	}
	return nil
}

func (Product) TableName() string {
	return "products"
}

// ImageURL appends the image version so a replaced image is never served
// from a stale cache.
func (p Product) ImageURL() string {
	if p.Image == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(p.Image, "?") {
		sep = "&"
	}
	return p.Image + sep + "v=" + strconv.Itoa(p.ImageVersion)
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null"             json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Profile is keyed by the user id and holds the role.
type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Role      string    `gorm:"not null"             json:"role"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"token"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	JTI       string    `gorm:"uniqueIndex;not null" json:"jti"`
	ExpiresAt int64     `gorm:"not null"             json:"expires_at"`
	Revoked   bool      `gorm:"not null"             json:"revoked"`
}
