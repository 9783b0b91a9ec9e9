package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const OAuthProviderGoogle = "google"

type User struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	Username      string    `gorm:"size:80;uniqueIndex;not null" json:"username"`
	Email         string    `gorm:"size:120;uniqueIndex;not null" json:"email"`
	Password      string    `gorm:"size:255" json:"-"` // bcrypt hash, empty for OAuth-only accounts
	IsActive      bool      `gorm:"not null;default:true" json:"-"`
	IsAdmin       bool      `gorm:"not null;default:false" json:"is_admin"`
	OAuthProvider string    `gorm:"column:oauth_provider;size:50" json:"oauth_provider,omitempty"`
	OAuthID       *string   `gorm:"column:oauth_id;size:100;uniqueIndex" json:"-"`
	Picture       string    `gorm:"size:255" json:"picture,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"-"`

	// Relationships
	Journals      []Journal      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns a UUID so sqlite and postgres behave the same.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u.Password != ""
}

type RefreshToken struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// UserSummary is the admin listing shape.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
