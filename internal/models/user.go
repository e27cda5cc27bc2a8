// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles a user can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ProviderCredential identifies email/password accounts.
const ProviderCredential = "credential"

// User represents a person who can sign in, list properties and keep favorites.
type User struct {
	ID            string     `gorm:"primaryKey;type:text" json:"id"`
	Name          string     `gorm:"type:text;not null" json:"name"`
	Email         string     `gorm:"type:text;not null;uniqueIndex:user_email_unique" json:"email"`
	EmailVerified bool       `gorm:"not null;default:false" json:"emailVerified"`
	Image         *string    `gorm:"type:text" json:"image"`
	Role          string     `gorm:"type:text;not null;default:user" json:"role"`
	Banned        bool       `gorm:"not null;default:false" json:"banned"`
	BanReason     *string    `gorm:"type:text" json:"banReason,omitempty"`
	BanExpires    *time.Time `json:"banExpires,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "user"
}

// BeforeCreate assigns a time-ordered id when none is set.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsBanned reports whether a ban is in force at the given instant.
func (u *User) IsBanned(now time.Time) bool {
	if !u.Banned {
		return false
	}
	return u.BanExpires == nil || u.BanExpires.After(now)
}

// Session is one signed-in device. Token holds the JWT id it was issued with.
type Session struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	Token     string    `gorm:"type:text;not null;uniqueIndex:session_token_unique" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expiresAt"`
	IPAddress *string   `gorm:"type:text" json:"ipAddress,omitempty"`
	UserAgent *string   `gorm:"type:text" json:"userAgent,omitempty"`
	UserID    string    `gorm:"type:text;not null;index" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for GORM.
func (Session) TableName() string {
	return "session"
}

// BeforeCreate assigns a time-ordered id when none is set.
func (s *Session) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = NewID()
	}
	return nil
}

// Valid reports whether the session has not yet expired.
func (s *Session) Valid(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

// Account links a user to an auth provider. Credential accounts carry the password hash.
type Account struct {
	ID                    string     `gorm:"primaryKey;type:text" json:"id"`
	AccountID             string     `gorm:"type:text;not null" json:"accountId"`
	ProviderID            string     `gorm:"type:text;not null" json:"providerId"`
	UserID                string     `gorm:"type:text;not null;index" json:"userId"`
	User                  *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	AccessToken           *string    `gorm:"type:text" json:"-"`
	RefreshToken          *string    `gorm:"type:text" json:"-"`
	IDToken               *string    `gorm:"type:text" json:"-"`
	AccessTokenExpiresAt  *time.Time `json:"-"`
	RefreshTokenExpiresAt *time.Time `json:"-"`
	Scope                 *string    `gorm:"type:text" json:"scope,omitempty"`
	Password              *string    `gorm:"type:text" json:"-"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// TableName specifies the table name for GORM.
func (Account) TableName() string {
	return "account"
}

// BeforeCreate assigns a time-ordered id when none is set.
func (a *Account) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = NewID()
	}
	return nil
}

// Verification is a single-use token bound to an identifier such as an email address.
type Verification struct {
	ID         string    `gorm:"primaryKey;type:text" json:"id"`
	Identifier string    `gorm:"type:text;not null;index" json:"identifier"`
	Value      string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt  time.Time `gorm:"not null" json:"expiresAt"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName specifies the table name for GORM.
func (Verification) TableName() string {
	return "verification"
}

// BeforeCreate assigns a time-ordered id when none is set.
func (v *Verification) BeforeCreate(_ *gorm.DB) error {
	if v.ID == "" {
		v.ID = NewID()
	}
	return nil
}

// NewID returns a UUIDv7 string, falling back to v4 if the clock source fails.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
