package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	}
	return false
}

type Address struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Name         string `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`

	Image        string `gorm:"column:image;type:text" json:"image"`
	Phone        string `gorm:"column:phone;type:varchar(20)" json:"phone"`
	AddressLine1 string `gorm:"column:address_line1;type:varchar(255)" json:"address_line1"`
	AddressLine2 string `gorm:"column:address_line2;type:varchar(255)" json:"address_line2"`
	Gender       string `gorm:"column:gender;type:varchar(20)" json:"gender"`
	DOB          string `gorm:"column:dob;type:varchar(20)" json:"dob"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) Address() Address {
	return Address{Line1: u.AddressLine1, Line2: u.AddressLine2}
}

// UserSnapshot is the copy of a user's profile embedded into an appointment at
// booking time. Later profile edits do not reach it.
type UserSnapshot struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Image   string    `json:"image"`
	Phone   string    `json:"phone"`
	Address Address   `json:"address"`
	Gender  string    `json:"gender"`
	DOB     string    `json:"dob"`
}

func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Image:   u.Image,
		Phone:   u.Phone,
		Address: u.Address(),
		Gender:  u.Gender,
		DOB:     u.DOB,
	}
}

type RegisterUserCommand struct {
	Name     string
	Email    string
	Password string
}

// UpdateProfileCommand replaces the editable profile fields. An empty Image
// keeps the current one.
type UpdateProfileCommand struct {
	Name    string
	Phone   string
	Address Address
	Gender  string
	DOB     string
	Image   string
}

type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionRead   AuditAction = "read"
	ActionUpdate AuditAction = "update"
	ActionLogin  AuditAction = "login"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	// Who
	Subject   string `gorm:"column:subject;type:varchar(255);not null;index"`
	UserRole  Role   `gorm:"column:user_role;type:varchar(30);not null"`
	IPAddress string `gorm:"column:ip_address;type:varchar(45)"` // Supports IPv6

	// What
	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(50);index"`

	RequestID string `gorm:"column:request_id;type:varchar(50);index"`
	Changes   string `gorm:"column:changes;type:text"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

// Claims is what the authorization gate hands to the rest of the service.
// Subject is the user's UUID for user tokens and the admin email for admin tokens.
type Claims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
}

// UserID parses the subject of a user token.
func (c *Claims) UserID() (uuid.UUID, bool) {
	if c == nil || c.Role != RoleUser {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
