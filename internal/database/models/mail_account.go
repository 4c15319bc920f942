package models

import (
	"time"
)

// AuthType represents how a mail account authenticates against its provider
const (
	AuthTypePassword    = "password"
	AuthTypeAppPassword = "app_password"
)

// MailAccount represents a mail account linked by a user. The credential is
// stored encrypted and the record is effectively immutable after linking:
// it is only ever read back, identified by the (user_id, email) pair.
type MailAccount struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            uint       `gorm:"index:idx_mail_accounts_owner,unique;not null" json:"user_id"`
	Email             string     `gorm:"index:idx_mail_accounts_owner,unique;size:255;not null" json:"email"`
	Provider          string     `gorm:"size:50;not null" json:"provider"`
	PasswordEncrypted string     `gorm:"size:500;not null" json:"-"`
	AuthType          string     `gorm:"size:50;default:'password'" json:"auth_type"`
	Active            bool       `gorm:"default:true" json:"active"`
	ConnectedAt       *time.Time `json:"connected_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
