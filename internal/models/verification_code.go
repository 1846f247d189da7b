package models

import "time"

// VerificationCode stores the single outstanding email-ownership challenge
// for an address. The unique index on email backs the upsert-by-replace that
// keeps at most one live code per account.
type VerificationCode struct {
	BaseModel

	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Code      int       `gorm:"not null" json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}
