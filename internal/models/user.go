package models

// User describes an account holder. The password hash never serialises to
// JSON; credential checks read it server-side only.
type User struct {
	BaseModel

	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	// IsVerified flips to true exactly once, when an emailed code is redeemed.
	IsVerified bool `gorm:"default:false" json:"is_verified"`

	URLs []URL `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
