package models

// URL maps a short handle to its original address and tracks resolutions.
type URL struct {
	BaseModel

	Origin  string `gorm:"not null" json:"origin"`
	Shorten string `gorm:"uniqueIndex;not null" json:"shorten"`
	UserID  string `gorm:"type:uuid;not null;index" json:"user_id"`
	Clicks  int64  `gorm:"default:0" json:"clicks"`
}
