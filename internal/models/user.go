package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// User is the local dating profile bound to a wallet address.
type User struct {
	ID            string         `gorm:"primaryKey" json:"id"`
	WalletAddress string         `gorm:"uniqueIndex;not null" json:"wallet_address"`
	DisplayName   string         `json:"display_name"`
	Interests     pq.StringArray `gorm:"type:text[]" json:"interests"`
}

// BeforeCreate generates a UUID for the user if none was set.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
