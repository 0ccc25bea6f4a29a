package ledger

import "time"

// ReferralEdge records who brought a user in. One row per referred user, never updated.
type ReferralEdge struct {
	Id         uint      `json:"id" gorm:"primaryKey;autoIncrement:true"`
	ReferrerId string    `json:"referrer_id" gorm:"index;size:32;not null"`
	ReferredId string    `json:"referred_id" gorm:"uniqueIndex;size:32;not null"`
	CreatedAt  time.Time `json:"created_at"`
}
