package ledger

import "time"

type Purchase struct {
	Id        uint      `json:"id" gorm:"primaryKey;autoIncrement:true"`
	UserId    string    `json:"user_id" gorm:"index;size:32;not null"`
	Item      string    `json:"item" gorm:"size:64;not null"`
	Points    int64     `json:"points"`
	CreatedAt time.Time `json:"purchase_date"`
}
