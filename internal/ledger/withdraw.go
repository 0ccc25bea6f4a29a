package ledger

import "time"

// Withdraw request statuses. Only WithdrawPending is written by the backend,
// the rest are set by operators while paying out.
const (
	WithdrawPending  = "pending"
	WithdrawApproved = "approved"
	WithdrawRejected = "rejected"
	WithdrawPaid     = "paid"
)

type WithdrawRequest struct {
	Id        uint      `json:"id" gorm:"primaryKey;autoIncrement:true"`
	UserId    string    `json:"user_id" gorm:"index;size:32;not null"`
	Points    int64     `json:"points"`
	Address   string    `json:"address" gorm:"size:128;not null"` // Solana address
	Status    string    `json:"status" gorm:"size:16;not null"`
	CreatedAt time.Time `json:"request_date" gorm:"index"`
}
