package ledger

import "time"

// Kinds of point events. Only KindSpin rows count towards the daily spin gate.
const (
	KindSpin       = "spin"
	KindReferral   = "referral"
	KindWithdrawal = "withdrawal"
	KindPurchase   = "purchase"
	KindAdjustment = "adjustment" // manual credit or debit by an operator
)

// PointEvent is an append-only signed change of a user's points.
// A balance is always the sum of these rows.
type PointEvent struct {
	Id        uint      `json:"id" gorm:"primaryKey;autoIncrement:true"`
	UserId    string    `json:"user_id" gorm:"index;size:32;not null;uniqueIndex:idx_point_events_user_spin_day"`
	Kind      string    `json:"kind" gorm:"size:16;not null;index"`
	Points    int64     `json:"points"`
	Reference string    `json:"reference" gorm:"size:64"` // e.g. "withdraw:12", "referral:<user id>"
	SpinDay   *string   `json:"spin_day,omitempty" gorm:"size:10;uniqueIndex:idx_point_events_user_spin_day"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}
