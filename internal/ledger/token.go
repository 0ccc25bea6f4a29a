package ledger

import "time"

const (
	TokenPending       = "pending"
	TokenAuthenticated = "authenticated"
)

// LoginToken binds an anonymous browser session to the Telegram account that opened the bot link.
type LoginToken struct {
	Token           string     `json:"token" gorm:"primaryKey;size:64"`
	Status          string     `json:"status" gorm:"size:16;not null"`
	UserId          string     `json:"user_id" gorm:"size:32"`
	FirstName       string     `json:"first_name"`
	Username        string     `json:"username"`
	CreatedAt       time.Time  `json:"created_at" gorm:"index"`
	AuthenticatedAt *time.Time `json:"authenticated_at"`
}
