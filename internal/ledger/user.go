package ledger

import "time"

// User is a Telegram account known to the platform. Id is the Telegram user id.
type User struct {
	Id         string    `json:"id" gorm:"primaryKey;size:32"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Username   string    `json:"username"`
	ReferrerId *string   `json:"referrer_id" gorm:"index;size:32"` // Set once, at creation
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type UserData struct {
	ID         string  `json:"id"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Username   string  `json:"username"`
	ReferrerId *string `json:"referrer_id"`
	Balance    int64   `json:"points"`
}

func (u *User) Data(balance int64) UserData {
	return UserData{
		ID:         u.Id,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Username:   u.Username,
		ReferrerId: u.ReferrerId,
		Balance:    balance,
	}
}
