package ledger

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const DefaultTimeout = 5 * time.Second

// Store is the gorm implementation of Storage.
type Store struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewStore(db *gorm.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{db: db, timeout: timeout}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func (s *Store) Transaction(ctx context.Context, fn func(tx Storage) error) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, timeout: s.timeout})
	})
}

// Savepoint relies on gorm turning a Transaction on a tx handle into
// SAVEPOINT / ROLLBACK TO.
func (s *Store) Savepoint(ctx context.Context, fn func(tx Storage) error) error {
	return s.Transaction(ctx, fn)
}

func (s *Store) FindUser(ctx context.Context, id string) (*User, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var user User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// CreateUser inserts user unless a row with the same id exists.
func (s *Store) CreateUser(ctx context.Context, user *User) (bool, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(user)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// UpdateUserProfile refreshes the display fields. The referrer is never touched.
func (s *Store) UpdateUserProfile(ctx context.Context, user *User) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return translate(db.Model(&User{}).Where("id = ?", user.Id).Updates(map[string]interface{}{
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"username":   user.Username,
	}).Error)
}

// LockUser reads the user row with FOR UPDATE. Everything that checks a
// balance or the spin gate and then writes takes this lock first.
func (s *Store) LockUser(ctx context.Context, id string) (*User, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var user User
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) AppendEvent(ctx context.Context, event *PointEvent) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return translate(db.Create(event).Error)
}

func (s *Store) Balance(ctx context.Context, userId string) (int64, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var balance int64
	err := db.Model(&PointEvent{}).
		Select("CAST(COALESCE(SUM(points), 0) AS BIGINT)").
		Where("user_id = ?", userId).
		Scan(&balance).Error
	return balance, translate(err)
}

// HasSpunOn reports whether a spin event exists for day. Rows older than the
// spin_day column are matched by their timestamp range [from, to).
func (s *Store) HasSpunOn(ctx context.Context, userId string, day string, from, to time.Time) (bool, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var count int64
	err := db.Model(&PointEvent{}).
		Where("user_id = ? AND kind = ?", userId, KindSpin).
		Where("(spin_day = ? OR (created_at >= ? AND created_at < ?))", day, from, to).
		Count(&count).Error
	return count > 0, translate(err)
}

func (s *Store) ListEvents(ctx context.Context, userId string, limit, offset int) ([]PointEvent, int64, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var total int64
	if err := db.Model(&PointEvent{}).Where("user_id = ?", userId).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	events := []PointEvent{}
	err := db.Where("user_id = ?", userId).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	return events, total, translate(err)
}

func (s *Store) CreateReferralEdge(ctx context.Context, edge *ReferralEdge) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return translate(db.Create(edge).Error)
}

func (s *Store) ListReferrals(ctx context.Context, referrerId string, limit, offset int) ([]ReferralEdge, int64, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var total int64
	if err := db.Model(&ReferralEdge{}).Where("referrer_id = ?", referrerId).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	edges := []ReferralEdge{}
	err := db.Where("referrer_id = ?", referrerId).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&edges).Error
	return edges, total, translate(err)
}

func (s *Store) CreateLoginToken(ctx context.Context, token *LoginToken) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return translate(db.Create(token).Error)
}

func (s *Store) FindLoginToken(ctx context.Context, token string) (*LoginToken, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var t LoginToken
	if err := db.Where("token = ?", token).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// AuthenticateLoginToken moves a pending token to authenticated and attaches
// the user snapshot. It reports false when the token was not pending.
func (s *Store) AuthenticateLoginToken(ctx context.Context, token string, user *User) (bool, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	now := time.Now()
	res := db.Model(&LoginToken{}).
		Where("token = ? AND status = ?", token, TokenPending).
		Updates(map[string]interface{}{
			"status":           TokenAuthenticated,
			"user_id":          user.Id,
			"first_name":       user.FirstName,
			"username":         user.Username,
			"authenticated_at": now,
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ClaimLoginToken deletes an authenticated token and returns the deleted row
// in the same statement. ErrNotFound means nothing was claimed.
func (s *Store) ClaimLoginToken(ctx context.Context, token string) (*LoginToken, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var claimed []LoginToken
	res := db.Clauses(clause.Returning{}).
		Where("token = ? AND status = ?", token, TokenAuthenticated).
		Delete(&claimed)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if len(claimed) == 0 {
		return nil, ErrNotFound
	}
	return &claimed[0], nil
}

func (s *Store) DeleteLoginTokensBefore(ctx context.Context, before time.Time) (int64, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	res := db.Where("created_at < ?", before).Delete(&LoginToken{})
	return res.RowsAffected, translate(res.Error)
}

func (s *Store) CreateWithdrawRequest(ctx context.Context, req *WithdrawRequest) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return translate(db.Create(req).Error)
}

func (s *Store) ListWithdrawRequests(ctx context.Context, userId string) ([]WithdrawRequest, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	requests := []WithdrawRequest{}
	err := db.Where("user_id = ?", userId).
		Order("created_at DESC").
		Order("id DESC").
		Find(&requests).Error
	return requests, translate(err)
}

func (s *Store) CreatePurchase(ctx context.Context, purchase *Purchase) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return translate(db.Create(purchase).Error)
}

func (s *Store) ListPurchases(ctx context.Context, userId string) ([]Purchase, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	purchases := []Purchase{}
	err := db.Where("user_id = ?", userId).
		Order("created_at DESC").
		Order("id DESC").
		Find(&purchases).Error
	return purchases, translate(err)
}
