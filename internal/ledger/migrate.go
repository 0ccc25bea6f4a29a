package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"spinwheel/internal/logger"
)

// SchemaMigration is one applied schema version.
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:64;not null"`
	AppliedAt time.Time `gorm:"not null"`
}

type migration struct {
	Version int
	Name    string
	Up      func(tx *gorm.DB) error
}

// Table snapshots as they were when version 1 shipped. Later columns are
// added by later versions, so these must not follow the live models.
type userV1 struct {
	Id         string  `gorm:"primaryKey;size:32"`
	FirstName  string
	LastName   string
	Username   string
	ReferrerId *string `gorm:"index;size:32"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (userV1) TableName() string { return "users" }

type loginTokenV1 struct {
	Token           string `gorm:"primaryKey;size:64"`
	Status          string `gorm:"size:16;not null"`
	UserId          string `gorm:"size:32"`
	FirstName       string
	Username        string
	CreatedAt       time.Time `gorm:"index"`
	AuthenticatedAt *time.Time
}

func (loginTokenV1) TableName() string { return "login_tokens" }

type pointEventV1 struct {
	Id        uint   `gorm:"primaryKey;autoIncrement:true"`
	UserId    string `gorm:"index;size:32;not null"`
	Points    int64
	CreatedAt time.Time `gorm:"index"`
}

func (pointEventV1) TableName() string { return "point_events" }

type referralEdgeV1 struct {
	Id         uint   `gorm:"primaryKey;autoIncrement:true"`
	ReferrerId string `gorm:"index;size:32;not null"`
	ReferredId string `gorm:"uniqueIndex;size:32;not null"`
	CreatedAt  time.Time
}

func (referralEdgeV1) TableName() string { return "referral_edges" }

type withdrawRequestV1 struct {
	Id        uint   `gorm:"primaryKey;autoIncrement:true"`
	UserId    string `gorm:"index;size:32;not null"`
	Points    int64
	Address   string    `gorm:"size:128;not null"`
	Status    string    `gorm:"size:16;not null"`
	CreatedAt time.Time `gorm:"index"`
}

func (withdrawRequestV1) TableName() string { return "withdraw_requests" }

type purchaseV1 struct {
	Id        uint   `gorm:"primaryKey;autoIncrement:true"`
	UserId    string `gorm:"index;size:32;not null"`
	Item      string `gorm:"size:64;not null"`
	Points    int64
	CreatedAt time.Time
}

func (purchaseV1) TableName() string { return "purchases" }

var migrations = []migration{
	{
		Version: 1,
		Name:    "create_base_tables",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&userV1{},
				&loginTokenV1{},
				&pointEventV1{},
				&referralEdgeV1{},
				&withdrawRequestV1{},
				&purchaseV1{},
			)
		},
	},
	{
		Version: 2,
		Name:    "point_event_kind",
		Up: func(tx *gorm.DB) error {
			m := tx.Migrator()
			columns := []struct {
				name string
				ddl  string
			}{
				{"kind", "ALTER TABLE point_events ADD COLUMN kind VARCHAR(16) NOT NULL DEFAULT 'spin'"},
				{"reference", "ALTER TABLE point_events ADD COLUMN reference VARCHAR(64) NOT NULL DEFAULT ''"},
				{"spin_day", "ALTER TABLE point_events ADD COLUMN spin_day VARCHAR(10)"},
			}
			for _, c := range columns {
				if m.HasColumn("point_events", c.name) {
					continue
				}
				if err := tx.Exec(c.ddl).Error; err != nil {
					return err
				}
			}
			// Rows written before kinds existed: debits were withdrawals.
			if err := tx.Exec("UPDATE point_events SET kind = ? WHERE points < 0", KindWithdrawal).Error; err != nil {
				return err
			}
			if err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_point_events_kind ON point_events (kind)").Error; err != nil {
				return err
			}
			return tx.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_point_events_user_spin_day ON point_events (user_id, spin_day)").Error
		},
	},
}

// Migrate brings the schema up to date. Applied versions are recorded in
// schema_migrations, so running it again is a no-op.
func Migrate(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("schema_migrations: %w", err)
	}
	var applied []int
	if err := db.Model(&SchemaMigration{}).Pluck("version", &applied).Error; err != nil {
		return fmt.Errorf("schema_migrations: %w", err)
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}
	for _, mig := range migrations {
		if done[mig.Version] {
			continue
		}
		logger.Info("applying migration", zap.Int("version", mig.Version), zap.String("name", mig.Name))
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := mig.Up(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{
				Version:   mig.Version,
				Name:      mig.Name,
				AppliedAt: time.Now(),
			}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %d %s: %w", mig.Version, mig.Name, err)
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration, 0 for an empty database.
func SchemaVersion(ctx context.Context, db *gorm.DB) (int, error) {
	var version int
	err := db.WithContext(ctx).Model(&SchemaMigration{}).
		Select("COALESCE(MAX(version), 0)").
		Scan(&version).Error
	return version, err
}
