package wheelapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"spinwheel/internal/api/jwt"
	"spinwheel/internal/ledger"
	"spinwheel/internal/logger"
	"spinwheel/internal/login"
	"spinwheel/internal/referral"
	"spinwheel/internal/rewards"
	"spinwheel/internal/shop"
	"spinwheel/internal/withdraw"
	"spinwheel/internal/worker"
)

const appConfigKey = "app_config"

type App struct {
	Rdb      *redis.Client
	Db       *gorm.DB
	Aqc      *asynq.Client
	Store    *ledger.Store
	Config   *AppConfig
	Jwt      *jwt.Issuer
	Login    *login.Handshake
	Referral *referral.Engine
	Rewards  *rewards.Engine
	Withdraw *withdraw.Engine
	Shop     *shop.Engine

	BotUsername string // for t.me login links
}

type AppConfig struct {
	Settings AppSettings `json:"settings"`
}

type AppSettings struct {
	MinWithdrawal int64           `json:"minWithdrawal"`
	ReferralBonus int64           `json:"referralBonus"`
	JackpotRange  [2]int64        `json:"jackpotRange"`
	Slices        []rewards.Slice `json:"slices"`
	Store         shop.Catalog    `json:"store"`
}

func (s AppSettings) Wheel() rewards.Wheel {
	return rewards.Wheel{
		Slices:     s.Slices,
		JackpotMin: s.JackpotRange[0],
		JackpotMax: s.JackpotRange[1],
	}
}

func DefaultAppConfig() *AppConfig {
	wheel := rewards.DefaultWheel()
	return &AppConfig{
		Settings: AppSettings{
			MinWithdrawal: withdraw.DefaultMinWithdrawal,
			ReferralBonus: referral.DefaultBonus,
			JackpotRange:  [2]int64{wheel.JackpotMin, wheel.JackpotMax},
			Slices:        wheel.Slices,
			Store: shop.Catalog{
				"extra_spin": 1000,
				"badge":      300,
			},
		},
	}
}

func (c *AppConfig) Validate() error {
	if c.Settings.MinWithdrawal <= 0 {
		return errors.New("minWithdrawal must be positive")
	}
	if c.Settings.ReferralBonus <= 0 {
		return errors.New("referralBonus must be positive")
	}
	return c.Settings.Wheel().Validate()
}

// Options are the process-level inputs of Init.
type Options struct {
	StoreTimeout time.Duration
	JwtTtl       time.Duration
	Settings     *AppConfig // from config.json, nil for defaults
}

// Init connects to the database, redis and the task queue and builds the engines.
func Init(ctx context.Context, opts Options) (*App, error) {
	loadEnv()
	db, err := setupDb(ctx)
	if err != nil {
		return nil, err
	}
	redisClient := setupRedis()
	issuer, err := jwt.NewIssuer(os.Getenv("JWT_SECRET"), opts.JwtTtl)
	if err != nil {
		return nil, err
	}
	defaults := opts.Settings
	if defaults == nil {
		defaults = DefaultAppConfig()
	}
	appConfig := LoadAppConfig(ctx, redisClient, defaults)
	return NewApp(db, redisClient, setupAsynqClient(), appConfig, issuer, opts.StoreTimeout)
}

// NewApp wires the engines around already opened connections.
func NewApp(db *gorm.DB, rdb *redis.Client, aqc *asynq.Client, config *AppConfig, issuer *jwt.Issuer, storeTimeout time.Duration) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("app config: %w", err)
	}
	store := ledger.NewStore(db, storeTimeout)
	ref := referral.NewEngine(store, config.Settings.ReferralBonus)
	spin, err := rewards.NewEngine(store, config.Settings.Wheel())
	if err != nil {
		return nil, err
	}
	var publisher login.Publisher
	if rdb != nil {
		publisher = NewLoginPublisher(rdb)
	}
	var notifier withdraw.Notifier
	if aqc != nil {
		notifier = worker.NewEnqueuer(aqc)
	}
	return &App{
		Rdb:      rdb,
		Db:       db,
		Aqc:      aqc,
		Store:    store,
		Config:   config,
		Jwt:      issuer,
		Login:    login.NewHandshake(store, ref, publisher),
		Referral: ref,
		Rewards:  spin,
		Withdraw: withdraw.NewEngine(store, config.Settings.MinWithdrawal, notifier),
		Shop:     shop.NewEngine(store, config.Settings.Store),
	}, nil
}

func (a *App) Close() {
	if a.Aqc != nil {
		_ = a.Aqc.Close()
	}
	if a.Rdb != nil {
		_ = a.Rdb.Close()
	}
	if a.Db != nil {
		_ = ledger.Close(a.Db)
	}
}

// LoadAppConfig returns the settings cached in redis, seeding the cache with
// defaults on first start. A broken cached value falls back to defaults.
func LoadAppConfig(ctx context.Context, rdb *redis.Client, defaults *AppConfig) *AppConfig {
	raw, err := rdb.Get(ctx, appConfigKey).Result()
	if err == nil && len(raw) > 0 {
		var cached AppConfig
		if err := json.Unmarshal([]byte(raw), &cached); err == nil && cached.Validate() == nil {
			return &cached
		}
		logger.Warn("cached app_config is invalid, using defaults")
		return defaults
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Warn("app_config not readable", zap.Error(err))
		return defaults
	}
	data, _ := json.Marshal(defaults)
	if err := rdb.Set(ctx, appConfigKey, data, 0).Err(); err != nil {
		logger.Warn("app_config not cached", zap.Error(err))
	}
	return defaults
}

func setupRedis() *redis.Client {
	db, err := strconv.Atoi(os.Getenv("REDIS_DB"))
	if err != nil {
		db = 0
	}
	return redis.NewClient(&redis.Options{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})
}

func RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	}
}

func setupDb(ctx context.Context) (*gorm.DB, error) {
	db, err := ledger.Open(os.Getenv("DB_DRIVER"), os.Getenv("DB_DSN"))
	if err != nil {
		return nil, err
	}
	if err := ledger.Migrate(ctx, db); err != nil {
		_ = ledger.Close(db)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func setupAsynqClient() *asynq.Client {
	return asynq.NewClient(RedisOpt())
}

func loadEnv() {
	env := os.Getenv("APP_ENV")
	if "" == env {
		env = "development"
	}

	_ = godotenv.Load(".env." + env + ".local")

	if "test" != env {
		_ = godotenv.Load(".env.local")
	}
	_ = godotenv.Load(".env." + env)
	_ = godotenv.Load()
}

// LoadEnv exposes the .env loading for commands that do not call Init.
func LoadEnv() {
	loadEnv()
}
