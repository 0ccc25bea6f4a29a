package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"spinwheel/internal/api"
	"spinwheel/internal/api/middleware"
	"spinwheel/internal/ledger"
	"spinwheel/internal/logger"
	"spinwheel/internal/login"
	"spinwheel/internal/wheelapi"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	pingPeriod = 3 * time.Second
	pongWait   = 9 * time.Second
)

func NewRouter(app *wheelapi.App, config *Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	mw := middleware.RateLimit(app.Rdb, config.RateLimitWindow.Duration, config.RateLimit)
	router.Use(cors.New(cors.Config{
		AllowOrigins:  config.AllowOrigins,
		AllowHeaders:  []string{"Origin", "Access-Control-Allow-Origin", "Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		AllowMethods:  []string{"GET, POST, OPTIONS, PUT, DELETE"},
		MaxAge:        24 * time.Hour,
	}))
	router.Use(func(c *gin.Context) {
		c.Set("app", app)
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	auth := router.Group("/auth/")
	{
		auth.POST("/telegram/start", mw, api.StartTelegramLogin)
		auth.POST("/telegram/start/", mw, api.StartTelegramLogin)
		auth.POST("/telegram/check", mw, api.CheckTelegramLogin)
		auth.POST("/telegram/check/", mw, api.CheckTelegramLogin)
		auth.GET("/telegram/ws", mw, wsHandler)
		auth.GET("/telegram/ws/", mw, wsHandler)
		auth.POST("/logout", mw, middleware.Auth(), api.Logout)
		auth.POST("/logout/", mw, middleware.Auth(), api.Logout)
	}
	users := router.Group("/users/").Use(middleware.Auth())
	{
		users.GET("/me", mw, api.GetUser)
		users.GET("/me/", mw, api.GetUser)
		users.GET("/ref", mw, api.GetReferrals)
		users.GET("/ref/", mw, api.GetReferrals)
		users.GET("/events", mw, api.GetEvents)
		users.GET("/events/", mw, api.GetEvents)
	}
	spin := router.Group("/spin")
	{
		spin.POST("", mw, middleware.Auth(), api.Spin)
		spin.POST("/", mw, middleware.Auth(), api.Spin)
		spin.GET("/wheel", mw, api.GetWheel)
		spin.GET("/wheel/", mw, api.GetWheel)
	}
	tx := router.Group("/tx/").Use(middleware.Auth())
	{
		tx.POST("/withdraw", mw, api.Withdraw)
		tx.POST("/withdraw/", mw, api.Withdraw)
		tx.GET("/withdraw", mw, api.GetWithdrawHistory)
		tx.GET("/withdraw/", mw, api.GetWithdrawHistory)
	}
	store := router.Group("/store/")
	{
		store.GET("/items", mw, api.GetStoreItems)
		store.GET("/items/", mw, api.GetStoreItems)
		store.POST("/purchase", mw, middleware.Auth(), api.Purchase)
		store.POST("/purchase/", mw, middleware.Auth(), api.Purchase)
		store.GET("/purchases", mw, middleware.Auth(), api.GetPurchases)
		store.GET("/purchases/", mw, middleware.Auth(), api.GetPurchases)
	}
	return router
}

// ApiInit serves the REST API until ctx is cancelled.
func ApiInit(ctx context.Context, app *wheelapi.App, config *Config) error {
	app.BotUsername = config.BotUsername
	srv := &http.Server{
		Addr:    ":" + config.Port,
		Handler: NewRouter(app, config),
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("API is up", zap.String("port", config.Port))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// wsHandler pushes {"status":"authenticated"} once the bot fulfils the
// token, so the browser can call /auth/telegram/check right away.
func wsHandler(c *gin.Context) {
	app := c.MustGet("app").(*wheelapi.App)
	token := c.DefaultQuery("token", "")
	if !login.ValidToken(token) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token"})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("failed to set websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pubsub := app.Rdb.Subscribe(ctx, wheelapi.LoginChannel(token))
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		logger.Error("login subscribe", zap.Error(err))
		return
	}

	var lastPong atomic.Int64
	lastPong.Store(time.Now().UnixNano())
	conn.SetPongHandler(func(string) error {
		lastPong.Store(time.Now().UnixNano())
		return nil
	})
	// Reading is needed for pong and close frames.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// The bot may have answered before we subscribed.
	if t, err := app.Store.FindLoginToken(ctx, token); err == nil && t.Status == ledger.TokenAuthenticated {
		writeLoginStatus(conn)
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			writeLoginStatus(conn)
			return
		case <-ticker.C:
			if time.Since(time.Unix(0, lastPong.Load())) > pongWait {
				logger.Debug("socket: client did not respond to ping, closing connection")
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeLoginStatus(conn *websocket.Conn) {
	err := conn.WriteJSON(gin.H{"status": login.PollAuthenticated})
	if err != nil {
		logger.Warn("socket: failed to send login status", zap.Error(err))
		return
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
