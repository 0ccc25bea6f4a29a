package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spinwheel/internal/api/jwt"
	"spinwheel/internal/api/middleware"
	"spinwheel/internal/ledger"
	"spinwheel/internal/logger"
	"spinwheel/internal/login"
	"spinwheel/internal/telegram"
	"spinwheel/internal/wheelapi"
)

type startParams struct {
	Ref string `json:"ref"`
}

type checkParams struct {
	Token string `json:"token" binding:"required"`
}

// Referral codes are Telegram user ids.
var digitCheck = regexp.MustCompile(`^[0-9]{1,20}$`)

func BotUrl(botUsername string, token string, ref string) string {
	if !digitCheck.MatchString(ref) {
		ref = ""
	}
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, telegram.BuildPayload(token, ref))
}

// StartTelegramLogin issues a login token and the bot deep link that carries it.
func StartTelegramLogin(c *gin.Context) {
	app := c.MustGet("app").(*wheelapi.App)
	var params startParams
	if err := c.ShouldBindJSON(&params); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := app.Login.StartLogin(c)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"bot_url": BotUrl(app.BotUsername, token, params.Ref),
	})
}

// CheckTelegramLogin is polled by the browser until the bot fulfils the token.
func CheckTelegramLogin(c *gin.Context) {
	app := c.MustGet("app").(*wheelapi.App)
	var params checkParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := app.Login.PollLogin(c, params.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	switch res.Status {
	case login.PollPending:
		c.JSON(http.StatusOK, gin.H{"status": res.Status})
		return
	case login.PollInvalid:
		c.JSON(http.StatusBadRequest, gin.H{
			"status": res.Status,
			"error":  telegram.MessageInvalidToken,
		})
		return
	}
	user, err := app.Store.FindUser(c, res.User.Id)
	if err != nil {
		// The token is consumed already, the browser has to start over.
		respondError(c, ledger.StoreFailure("load user", err))
		return
	}
	balance, err := app.Store.Balance(c, user.Id)
	if err != nil {
		respondError(c, ledger.StoreFailure("balance", err))
		return
	}
	token, _, err := app.Jwt.GenerateJWT(user)
	if err != nil {
		respondError(c, ledger.StoreFailure("issue jwt", err))
		return
	}
	logger.Info("session issued", zap.String("user", user.Id))
	c.JSON(http.StatusOK, gin.H{
		"status": res.Status,
		"jwt":    token,
		"user":   user.Data(balance),
	})
}

func Logout(c *gin.Context) {
	app := c.MustGet("app").(*wheelapi.App)
	claims := c.MustGet("claims").(*jwt.JWTClaim)
	if err := middleware.Revoke(c, app.Rdb, claims); err != nil {
		respondError(c, ledger.StoreFailure("revoke jwt", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
