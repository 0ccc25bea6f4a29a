package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"spinwheel/internal/app"
	"spinwheel/internal/ledger"
	"spinwheel/internal/wheelapi"
)

func GetUser(c *gin.Context) {
	wapp := c.MustGet("app").(*wheelapi.App)
	userId := c.GetString("user_id")

	user, err := wapp.Store.FindUser(c, userId)
	if errors.Is(err, ledger.ErrNotFound) {
		respondError(c, ledger.NotAuthenticated("unknown user"))
		return
	}
	if err != nil {
		respondError(c, ledger.StoreFailure("find user", err))
		return
	}
	balance, err := wapp.Store.Balance(c, userId)
	if err != nil {
		respondError(c, ledger.StoreFailure("balance", err))
		return
	}
	c.JSON(http.StatusOK, user.Data(balance))
}

// GetEvents lists the user's ledger, newest first.
func GetEvents(c *gin.Context) {
	wapp := c.MustGet("app").(*wheelapi.App)
	page, size, ok := pageParams(c)
	if !ok {
		return
	}
	limit, offset := app.Paginate(page, size)
	events, total, err := wapp.Store.ListEvents(c, c.GetString("user_id"), limit, offset)
	if err != nil {
		respondError(c, ledger.StoreFailure("list events", err))
		return
	}
	c.JSON(http.StatusOK, paginate(c.FullPath(), page, size, total, events))
}

func GetReferrals(c *gin.Context) {
	wapp := c.MustGet("app").(*wheelapi.App)
	page, size, ok := pageParams(c)
	if !ok {
		return
	}
	limit, offset := app.Paginate(page, size)
	referrals, total, err := wapp.Referral.ListReferrals(c, c.GetString("user_id"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginate(c.FullPath(), page, size, total, referrals))
}
