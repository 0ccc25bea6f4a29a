package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spinwheel/internal/wheelapi"
)

type withdrawParams struct {
	Address string `json:"address"`
	Points  int64  `json:"points"`
}

func Withdraw(c *gin.Context) {
	app := c.MustGet("app").(*wheelapi.App)
	var params withdrawParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := app.Withdraw.RequestWithdrawal(c, c.GetString("user_id"), params.Address, params.Points)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": req})
}

func GetWithdrawHistory(c *gin.Context) {
	app := c.MustGet("app").(*wheelapi.App)
	history, err := app.Withdraw.ListWithdrawHistory(c, c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": history})
}
