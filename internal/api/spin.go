package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spinwheel/internal/wheelapi"
)

func Spin(c *gin.Context) {
	app := c.MustGet("app").(*wheelapi.App)
	res, err := app.Rewards.Spin(c, c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetWheel returns the slice table the client renders.
func GetWheel(c *gin.Context) {
	app := c.MustGet("app").(*wheelapi.App)
	wheel := app.Rewards.Wheel
	c.JSON(http.StatusOK, gin.H{
		"slices":        wheel.Slices,
		"jackpot_range": [2]int64{wheel.JackpotMin, wheel.JackpotMax},
	})
}
