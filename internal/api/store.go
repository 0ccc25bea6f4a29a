package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spinwheel/internal/wheelapi"
)

type purchaseParams struct {
	Item string `json:"item" binding:"required"`
}

func GetStoreItems(c *gin.Context) {
	app := c.MustGet("app").(*wheelapi.App)
	c.JSON(http.StatusOK, gin.H{"results": app.Shop.Catalog.Items()})
}

func Purchase(c *gin.Context) {
	app := c.MustGet("app").(*wheelapi.App)
	var params purchaseParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	purchase, err := app.Shop.Purchase(c, c.GetString("user_id"), params.Item)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchase": purchase})
}

func GetPurchases(c *gin.Context) {
	app := c.MustGet("app").(*wheelapi.App)
	purchases, err := app.Shop.ListPurchases(c, c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": purchases})
}
