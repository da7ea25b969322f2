package router

import (
	"github.com/gin-gonic/gin"

	"github.com/navid-fn/nerkh/internal/handler"
)

func registerPriceRoutes(router *gin.RouterGroup, priceHandler *handler.PriceHandler) {
	router.GET("/prices/:symbol", priceHandler.GetPrice)
	router.GET("/rows", priceHandler.GetRows)
	router.GET("/equalize", priceHandler.GetEqualize)
	router.GET("/report", priceHandler.GetReport)
}

func registerBaselineRoutes(router *gin.RouterGroup, baselineHandler *handler.BaselineHandler) {
	baseline := router.Group("/baseline")
	{
		baseline.GET("", baselineHandler.GetBaseline)
		baseline.PUT("/:rate", baselineHandler.PinRate)
		baseline.DELETE("/:rate", baselineHandler.UnpinRate)
	}
}
