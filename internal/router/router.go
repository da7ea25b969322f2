package router

import (
	"github.com/gin-gonic/gin"

	"github.com/navid-fn/nerkh/internal/handler"
)

type Config struct {
	PriceHandler    *handler.PriceHandler
	BaselineHandler *handler.BaselineHandler
}

func NewRouter(cfg *Config) *gin.Engine {
	router := gin.Default()

	api := router.Group("/v1/")
	registerPriceRoutes(api, cfg.PriceHandler)
	registerBaselineRoutes(api, cfg.BaselineHandler)

	return router
}
