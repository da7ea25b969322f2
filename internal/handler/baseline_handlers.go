package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/navid-fn/nerkh/internal/rates"
	"github.com/navid-fn/nerkh/internal/tether"
)

type TetherStatus interface {
	Status() []tether.VendorStatus
}

type BaselineHandler struct {
	baseline *rates.Baseline
	tether   TetherStatus
}

func NewBaselineHandler(baseline *rates.Baseline, status TetherStatus) *BaselineHandler {
	return &BaselineHandler{baseline: baseline, tether: status}
}

type pinRequest struct {
	Value float64 `json:"value" binding:"required,gt=0"`
}

func (h *BaselineHandler) GetBaseline(c *gin.Context) {
	body := gin.H{"baseline": h.baseline.Snapshot()}
	if h.tether != nil {
		body["vendors"] = h.tether.Status()
	}
	c.JSON(http.StatusOK, body)
}

// PinRate fixes usd or usdt to the posted value until it is unpinned.
func (h *BaselineHandler) PinRate(c *gin.Context) {
	var req pinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.baseline.Pin(c.Param("rate"), req.Value) {
		c.JSON(http.StatusNotFound, gin.H{"error": "rate must be usd or usdt"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"baseline": h.baseline.Snapshot()})
}

func (h *BaselineHandler) UnpinRate(c *gin.Context) {
	if !h.baseline.Unpin(c.Param("rate")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "rate must be usd or usdt"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"baseline": h.baseline.Snapshot()})
}
