package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/navid-fn/nerkh/internal/catalog"
	"github.com/navid-fn/nerkh/internal/convert"
	"github.com/navid-fn/nerkh/internal/models"
)

// PriceService is what both price services expose to the API.
type PriceService interface {
	Price(symbol, unit string) (float64, bool)
	RenderRow(symbol, lang, noPriceMessage string) string
}

type ReportBuilder interface {
	BuildReport(ctx context.Context, symbols []string, lang string, useCache bool) (string, error)
}

type PriceHandler struct {
	currency PriceService
	crypto   PriceService
	catalog  *catalog.Catalog
	builder  ReportBuilder
}

func NewPriceHandler(currency, crypto PriceService, cat *catalog.Catalog, builder ReportBuilder) *PriceHandler {
	return &PriceHandler{
		currency: currency,
		crypto:   crypto,
		catalog:  cat,
		builder:  builder,
	}
}

// serviceFor routes crypto symbols to the crypto service.
func (h *PriceHandler) serviceFor(symbol string) PriceService {
	if inst, ok := h.catalog.Lookup(symbol); ok && inst.Section == catalog.SectionCrypto {
		return h.crypto
	}
	return h.currency
}

func (h *PriceHandler) pricer(symbol string) convert.Pricer {
	if h.serviceFor(symbol) == h.crypto {
		return convert.Chain(h.crypto, h.currency)
	}
	return convert.Chain(h.currency, h.crypto)
}

func (h *PriceHandler) GetPrice(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	unit := strings.ToLower(c.DefaultQuery("unit", models.UnitLocal))
	if unit != models.UnitLocal && unit != models.UnitUSD {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unit must be local or usd"})
		return
	}

	price, ok := h.pricer(symbol).Price(symbol, unit)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no price for " + symbol})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "unit": unit, "price": price})
}

func (h *PriceHandler) GetRows(c *gin.Context) {
	symbols := splitList(c.Query("symbols"))
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols is required"})
		return
	}
	lang := c.DefaultQuery("lang", "en")

	rows := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		rows = append(rows, h.serviceFor(symbol).RenderRow(symbol, lang, c.Query("unavailable")))
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (h *PriceHandler) GetEqualize(c *gin.Context) {
	symbol := strings.ToUpper(c.Query("symbol"))
	targets := splitList(c.Query("targets"))
	if symbol == "" || len(targets) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol and targets are required"})
		return
	}
	amount, err := strconv.ParseFloat(c.DefaultQuery("amount", "1"), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a non-negative number"})
		return
	}

	equivalents, err := convert.Equalize(h.pricer(symbol), symbol, amount, targets)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, models.ErrUnknownSymbol) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "amount": amount, "equivalents": equivalents})
}

func (h *PriceHandler) GetReport(c *gin.Context) {
	useCache := c.DefaultQuery("cache", "true") != "false"
	report, err := h.builder.BuildReport(c.Request.Context(), splitList(c.Query("symbols")), c.DefaultQuery("lang", "en"), useCache)
	if err != nil {
		if errors.Is(err, models.ErrNoData) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}
