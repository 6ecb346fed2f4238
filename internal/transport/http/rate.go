package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/cryptofolio/backend/internal/model"
	"github.com/gin-gonic/gin"
)

type RateProvider interface {
	GetRates(ctx context.Context, searchIDs []string, currency string) (model.Rates, error)
}

type RateHandler struct {
	rates RateProvider
}

func NewRateHandler(rates RateProvider) *RateHandler {
	return &RateHandler{rates: rates}
}

func (h *RateHandler) getRates(c *gin.Context) {
	currency, ok := currencyParam(c)
	if !ok {
		return
	}

	raw := strings.TrimSpace(c.Query("assetIds"))
	if raw == "" {
		Error(c, http.StatusBadRequest, "assetIds is required")
		return
	}

	searchIDs := make([]string, 0)
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			searchIDs = append(searchIDs, id)
		}
	}

	rates, err := h.rates.GetRates(c.Request.Context(), searchIDs, currency)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Ok(c, gin.H{
		"currency": rates.Currency,
		"rates":    rates.Rates,
		"cached":   rates.Cached,
	})
}
