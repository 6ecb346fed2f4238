package http

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

var currencyRe = regexp.MustCompile(`^[a-z]{3,4}$`)

type BalanceService interface {
	AddAsset(ctx context.Context, userID int64, searchID string, amount decimal.Decimal) (model.Holding, error)
	RemoveAsset(ctx context.Context, userID int64, searchID string, amount decimal.Decimal) error
	GetBalanceValues(ctx context.Context, userID int64, currency string) (model.UserBalance, error)
	GetTotalBalance(ctx context.Context, userID int64, currency string) (decimal.Decimal, error)
	Rebalance(ctx context.Context, userID int64, currency string, targetPercentages map[string]decimal.Decimal) error
}

type ReportGenerator interface {
	Generate(ctx context.Context, balance model.UserBalance, currency string) (fileBytes []byte, fileExtension string, err error)
}

type BalanceHandler struct {
	balance BalanceService
	reports ReportGenerator
}

func NewBalanceHandler(balance BalanceService, reports ReportGenerator) *BalanceHandler {
	return &BalanceHandler{balance: balance, reports: reports}
}

type assetMutationRequest struct {
	SearchID string          `json:"searchId" binding:"required"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
}

type rebalanceRequest struct {
	Currency          string                     `json:"currency" binding:"required"`
	TargetPercentages map[string]decimal.Decimal `json:"targetPercentages" binding:"required"`
}

type valuedHoldingResponse struct {
	SearchID        string          `json:"searchId"`
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	Amount          decimal.Decimal `json:"amount"`
	ValueInCurrency decimal.Decimal `json:"valueInCurrency"`
}

func currencyParam(c *gin.Context) (string, bool) {
	currency := c.Query("currency")
	if !currencyRe.MatchString(currency) {
		Error(c, http.StatusBadRequest, "currency must be a 3-4 char lowercase code")
		return "", false
	}
	return currency, true
}

func (h *BalanceHandler) addAsset(c *gin.Context) {
	userID, ok := middleware.UserIDFromCtx(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req assetMutationRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Amount.IsPositive() {
		Error(c, http.StatusBadRequest, "searchId and a positive amount are required")
		return
	}

	holding, err := h.balance.AddAsset(c.Request.Context(), userID, req.SearchID, req.Amount)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Ok(c, gin.H{"searchId": req.SearchID, "amount": holding.Amount})
}

func (h *BalanceHandler) removeAsset(c *gin.Context) {
	userID, ok := middleware.UserIDFromCtx(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req assetMutationRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Amount.IsPositive() {
		Error(c, http.StatusBadRequest, "searchId and a positive amount are required")
		return
	}

	if err := h.balance.RemoveAsset(c.Request.Context(), userID, req.SearchID, req.Amount); err != nil {
		ServiceError(c, err)
		return
	}

	Ok(c, nil)
}

func (h *BalanceHandler) getBalance(c *gin.Context) {
	userID, ok := middleware.UserIDFromCtx(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	currency, ok := currencyParam(c)
	if !ok {
		return
	}

	balance, err := h.balance.GetBalanceValues(c.Request.Context(), userID, currency)
	if err != nil {
		ServiceError(c, err)
		return
	}

	assets := make([]valuedHoldingResponse, 0, len(balance.Assets))
	for _, holding := range balance.Assets {
		assets = append(assets, valuedHoldingResponse{
			SearchID:        holding.Asset.SearchID,
			Symbol:          holding.Asset.Symbol,
			Name:            holding.Asset.Name,
			Amount:          holding.Amount,
			ValueInCurrency: holding.ValueInCurrency,
		})
	}

	Ok(c, gin.H{"userId": balance.UserID, "currency": currency, "assets": assets})
}

func (h *BalanceHandler) getTotalBalance(c *gin.Context) {
	userID, ok := middleware.UserIDFromCtx(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	currency, ok := currencyParam(c)
	if !ok {
		return
	}

	total, err := h.balance.GetTotalBalance(c.Request.Context(), userID, currency)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Ok(c, gin.H{"currency": currency, "total": total})
}

func (h *BalanceHandler) rebalance(c *gin.Context) {
	userID, ok := middleware.UserIDFromCtx(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req rebalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "currency and targetPercentages are required")
		return
	}

	if !currencyRe.MatchString(req.Currency) {
		Error(c, http.StatusBadRequest, "currency must be a 3-4 char lowercase code")
		return
	}

	if err := h.balance.Rebalance(c.Request.Context(), userID, req.Currency, req.TargetPercentages); err != nil {
		ServiceError(c, err)
		return
	}

	Ok(c, nil)
}

func (h *BalanceHandler) downloadReport(c *gin.Context) {
	userID, ok := middleware.UserIDFromCtx(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	currency, ok := currencyParam(c)
	if !ok {
		return
	}

	balance, err := h.balance.GetBalanceValues(c.Request.Context(), userID, currency)
	if err != nil {
		ServiceError(c, err)
		return
	}

	if len(balance.Assets) == 0 {
		Error(c, http.StatusNotFound, "balance is empty")
		return
	}

	fileBytes, ext, err := h.reports.Generate(c.Request.Context(), balance, currency)
	if err != nil {
		ServiceError(c, err)
		return
	}

	fileName := fmt.Sprintf("balance_%d_%s%s", userID, currency, ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", fileBytes)
}
