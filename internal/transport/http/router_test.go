package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/service"
	"github.com/cryptofolio/backend/internal/service/authService"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testUserID int64 = 42

type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, token string) (authService.Claims, error) {
	if token != "good-token" {
		return authService.Claims{}, service.ErrInvalidToken
	}
	return authService.Claims{
		UserID:           testUserID,
		RegisteredClaims: jwt.RegisteredClaims{ID: "jti-1"},
	}, nil
}

type fakeAuthSvc struct {
	registerErr error
	loggedOut   string
}

func (s *fakeAuthSvc) Register(_ context.Context, _, _ string) (int64, error) {
	if s.registerErr != nil {
		return 0, s.registerErr
	}
	return testUserID, nil
}

func (s *fakeAuthSvc) Login(_ context.Context, _, _ string) (model.AuthToken, error) {
	return model.AuthToken{AccessToken: "good-token"}, nil
}

func (s *fakeAuthSvc) Logout(_ context.Context, token string) error {
	s.loggedOut = token
	return nil
}

type fakeBalanceSvc struct {
	balance      model.UserBalance
	addErr       error
	removeErr    error
	balanceErr   error
	rebalanceErr error
}

func (s *fakeBalanceSvc) AddAsset(_ context.Context, userID int64, searchID string, amount decimal.Decimal) (model.Holding, error) {
	if s.addErr != nil {
		return model.Holding{}, s.addErr
	}
	return model.Holding{UserID: userID, Amount: amount}, nil
}

func (s *fakeBalanceSvc) RemoveAsset(_ context.Context, _ int64, _ string, _ decimal.Decimal) error {
	return s.removeErr
}

func (s *fakeBalanceSvc) GetBalanceValues(_ context.Context, userID int64, _ string) (model.UserBalance, error) {
	if s.balanceErr != nil {
		return model.UserBalance{}, s.balanceErr
	}
	balance := s.balance
	balance.UserID = userID
	return balance, nil
}

func (s *fakeBalanceSvc) GetTotalBalance(_ context.Context, _ int64, _ string) (decimal.Decimal, error) {
	if s.balanceErr != nil {
		return decimal.Decimal{}, s.balanceErr
	}
	total := decimal.Zero
	for _, holding := range s.balance.Assets {
		total = total.Add(holding.ValueInCurrency)
	}
	return total, nil
}

func (s *fakeBalanceSvc) Rebalance(_ context.Context, _ int64, _ string, _ map[string]decimal.Decimal) error {
	return s.rebalanceErr
}

type fakeReports struct{}

func (fakeReports) Generate(_ context.Context, _ model.UserBalance, _ string) ([]byte, string, error) {
	return []byte("xlsx-bytes"), ".xlsx", nil
}

type fakeRates struct{}

func (fakeRates) GetRates(_ context.Context, searchIDs []string, currency string) (model.Rates, error) {
	rates := map[string]decimal.Decimal{}
	for _, id := range searchIDs {
		rates[id] = decimal.NewFromInt(100)
	}
	return model.Rates{Currency: currency, Rates: rates, Cached: model.RateCoverageNone}, nil
}

func newTestRouter(balanceSvc *fakeBalanceSvc, authSvc *fakeAuthSvc) *gin.Engine {
	return NewRouter(
		fakeVerifier{},
		NewAuthHandler(authSvc),
		NewBalanceHandler(balanceSvc, fakeReports{}),
		NewRateHandler(fakeRates{}),
	)
}

func doRequest(t *testing.T, router *gin.Engine, method, target, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer good-token")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestRouter(t *testing.T) {
	t.Run("health is public", func(t *testing.T) {
		router := newTestRouter(&fakeBalanceSvc{}, &fakeAuthSvc{})
		rec := doRequest(t, router, http.MethodGet, "/health", "", false)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("api routes require a bearer token", func(t *testing.T) {
		router := newTestRouter(&fakeBalanceSvc{}, &fakeAuthSvc{})

		rec := doRequest(t, router, http.MethodGet, "/api/balance?currency=usd", "", false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		req := httptest.NewRequest(http.MethodGet, "/api/balance?currency=usd", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthRoutes(t *testing.T) {
	t.Run("register returns the new user id", func(t *testing.T) {
		router := newTestRouter(&fakeBalanceSvc{}, &fakeAuthSvc{})
		rec := doRequest(t, router, http.MethodPost, "/auth/register",
			`{"email":"alice@example.com","password":"correct horse"}`, false)

		assert.Equal(t, http.StatusCreated, rec.Code)
		envelope := decodeEnvelope(t, rec)
		data := envelope["data"].(map[string]any)
		assert.EqualValues(t, testUserID, data["userId"])
	})

	t.Run("register validates the payload", func(t *testing.T) {
		router := newTestRouter(&fakeBalanceSvc{}, &fakeAuthSvc{})

		rec := doRequest(t, router, http.MethodPost, "/auth/register",
			`{"email":"not-an-email","password":"correct horse"}`, false)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doRequest(t, router, http.MethodPost, "/auth/register",
			`{"email":"alice@example.com","password":"short"}`, false)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate registration maps to 409", func(t *testing.T) {
		router := newTestRouter(&fakeBalanceSvc{}, &fakeAuthSvc{registerErr: service.ErrUserAlreadyExists})
		rec := doRequest(t, router, http.MethodPost, "/auth/register",
			`{"email":"alice@example.com","password":"correct horse"}`, false)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("logout revokes the verified bearer token", func(t *testing.T) {
		authSvc := &fakeAuthSvc{}
		router := newTestRouter(&fakeBalanceSvc{}, authSvc)

		rec := doRequest(t, router, http.MethodPost, "/auth/logout", "", true)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "good-token", authSvc.loggedOut)
	})

	t.Run("logout rejects non-bearer schemes", func(t *testing.T) {
		authSvc := &fakeAuthSvc{}
		router := newTestRouter(&fakeBalanceSvc{}, authSvc)

		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.Header.Set("Authorization", "Basic good-token")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, authSvc.loggedOut)
	})

	t.Run("login returns an access token", func(t *testing.T) {
		router := newTestRouter(&fakeBalanceSvc{}, &fakeAuthSvc{})
		rec := doRequest(t, router, http.MethodPost, "/auth/login",
			`{"email":"alice@example.com","password":"correct horse"}`, false)

		assert.Equal(t, http.StatusOK, rec.Code)
		envelope := decodeEnvelope(t, rec)
		data := envelope["data"].(map[string]any)
		assert.Equal(t, "good-token", data["accessToken"])
	})
}

func TestBalanceRoutes(t *testing.T) {
	holdings := model.UserBalance{Assets: []model.ValuedHolding{
		{
			Asset:           model.Asset{SearchID: "bitcoin", Symbol: "btc", Name: "Bitcoin"},
			Amount:          decimal.NewFromInt(1),
			ValueInCurrency: decimal.NewFromInt(200),
		},
	}}

	t.Run("returns valued holdings", func(t *testing.T) {
		router := newTestRouter(&fakeBalanceSvc{balance: holdings}, &fakeAuthSvc{})
		rec := doRequest(t, router, http.MethodGet, "/api/balance?currency=usd", "", true)

		assert.Equal(t, http.StatusOK, rec.Code)
		envelope := decodeEnvelope(t, rec)
		data := envelope["data"].(map[string]any)
		assert.EqualValues(t, testUserID, data["userId"])
		assets := data["assets"].([]any)
		require.Len(t, assets, 1)
		asset := assets[0].(map[string]any)
		assert.Equal(t, "bitcoin", asset["searchId"])
	})

	t.Run("rejects a malformed currency", func(t *testing.T) {
		router := newTestRouter(&fakeBalanceSvc{}, &fakeAuthSvc{})

		for _, currency := range []string{"", "USD", "toolong", "u1d"} {
			rec := doRequest(t, router, http.MethodGet, "/api/balance?currency="+currency, "", true)
			assert.Equal(t, http.StatusBadRequest, rec.Code, "currency %q", currency)
		}
	})

	t.Run("add asset requires a positive amount", func(t *testing.T) {
		router := newTestRouter(&fakeBalanceSvc{}, &fakeAuthSvc{})

		rec := doRequest(t, router, http.MethodPost, "/api/balance/assets",
			`{"searchId":"bitcoin","amount":"-3"}`, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doRequest(t, router, http.MethodPost, "/api/balance/assets",
			`{"searchId":"bitcoin","amount":"3"}`, true)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("service errors map to api statuses", func(t *testing.T) {
		tests := []struct {
			name       string
			svc        *fakeBalanceSvc
			method     string
			target     string
			body       string
			wantStatus int
		}{
			{
				name:       "unknown asset",
				svc:        &fakeBalanceSvc{addErr: service.ErrInvalidAsset},
				method:     http.MethodPost,
				target:     "/api/balance/assets",
				body:       `{"searchId":"nope","amount":"1"}`,
				wantStatus: http.StatusBadRequest,
			},
			{
				name:       "missing holding",
				svc:        &fakeBalanceSvc{removeErr: service.ErrHoldingNotFound},
				method:     http.MethodDelete,
				target:     "/api/balance/assets",
				body:       `{"searchId":"bitcoin","amount":"1"}`,
				wantStatus: http.StatusNotFound,
			},
			{
				name:       "insufficient amount",
				svc:        &fakeBalanceSvc{removeErr: service.ErrInsufficientAmount},
				method:     http.MethodDelete,
				target:     "/api/balance/assets",
				body:       `{"searchId":"bitcoin","amount":"10"}`,
				wantStatus: http.StatusBadRequest,
			},
			{
				name:       "rates unavailable",
				svc:        &fakeBalanceSvc{balanceErr: service.ErrRateUnavailable},
				method:     http.MethodGet,
				target:     "/api/balance?currency=usd",
				wantStatus: http.StatusServiceUnavailable,
			},
			{
				name:       "invalid percentages",
				svc:        &fakeBalanceSvc{rebalanceErr: service.ErrInvalidPercentages},
				method:     http.MethodPost,
				target:     "/api/balance/rebalance",
				body:       `{"currency":"usd","targetPercentages":{"bitcoin":"90"}}`,
				wantStatus: http.StatusBadRequest,
			},
			{
				name:       "concurrent change during rebalance",
				svc:        &fakeBalanceSvc{rebalanceErr: service.ErrRebalanceConflict},
				method:     http.MethodPost,
				target:     "/api/balance/rebalance",
				body:       `{"currency":"usd","targetPercentages":{"bitcoin":"50","ethereum":"50"}}`,
				wantStatus: http.StatusConflict,
			},
			{
				name:       "nothing to rebalance",
				svc:        &fakeBalanceSvc{rebalanceErr: service.ErrNothingToRebalance},
				method:     http.MethodPost,
				target:     "/api/balance/rebalance",
				body:       `{"currency":"usd","targetPercentages":{"bitcoin":"50","ethereum":"50"}}`,
				wantStatus: http.StatusNotFound,
			},
			{
				name:       "zero-valued rebalance target",
				svc:        &fakeBalanceSvc{rebalanceErr: &service.UnsupportedAssetValueError{SearchIDs: []string{"dogecoin"}}},
				method:     http.MethodPost,
				target:     "/api/balance/rebalance",
				body:       `{"currency":"usd","targetPercentages":{"bitcoin":"50","dogecoin":"50"}}`,
				wantStatus: http.StatusBadRequest,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				router := newTestRouter(tt.svc, &fakeAuthSvc{})
				rec := doRequest(t, router, tt.method, tt.target, tt.body, true)
				assert.Equal(t, tt.wantStatus, rec.Code)
			})
		}
	})

	t.Run("report download sets the attachment headers", func(t *testing.T) {
		router := newTestRouter(&fakeBalanceSvc{balance: holdings}, &fakeAuthSvc{})
		rec := doRequest(t, router, http.MethodGet, "/api/balance/report?currency=usd", "", true)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "balance_42_usd.xlsx")
		assert.Equal(t, "xlsx-bytes", rec.Body.String())
	})

	t.Run("report download on an empty balance is 404", func(t *testing.T) {
		router := newTestRouter(&fakeBalanceSvc{}, &fakeAuthSvc{})
		rec := doRequest(t, router, http.MethodGet, "/api/balance/report?currency=usd", "", true)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRateRoute(t *testing.T) {
	t.Run("parses the assetIds list", func(t *testing.T) {
		router := newTestRouter(&fakeBalanceSvc{}, &fakeAuthSvc{})
		rec := doRequest(t, router, http.MethodGet, "/api/rate?currency=usd&assetIds=bitcoin,%20ethereum", "", true)

		assert.Equal(t, http.StatusOK, rec.Code)
		envelope := decodeEnvelope(t, rec)
		data := envelope["data"].(map[string]any)
		rates := data["rates"].(map[string]any)
		assert.Len(t, rates, 2)
	})

	t.Run("requires assetIds", func(t *testing.T) {
		router := newTestRouter(&fakeBalanceSvc{}, &fakeAuthSvc{})
		rec := doRequest(t, router, http.MethodGet, "/api/rate?currency=usd", "", true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
