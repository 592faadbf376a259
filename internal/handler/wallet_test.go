package handler

import (
	"bytes"
	dctx "context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cradoe/lenda/internal/context"
	"github.com/cradoe/lenda/internal/errHandler"
	"github.com/cradoe/lenda/internal/ledger"
	"github.com/cradoe/lenda/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Fund(ctx dctx.Context, walletID int64, amount decimal.Decimal) (*repository.Wallet, error) {
	args := m.Called(ctx, walletID, amount)
	wallet, _ := args.Get(0).(*repository.Wallet)
	return wallet, args.Error(1)
}

func (m *MockLedger) Withdraw(ctx dctx.Context, userID int64, amount decimal.Decimal) (*repository.Wallet, error) {
	args := m.Called(ctx, userID, amount)
	wallet, _ := args.Get(0).(*repository.Wallet)
	return wallet, args.Error(1)
}

func (m *MockLedger) Balance(userID int64) (*repository.Wallet, error) {
	args := m.Called(userID)
	wallet, _ := args.Get(0).(*repository.Wallet)
	return wallet, args.Error(1)
}

func (m *MockLedger) Transactions(userID int64, filter *repository.TransactionFilter) ([]repository.Transaction, int64, error) {
	args := m.Called(userID, filter)
	records, _ := args.Get(0).([]repository.Transaction)
	return records, args.Get(1).(int64), args.Error(2)
}

func newTestWalletHandler(mockLedger *MockLedger) *WalletHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewWalletHandler(&WalletHandler{
		Ledger:     mockLedger,
		ErrHandler: errHandler.New("", "http://localhost", nil, logger),
	})
}

func decodeEnvelope(t *testing.T, body []byte) map[string]any {
	t.Helper()

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope
}

func amountEquals(value string) any {
	want := decimal.RequireFromString(value)
	return mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(want)
	})
}

func authenticatedRequest(t *testing.T, method, target string, body []byte) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewBuffer(body)
	}

	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	return context.ContextSetAuthenticatedUser(req, &repository.User{ID: 7})
}

func TestHandleFundWallet_Success(t *testing.T) {
	mockLedger := new(MockLedger)
	walletHandler := newTestWalletHandler(mockLedger)

	mockLedger.On("Fund", mock.Anything, int64(1), amountEquals("50")).
		Return(&repository.Wallet{
			ID:        1,
			UserID:    7,
			Balance:   decimal.RequireFromString("150.00"),
			CreatedAt: time.Now(),
		}, nil)

	requestBody, _ := json.Marshal(map[string]any{
		"wallet_id": 1,
		"amount":    50,
	})

	req := authenticatedRequest(t, "POST", "/wallets/fund", requestBody)
	rr := httptest.NewRecorder()

	walletHandler.HandleFundWallet(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	envelope := decodeEnvelope(t, rr.Body.Bytes())
	require.Equal(t, true, envelope["success"])
	require.Equal(t, "Wallet funded successfully", envelope["message"])

	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "150", data["balance"])

	mockLedger.AssertExpectations(t)
}

func TestHandleFundWallet_RejectsMissingFields(t *testing.T) {
	mockLedger := new(MockLedger)
	walletHandler := newTestWalletHandler(mockLedger)

	requestBody, _ := json.Marshal(map[string]any{
		"amount": 0,
	})

	req := authenticatedRequest(t, "POST", "/wallets/fund", requestBody)
	rr := httptest.NewRecorder()

	walletHandler.HandleFundWallet(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	mockLedger.AssertNotCalled(t, "Fund", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleFundWallet_UnknownWallet(t *testing.T) {
	mockLedger := new(MockLedger)
	walletHandler := newTestWalletHandler(mockLedger)

	mockLedger.On("Fund", mock.Anything, int64(99), amountEquals("50")).
		Return(nil, &ledger.Error{Kind: ledger.KindNotFound, Message: "wallet not found"})

	requestBody, _ := json.Marshal(map[string]any{
		"wallet_id": 99,
		"amount":    50,
	})

	req := authenticatedRequest(t, "POST", "/wallets/fund", requestBody)
	rr := httptest.NewRecorder()

	walletHandler.HandleFundWallet(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)

	envelope := decodeEnvelope(t, rr.Body.Bytes())
	require.Equal(t, false, envelope["success"])
	require.Equal(t, "wallet not found", envelope["message"])

	mockLedger.AssertExpectations(t)
}

func TestHandleWithdraw_Success(t *testing.T) {
	mockLedger := new(MockLedger)
	walletHandler := newTestWalletHandler(mockLedger)

	mockLedger.On("Withdraw", mock.Anything, int64(7), amountEquals("60")).
		Return(&repository.Wallet{
			ID:        1,
			UserID:    7,
			Balance:   decimal.RequireFromString("40.00"),
			CreatedAt: time.Now(),
		}, nil)

	requestBody, _ := json.Marshal(map[string]any{"amount": 60})

	req := authenticatedRequest(t, "POST", "/wallets/withdraw", requestBody)
	rr := httptest.NewRecorder()

	walletHandler.HandleWithdraw(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	envelope := decodeEnvelope(t, rr.Body.Bytes())
	require.Equal(t, "Withdrawal successful", envelope["message"])

	mockLedger.AssertExpectations(t)
}

func TestHandleWithdraw_BankFailure(t *testing.T) {
	mockLedger := new(MockLedger)
	walletHandler := newTestWalletHandler(mockLedger)

	mockLedger.On("Withdraw", mock.Anything, int64(7), amountEquals("60")).
		Return(nil, &ledger.Error{Kind: ledger.KindExternal, Message: "bank withdrawal failed"})

	requestBody, _ := json.Marshal(map[string]any{"amount": 60})

	req := authenticatedRequest(t, "POST", "/wallets/withdraw", requestBody)
	rr := httptest.NewRecorder()

	walletHandler.HandleWithdraw(rr, req)

	require.Equal(t, http.StatusBadGateway, rr.Code)

	envelope := decodeEnvelope(t, rr.Body.Bytes())
	require.Equal(t, "bank withdrawal failed", envelope["message"])

	mockLedger.AssertExpectations(t)
}

func TestHandleWalletBalance(t *testing.T) {
	mockLedger := new(MockLedger)
	walletHandler := newTestWalletHandler(mockLedger)

	mockLedger.On("Balance", int64(7)).
		Return(&repository.Wallet{
			ID:      1,
			UserID:  7,
			Balance: decimal.RequireFromString("250.50"),
		}, nil)

	req := authenticatedRequest(t, "GET", "/wallets/balance", nil)
	rr := httptest.NewRecorder()

	walletHandler.HandleWalletBalance(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	envelope := decodeEnvelope(t, rr.Body.Bytes())
	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "250.5", data["balance"])
	require.Equal(t, float64(1), data["wallet_id"])

	mockLedger.AssertExpectations(t)
}

func TestHandleWalletTransactions_MapsQueryToFilter(t *testing.T) {
	mockLedger := new(MockLedger)
	walletHandler := newTestWalletHandler(mockLedger)

	mockLedger.On("Transactions", int64(7), mock.MatchedBy(func(filter *repository.TransactionFilter) bool {
		return filter.Type == repository.TransactionTypeFunding &&
			filter.Sort == repository.SortDesc &&
			filter.Batch == 2 &&
			filter.AmountGte != nil && filter.AmountGte.Equal(decimal.RequireFromString("25")) &&
			filter.CreatedGte != nil && filter.CreatedGte.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	})).Return([]repository.Transaction{
		{
			ID:       11,
			WalletID: 1,
			Type:     repository.TransactionTypeFunding,
			Status:   repository.TransactionStatusApproved,
			Amount:   decimal.RequireFromString("50.00"),
		},
	}, int64(42), nil)

	target := "/wallets/transactions?type=funding&sort=desc&batch=2&amount_gte=25&created_at_gte=2024-03-01"
	req := authenticatedRequest(t, "GET", target, nil)
	rr := httptest.NewRecorder()

	walletHandler.HandleWalletTransactions(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	envelope := decodeEnvelope(t, rr.Body.Bytes())
	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(42), data["total_count"])

	transactions, ok := data["transactions"].([]any)
	require.True(t, ok)
	require.Len(t, transactions, 1)

	mockLedger.AssertExpectations(t)
}

func TestHandleWalletTransactions_RejectsMalformedQuery(t *testing.T) {
	mockLedger := new(MockLedger)
	walletHandler := newTestWalletHandler(mockLedger)

	req := authenticatedRequest(t, "GET", "/wallets/transactions?amount_gte=abc", nil)
	rr := httptest.NewRecorder()

	walletHandler.HandleWalletTransactions(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	mockLedger.AssertNotCalled(t, "Transactions", mock.Anything, mock.Anything)
}
