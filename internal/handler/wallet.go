package handler

import (
	dctx "context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cradoe/lenda/internal/context"
	"github.com/cradoe/lenda/internal/errHandler"
	"github.com/cradoe/lenda/internal/repository"
	"github.com/cradoe/lenda/internal/request"
	"github.com/cradoe/lenda/internal/response"
	"github.com/cradoe/lenda/internal/validator"

	"github.com/shopspring/decimal"
)

// LedgerEngine is the slice of the ledger service the wallet endpoints use.
type LedgerEngine interface {
	Fund(ctx dctx.Context, walletID int64, amount decimal.Decimal) (*repository.Wallet, error)
	Withdraw(ctx dctx.Context, userID int64, amount decimal.Decimal) (*repository.Wallet, error)
	Balance(userID int64) (*repository.Wallet, error)
	Transactions(userID int64, filter *repository.TransactionFilter) ([]repository.Transaction, int64, error)
}

type WalletHandler struct {
	Ledger     LedgerEngine
	ErrHandler *errHandler.ErrorRepository
}

func NewWalletHandler(handler *WalletHandler) *WalletHandler {
	return &WalletHandler{
		Ledger:     handler.Ledger,
		ErrHandler: handler.ErrHandler,
	}
}

type WalletResponseData struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

type TransactionResponseData struct {
	ID        int64           `json:"id"`
	WalletID  int64           `json:"wallet_id"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

func walletResponseData(wallet *repository.Wallet) *WalletResponseData {
	return &WalletResponseData{
		ID:        wallet.ID,
		UserID:    wallet.UserID,
		Balance:   wallet.Balance,
		CreatedAt: wallet.CreatedAt,
	}
}

func (h *WalletHandler) HandleFundWallet(w http.ResponseWriter, r *http.Request) {
	var input struct {
		WalletID  int64               `json:"wallet_id"`
		Amount    decimal.Decimal     `json:"amount"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(input.WalletID > 0, "Wallet id is required")
	input.Validator.Check(input.Amount.IsPositive(), "Amount must be greater than zero")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	wallet, err := h.Ledger.Fund(r.Context(), input.WalletID, input.Amount)
	if err != nil {
		respondLedgerError(w, r, err, h.ErrHandler)
		return
	}

	message := "Wallet funded successfully"

	err = response.JSONOkResponse(w, walletResponseData(wallet), message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *WalletHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	var input struct {
		Amount    decimal.Decimal     `json:"amount"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(input.Amount.IsPositive(), "Amount must be greater than zero")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	wallet, err := h.Ledger.Withdraw(r.Context(), user.ID, input.Amount)
	if err != nil {
		respondLedgerError(w, r, err, h.ErrHandler)
		return
	}

	message := "Withdrawal successful"

	err = response.JSONOkResponse(w, walletResponseData(wallet), message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *WalletHandler) HandleWalletBalance(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	wallet, err := h.Ledger.Balance(user.ID)
	if err != nil {
		respondLedgerError(w, r, err, h.ErrHandler)
		return
	}

	message := "Balance fetched successfully"

	data := map[string]any{
		"wallet_id": wallet.ID,
		"balance":   wallet.Balance,
	}
	err = response.JSONOkResponse(w, data, message, nil)

	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *WalletHandler) HandleWalletTransactions(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	filter, err := transactionFilterFromQuery(r)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	records, totalCount, err := h.Ledger.Transactions(user.ID, filter)
	if err != nil {
		respondLedgerError(w, r, err, h.ErrHandler)
		return
	}

	transactions := make([]*TransactionResponseData, len(records))
	for i, record := range records {
		transactions[i] = &TransactionResponseData{
			ID:        record.ID,
			WalletID:  record.WalletID,
			Type:      record.Type,
			Status:    record.Status,
			Amount:    record.Amount,
			CreatedAt: record.CreatedAt,
		}
	}

	message := "Transaction records fetched successfully"

	data := map[string]any{
		"transactions": transactions,
		"total_count":  totalCount,
	}

	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// transactionFilterFromQuery maps the listing query string onto a structured
// filter. Mapping lives here so the ledger never sees raw querystring input.
func transactionFilterFromQuery(r *http.Request) (*repository.TransactionFilter, error) {
	q := r.URL.Query()

	filter := &repository.TransactionFilter{
		Type:   q.Get("type"),
		Status: q.Get("status"),
		Sort:   q.Get("sort"),
		Batch:  1,
	}

	if s := q.Get("amount_gte"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("amount_gte must be a number")
		}
		filter.AmountGte = &d
	}

	if s := q.Get("amount_lte"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("amount_lte must be a number")
		}
		filter.AmountLte = &d
	}

	if s := q.Get("created_at_gte"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, fmt.Errorf("created_at_gte must be a date in YYYY-MM-DD format")
		}
		filter.CreatedGte = &t
	}

	if s := q.Get("created_at_lte"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, fmt.Errorf("created_at_lte must be a date in YYYY-MM-DD format")
		}
		filter.CreatedLte = &t
	}

	if s := q.Get("batch"); s != "" {
		batch, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("batch must be a number")
		}
		filter.Batch = batch
	}

	return filter, nil
}
