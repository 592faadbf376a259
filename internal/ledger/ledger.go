// Package ledger implements the wallet ledger engine: funding, withdrawal,
// balance lookup and transaction listing.
//
// Every balance mutation runs inside a single database transaction that
// updates the wallet row and appends the transaction record together, so a
// balance change without its record (or the other way round) is never
// observable.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/cradoe/lenda/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// EventsTopic carries one Event per committed balance mutation. The audit
// worker consumes it to build the account log trail.
const EventsTopic = "wallet.transaction"

// BankGateway is the external bank-withdrawal leg. It is a synchronous,
// blocking dependency that can fail independently of the database.
type BankGateway interface {
	Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) (bool, error)
}

// Producer publishes ledger events to the stream.
type Producer interface {
	ProduceMessage(topic, message string) error
}

// Event documents one committed balance mutation.
type Event struct {
	TransactionID int64           `json:"transaction_id"`
	WalletID      int64           `json:"wallet_id"`
	UserID        int64           `json:"user_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Service struct {
	db     repository.Database
	bank   BankGateway
	events Producer
	logger *slog.Logger
}

func New(db repository.Database, bank BankGateway, events Producer, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		bank:   bank,
		events: events,
		logger: logger,
	}
}

// CreateWallet inserts a zero-balance wallet for the user, inside the
// caller's transaction. Registration passes the same transaction that
// inserts the user row, so a wallet can never exist without its user and a
// user is never committed without a wallet.
func (s *Service) CreateWallet(userID int64, tx *sqlx.Tx) (int64, error) {
	const op = "ledger.CreateWallet"

	id, err := s.db.Wallet().Insert(&repository.Wallet{UserID: userID}, tx)
	if err != nil {
		return 0, s.fail(op, err)
	}

	return id, nil
}

// Fund credits the wallet and appends a funding record in one atomic
// transaction, returning the post-mutation wallet state.
func (s *Service) Fund(ctx context.Context, walletID int64, amount decimal.Decimal) (*repository.Wallet, error) {
	const op = "ledger.Fund"

	if !amount.IsPositive() {
		return nil, validationError(op, "incomplete transaction details")
	}
	amount = amount.Round(2)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, s.fail(op, err)
	}

	defer tx.Rollback()

	wallet, found, err := s.db.Wallet().GetOneForUpdate(walletID, tx)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if !found {
		return nil, notFoundError(op, "wallet not found")
	}

	err = s.db.Wallet().UpdateBalance(wallet.ID, wallet.Balance.Add(amount), tx)
	if err != nil {
		return nil, s.fail(op, err)
	}

	trans, err := s.db.Transaction().Insert(&repository.Transaction{
		WalletID: wallet.ID,
		Type:     repository.TransactionTypeFunding,
		Status:   repository.TransactionStatusApproved,
		Amount:   amount,
	}, tx)
	if err != nil {
		return nil, s.fail(op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, s.fail(op, err)
	}

	fresh, _, err := s.db.Wallet().GetOne(wallet.ID)
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.publish(op, trans, fresh.UserID)

	return fresh, nil
}

// Withdraw debits the user's wallet after the bank leg succeeds.
//
// The balance is checked twice: once before calling the bank (the bank leg
// cannot be rolled back and has nontrivial latency, so it must not run for a
// request that is already doomed) and once more under a row lock inside the
// transaction, because a concurrent withdrawal may have drained the wallet
// in between. The bank leg itself sits outside the atomic boundary; if the
// commit fails after the bank reported success there is an at-least-once
// window that has to be reconciled out of band.
func (s *Service) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) (*repository.Wallet, error) {
	const op = "ledger.Withdraw"

	if !amount.IsPositive() {
		return nil, validationError(op, "withdrawal amount must be greater than zero")
	}
	amount = amount.Round(2)

	wallet, found, err := s.db.Wallet().GetByUserID(userID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if !found {
		return nil, notFoundError(op, "wallet not found")
	}

	if !wallet.Balance.IsPositive() {
		return nil, validationError(op, "insufficient balance")
	}

	if wallet.Balance.LessThan(amount) {
		return nil, validationError(op, "withdrawal exceeds balance")
	}

	ok, err := s.bank.Withdraw(ctx, userID, amount)
	if err != nil {
		s.logger.Error("bank withdrawal errored", "operation", op, "user_id", userID, "error", err)
		return nil, externalError(op, "bank withdrawal failed", err)
	}
	if !ok {
		return nil, externalError(op, "bank withdrawal failed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, s.fail(op, err)
	}

	defer tx.Rollback()

	locked, found, err := s.db.Wallet().GetOneForUpdate(wallet.ID, tx)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if !found {
		return nil, notFoundError(op, "wallet not found")
	}

	// re-validate under the row lock; the outer check may have raced a
	// concurrent withdrawal
	if locked.Balance.LessThan(amount) {
		return nil, validationError(op, "insufficient balance")
	}

	err = s.db.Wallet().UpdateBalance(locked.ID, locked.Balance.Sub(amount), tx)
	if err != nil {
		return nil, s.fail(op, err)
	}

	trans, err := s.db.Transaction().Insert(&repository.Transaction{
		WalletID: locked.ID,
		Type:     repository.TransactionTypeWithdrawal,
		Status:   repository.TransactionStatusApproved,
		Amount:   amount,
	}, tx)
	if err != nil {
		return nil, s.fail(op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, s.fail(op, err)
	}

	fresh, _, err := s.db.Wallet().GetOne(locked.ID)
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.publish(op, trans, userID)

	return fresh, nil
}

// Balance returns the user's wallet.
func (s *Service) Balance(userID int64) (*repository.Wallet, error) {
	const op = "ledger.Balance"

	wallet, found, err := s.db.Wallet().GetByUserID(userID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if !found {
		return nil, notFoundError(op, "wallet not found")
	}

	return wallet, nil
}

// Transactions lists a page of the user's transaction records together with
// the total count over the whole wallet, regardless of filters.
func (s *Service) Transactions(userID int64, filter *repository.TransactionFilter) ([]repository.Transaction, int64, error) {
	const op = "ledger.Transactions"

	if filter == nil {
		filter = &repository.TransactionFilter{Batch: 1}
	}

	if filter.Batch < 1 {
		return nil, 0, validationError(op, "batch must be greater than zero")
	}

	if filter.Sort != "" && filter.Sort != repository.SortAsc && filter.Sort != repository.SortDesc {
		return nil, 0, validationError(op, "sort must be either asc or desc")
	}

	switch filter.Type {
	case "", repository.TransactionTypeFunding, repository.TransactionTypeWithdrawal, repository.TransactionTypeTransfer:
	default:
		return nil, 0, validationError(op, "unrecognized transaction type")
	}

	switch filter.Status {
	case "", repository.TransactionStatusPending, repository.TransactionStatusApproved:
	default:
		return nil, 0, validationError(op, "unrecognized transaction status")
	}

	wallet, found, err := s.db.Wallet().GetByUserID(userID)
	if err != nil {
		return nil, 0, s.fail(op, err)
	}
	if !found {
		return nil, 0, validationError(op, "no wallet is associated with this user")
	}

	records, err := s.db.Transaction().FindForWallet(wallet.ID, filter)
	if err != nil {
		return nil, 0, s.fail(op, err)
	}

	count, err := s.db.Transaction().CountForWallet(wallet.ID)
	if err != nil {
		return nil, 0, s.fail(op, err)
	}

	return records, count, nil
}

// fail classifies an unexpected persistence error and logs it with the
// operation that hit it. Serialization failures surface as conflicts so the
// service boundary can decide to retry.
func (s *Service) fail(op string, err error) *Error {
	kind := KindInternal
	message := ""

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "40001" {
		kind = KindConflict
		message = "the operation conflicted with a concurrent update, please retry"
	}

	s.logger.Error("ledger operation failed", "operation", op, "kind", kind.String(), "error", err)

	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func (s *Service) publish(op string, trans *repository.Transaction, userID int64) {
	if s.events == nil {
		return
	}

	event := &Event{
		TransactionID: trans.ID,
		WalletID:      trans.WalletID,
		UserID:        userID,
		Type:          trans.Type,
		Amount:        trans.Amount,
		CreatedAt:     trans.CreatedAt,
	}

	message, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to encode ledger event", "operation", op, "error", err)
		return
	}

	go func() {
		if err := s.events.ProduceMessage(EventsTopic, string(message)); err != nil {
			s.logger.Error("failed to publish ledger event", "operation", op, "error", err)
		}
	}()
}
