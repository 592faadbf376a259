package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Transaction rows are an append-only audit trail. They are inserted inside
// the same database transaction as the balance update they document and are
// never updated or deleted afterwards.
type Transaction struct {
	ID                int64           `db:"id"`
	WalletID          int64           `db:"wallet_id"`
	Type              string          `db:"type"`
	Status            string          `db:"status"`
	Amount            decimal.Decimal `db:"amount"`
	RecipientWalletID sql.NullInt64   `db:"recipient_wallet_id"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         sql.NullTime    `db:"updated_at"`
}

// define possible transaction types
const (
	TransactionTypeFunding    = "funding"
	TransactionTypeWithdrawal = "withdrawal"
	TransactionTypeTransfer   = "transfer"
)

// define possible transaction status
const (
	TransactionStatusPending  = "pending"
	TransactionStatusApproved = "approved"
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// TransactionsPageSize is the fixed page size for transaction listing.
const TransactionsPageSize = 10

// TransactionFilter holds the optional listing criteria. Zero/nil fields
// impose no constraint; set fields are combined with AND.
type TransactionFilter struct {
	Type       string
	Status     string
	AmountGte  *decimal.Decimal
	AmountLte  *decimal.Decimal
	CreatedGte *time.Time
	CreatedLte *time.Time
	Sort       string
	Batch      int
}

type TransactionRepository interface {
	Insert(transaction *Transaction, tx *sqlx.Tx) (*Transaction, error)
	FindForWallet(walletID int64, filter *TransactionFilter) ([]Transaction, error)
	CountForWallet(walletID int64) (int64, error)
}

type TransactionRepositoryImpl struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) TransactionRepository {
	return &TransactionRepositoryImpl{db: db}
}

func (repo *TransactionRepositoryImpl) Insert(transaction *Transaction, tx *sqlx.Tx) (*Transaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var trans Transaction

	query := `
		INSERT INTO transactions (wallet_id, type, status, amount, recipient_wallet_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, wallet_id, type, status, amount, recipient_wallet_id, created_at, updated_at`
	if tx != nil {
		err := tx.GetContext(ctx, &trans, query,
			transaction.WalletID,
			transaction.Type,
			transaction.Status,
			transaction.Amount,
			transaction.RecipientWalletID,
		)
		if err != nil {
			return nil, err
		}
	} else {
		err := repo.db.GetContext(ctx, &trans, query,
			transaction.WalletID,
			transaction.Type,
			transaction.Status,
			transaction.Amount,
			transaction.RecipientWalletID,
		)

		if err != nil {
			return nil, err
		}
	}

	return &trans, nil
}

// FindForWallet builds the listing query from a fixed set of optional
// predicate clauses. Each recognized filter field maps to exactly one clause;
// nothing from the filter is interpolated into the SQL text, values travel as
// bind arguments only.
func (repo *TransactionRepositoryImpl) FindForWallet(walletID int64, filter *TransactionFilter) ([]Transaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if filter == nil {
		filter = &TransactionFilter{}
	}

	where := []string{"wallet_id = $1"}
	args := []any{walletID}

	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}

	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	if filter.AmountGte != nil {
		args = append(args, *filter.AmountGte)
		where = append(where, fmt.Sprintf("amount >= $%d", len(args)))
	}

	if filter.AmountLte != nil {
		args = append(args, *filter.AmountLte)
		where = append(where, fmt.Sprintf("amount <= $%d", len(args)))
	}

	if filter.CreatedGte != nil {
		args = append(args, *filter.CreatedGte)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	if filter.CreatedLte != nil {
		args = append(args, *filter.CreatedLte)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	// insertion order is the default so pagination stays deterministic
	// when no sort direction was requested
	orderBy := "id ASC"
	switch filter.Sort {
	case SortAsc:
		orderBy = "created_at ASC"
	case SortDesc:
		orderBy = "created_at DESC"
	}

	batch := filter.Batch
	if batch < 1 {
		batch = 1
	}
	offset := (batch - 1) * TransactionsPageSize

	args = append(args, TransactionsPageSize, offset)

	query := fmt.Sprintf(`
		SELECT id, wallet_id, type, status, amount, recipient_wallet_id, created_at, updated_at
		FROM transactions
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		strings.Join(where, " AND "), orderBy, len(args)-1, len(args))

	var transactions []Transaction

	err := repo.db.SelectContext(ctx, &transactions, query, args...)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []Transaction{}, nil
		}
		return nil, err
	}

	return transactions, nil
}

// CountForWallet reports the total number of transactions on the wallet,
// deliberately ignoring any listing filters. Callers always receive the full
// wallet-scope count next to a filtered page; that is the published contract.
func (repo *TransactionRepositoryImpl) CountForWallet(walletID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var count int64

	query := `SELECT count(*) FROM transactions WHERE wallet_id = $1`

	err := repo.db.GetContext(ctx, &count, query, walletID)
	if err != nil {
		return 0, err
	}

	return count, nil
}
