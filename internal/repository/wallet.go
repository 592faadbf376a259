package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type Wallet struct {
	ID        int64           `db:"id"`
	UserID    int64           `db:"user_id"`
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt sql.NullTime    `db:"updated_at"`
}

type WalletRepository interface {
	Insert(wallet *Wallet, tx *sqlx.Tx) (int64, error)
	GetOne(id int64) (*Wallet, bool, error)
	GetByUserID(userID int64) (*Wallet, bool, error)
	GetOneForUpdate(id int64, tx *sqlx.Tx) (*Wallet, bool, error)
	UpdateBalance(id int64, balance decimal.Decimal, tx *sqlx.Tx) error
}

type WalletRepositoryImpl struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) WalletRepository {
	return &WalletRepositoryImpl{db: db}
}

func (repo *WalletRepositoryImpl) Insert(wallet *Wallet, tx *sqlx.Tx) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id int64

	query := `
		INSERT INTO wallets (user_id)
		VALUES ($1)
		RETURNING id`
	if tx != nil {
		err := tx.QueryRowContext(ctx, query,
			wallet.UserID,
		).Scan(&id)
		if err != nil {
			return 0, err
		}
	} else {
		err := repo.db.GetContext(ctx, &id, query,
			wallet.UserID,
		)

		if err != nil {
			return 0, err
		}
	}

	return id, nil
}

func (repo *WalletRepositoryImpl) GetOne(id int64) (*Wallet, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var wallet Wallet

	query := `
        SELECT id, user_id, balance, created_at, updated_at FROM wallets WHERE id=$1`

	err := repo.db.GetContext(ctx, &wallet, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &wallet, true, nil
}

func (repo *WalletRepositoryImpl) GetByUserID(userID int64) (*Wallet, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var wallet Wallet

	query := `
        SELECT id, user_id, balance, created_at, updated_at FROM wallets WHERE user_id=$1`

	err := repo.db.GetContext(ctx, &wallet, query, userID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &wallet, true, nil
}

// GetOneForUpdate reads the wallet row inside the caller's transaction with a
// row-level lock, so concurrent balance mutations against the same wallet
// serialize on the database.
func (repo *WalletRepositoryImpl) GetOneForUpdate(id int64, tx *sqlx.Tx) (*Wallet, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var wallet Wallet

	query := `
		SELECT id, user_id, balance, created_at, updated_at FROM wallets WHERE id=$1 FOR UPDATE`

	err := tx.GetContext(ctx, &wallet, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &wallet, true, nil
}

// UpdateBalance must only be called inside a transaction that has locked the
// wallet row, never as a standalone write.
func (repo *WalletRepositoryImpl) UpdateBalance(id int64, balance decimal.Decimal, tx *sqlx.Tx) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE wallets SET balance=$1, updated_at=now() WHERE id=$2`

	_, err := tx.ExecContext(ctx, query, balance, id)

	return err
}
