// Every balance-affecting action should leave a trace here.
// This helps in audit and will also be used to trace activities.
// ...
// We used polymorphism to define entity and entity_id
// This allows our table to be used for different parts of the application
package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type AccountLogRepository interface {
	Insert(log *AccountLog) (*AccountLog, error)
}

type AccountLog struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Entity      string    `db:"entity"`
	EntityId    int64     `db:"entity_id"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

const (
	// AccountLogTransactionEntity is used in actions that have to do with transactions and the transactions table
	AccountLogTransactionEntity = "transaction"

	// AccountLogWalletEntity is used in activities that have to do with wallets and the wallets table
	AccountLogWalletEntity = "wallet"

	// AccountLogUserEntity is used in activities that have to do with user accounts and the users table
	AccountLogUserEntity = "user"
)

const (
	AccountLogUserRegistrationDescription = "User registration"
	AccountLogUserLoginDescription        = "User login"
)

type AccountLogRepositoryImpl struct {
	db *sqlx.DB
}

func NewAccountLogRepository(db *sqlx.DB) AccountLogRepository {
	return &AccountLogRepositoryImpl{db: db}
}

func (repo *AccountLogRepositoryImpl) Insert(log *AccountLog) (*AccountLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var entry AccountLog

	query := `
		INSERT INTO account_logs (user_id, entity, entity_id, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, entity, entity_id, description, created_at`

	err := repo.db.GetContext(ctx, &entry, query,
		log.UserID,
		log.Entity,
		log.EntityId,
		log.Description,
	)

	if err != nil {
		return nil, err
	}

	return &entry, nil
}
