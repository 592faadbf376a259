package mocks

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cradoe/lenda/internal/repository"
	"github.com/jmoiron/sqlx"
)

// MockDatabase satisfies repository.Database by handing out whichever mock
// repositories the test wires in. BeginTx is unsupported; tests that need a
// real transaction flow should use sqlmock instead.
type MockDatabase struct {
	UserRepo        repository.UserRepository
	WalletRepo      repository.WalletRepository
	TransactionRepo repository.TransactionRepository
	AccountLogRepo  repository.AccountLogRepository
}

func (m *MockDatabase) User() repository.UserRepository {
	return m.UserRepo
}

func (m *MockDatabase) Wallet() repository.WalletRepository {
	return m.WalletRepo
}

func (m *MockDatabase) Transaction() repository.TransactionRepository {
	return m.TransactionRepo
}

func (m *MockDatabase) AccountLog() repository.AccountLogRepository {
	return m.AccountLogRepo
}

func (m *MockDatabase) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, errors.New("transactions are not supported by the mock database")
}

func (m *MockDatabase) Close() error {
	return nil
}
