package ledger

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cradoe/lenda/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fakeBank satisfies BankGateway without the simulated latency.
type fakeBank struct {
	ok    bool
	err   error
	calls int
}

func (b *fakeBank) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) (bool, error) {
	b.calls++
	return b.ok, b.err
}

// decimalArg matches a bound decimal by numeric value, so "40" and "40.00"
// compare equal regardless of how the decimal was built.
type decimalArg struct {
	want decimal.Decimal
}

func (a decimalArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	d, err := decimal.NewFromString(s)
	return err == nil && d.Equal(a.want)
}

func amountOf(value string) decimalArg {
	return decimalArg{want: decimal.RequireFromString(value)}
}

func newMockService(t *testing.T, bank BankGateway) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := repository.NewWithDB(sqlx.NewDb(mockDB, "sqlmock"))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(db, bank, nil, logger), mock
}

func walletColumns() []string {
	return []string{"id", "user_id", "balance", "created_at", "updated_at"}
}

func transactionColumns() []string {
	return []string{"id", "wallet_id", "type", "status", "amount", "recipient_wallet_id", "created_at", "updated_at"}
}

func TestFund_CreditsWalletAndRecordsTransaction(t *testing.T) {
	service, mock := newMockService(t, &fakeBank{})
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM wallets WHERE id=\$1 FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(walletColumns()).
			AddRow(int64(1), int64(7), "100.00", now, nil))
	mock.ExpectExec(`UPDATE wallets SET balance=\$1, updated_at=now\(\) WHERE id=\$2`).
		WithArgs(amountOf("150.00"), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(int64(1), repository.TransactionTypeFunding, repository.TransactionStatusApproved, amountOf("50.00"), nil).
		WillReturnRows(sqlmock.NewRows(transactionColumns()).
			AddRow(int64(11), int64(1), repository.TransactionTypeFunding, repository.TransactionStatusApproved, "50.00", nil, now, nil))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM wallets WHERE id=\$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(walletColumns()).
			AddRow(int64(1), int64(7), "150.00", now, nil))

	wallet, err := service.Fund(context.Background(), 1, decimal.NewFromInt(50))
	require.NoError(t, err)
	require.True(t, wallet.Balance.Equal(decimal.NewFromInt(150)))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFund_RejectsNonPositiveAmount(t *testing.T) {
	service, mock := newMockService(t, &fakeBank{})

	_, err := service.Fund(context.Background(), 1, decimal.Zero)
	require.Error(t, err)
	require.Equal(t, KindValidation, KindOf(err))
	require.Equal(t, "incomplete transaction details", err.Error())

	// nothing must reach the database
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFund_UnknownWallet(t *testing.T) {
	service, mock := newMockService(t, &fakeBank{})

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM wallets WHERE id=\$1 FOR UPDATE`).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := service.Fund(context.Background(), 99, decimal.NewFromInt(50))
	require.Error(t, err)
	require.Equal(t, KindNotFound, KindOf(err))
	require.Equal(t, "wallet not found", err.Error())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdraw_DebitsWalletAfterBankLeg(t *testing.T) {
	bank := &fakeBank{ok: true}
	service, mock := newMockService(t, bank)
	now := time.Now()

	mock.ExpectQuery(`FROM wallets WHERE user_id=\$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(walletColumns()).
			AddRow(int64(1), int64(7), "100.00", now, nil))
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM wallets WHERE id=\$1 FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(walletColumns()).
			AddRow(int64(1), int64(7), "100.00", now, nil))
	mock.ExpectExec(`UPDATE wallets SET balance=\$1, updated_at=now\(\) WHERE id=\$2`).
		WithArgs(amountOf("40.00"), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(int64(1), repository.TransactionTypeWithdrawal, repository.TransactionStatusApproved, amountOf("60.00"), nil).
		WillReturnRows(sqlmock.NewRows(transactionColumns()).
			AddRow(int64(12), int64(1), repository.TransactionTypeWithdrawal, repository.TransactionStatusApproved, "60.00", nil, now, nil))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM wallets WHERE id=\$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(walletColumns()).
			AddRow(int64(1), int64(7), "40.00", now, nil))

	wallet, err := service.Withdraw(context.Background(), 7, decimal.NewFromInt(60))
	require.NoError(t, err)
	require.True(t, wallet.Balance.Equal(decimal.NewFromInt(40)))
	require.Equal(t, 1, bank.calls)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdraw_Preconditions(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		amount      decimal.Decimal
		balance     string
		wantKind    Kind
		wantMessage string
		hitsDB      bool
	}{
		{
			name:        "non-positive amount",
			amount:      decimal.NewFromInt(-5),
			wantKind:    KindValidation,
			wantMessage: "withdrawal amount must be greater than zero",
		},
		{
			name:        "empty wallet",
			amount:      decimal.NewFromInt(10),
			balance:     "0.00",
			wantKind:    KindValidation,
			wantMessage: "insufficient balance",
			hitsDB:      true,
		},
		{
			name:        "amount exceeds balance",
			amount:      decimal.NewFromInt(150),
			balance:     "100.00",
			wantKind:    KindValidation,
			wantMessage: "withdrawal exceeds balance",
			hitsDB:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank := &fakeBank{ok: true}
			service, mock := newMockService(t, bank)

			if tt.hitsDB {
				mock.ExpectQuery(`FROM wallets WHERE user_id=\$1`).
					WithArgs(int64(7)).
					WillReturnRows(sqlmock.NewRows(walletColumns()).
						AddRow(int64(1), int64(7), tt.balance, now, nil))
			}

			_, err := service.Withdraw(context.Background(), 7, tt.amount)
			require.Error(t, err)
			require.Equal(t, tt.wantKind, KindOf(err))
			require.Equal(t, tt.wantMessage, err.Error())

			// a failed precondition must never reach the bank
			require.Zero(t, bank.calls)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWithdraw_UnknownWallet(t *testing.T) {
	service, mock := newMockService(t, &fakeBank{ok: true})

	mock.ExpectQuery(`FROM wallets WHERE user_id=\$1`).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err := service.Withdraw(context.Background(), 7, decimal.NewFromInt(10))
	require.Error(t, err)
	require.Equal(t, KindNotFound, KindOf(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdraw_BankFailureLeavesBalanceUntouched(t *testing.T) {
	bank := &fakeBank{err: errors.New("gateway timeout")}
	service, mock := newMockService(t, bank)
	now := time.Now()

	mock.ExpectQuery(`FROM wallets WHERE user_id=\$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(walletColumns()).
			AddRow(int64(1), int64(7), "100.00", now, nil))

	_, err := service.Withdraw(context.Background(), 7, decimal.NewFromInt(60))
	require.Error(t, err)
	require.Equal(t, KindExternal, KindOf(err))
	require.Equal(t, "bank withdrawal failed", err.Error())
	require.Equal(t, 1, bank.calls)

	// no transaction was opened, so no write can have happened
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdraw_ConcurrentDrainDetectedUnderLock(t *testing.T) {
	// the outer read sees enough balance, but by the time the row lock is
	// taken a concurrent withdrawal has drained the wallet
	service, mock := newMockService(t, &fakeBank{ok: true})
	now := time.Now()

	mock.ExpectQuery(`FROM wallets WHERE user_id=\$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(walletColumns()).
			AddRow(int64(1), int64(7), "100.00", now, nil))
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM wallets WHERE id=\$1 FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(walletColumns()).
			AddRow(int64(1), int64(7), "40.00", now, nil))
	mock.ExpectRollback()

	_, err := service.Withdraw(context.Background(), 7, decimal.NewFromInt(60))
	require.Error(t, err)
	require.Equal(t, KindValidation, KindOf(err))
	require.Equal(t, "insufficient balance", err.Error())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBalance(t *testing.T) {
	service, mock := newMockService(t, &fakeBank{})
	now := time.Now()

	mock.ExpectQuery(`FROM wallets WHERE user_id=\$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(walletColumns()).
			AddRow(int64(1), int64(7), "250.50", now, nil))

	wallet, err := service.Balance(7)
	require.NoError(t, err)
	require.True(t, wallet.Balance.Equal(decimal.RequireFromString("250.50")))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBalance_SerializationFailureClassifiesAsConflict(t *testing.T) {
	service, mock := newMockService(t, &fakeBank{})

	mock.ExpectQuery(`FROM wallets WHERE user_id=\$1`).
		WithArgs(int64(7)).
		WillReturnError(&pq.Error{Code: "40001"})

	_, err := service.Balance(7)
	require.Error(t, err)
	require.Equal(t, KindConflict, KindOf(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactions_FilterValidation(t *testing.T) {
	tests := []struct {
		name        string
		filter      *repository.TransactionFilter
		wantMessage string
	}{
		{
			name:        "batch below one",
			filter:      &repository.TransactionFilter{Batch: 0},
			wantMessage: "batch must be greater than zero",
		},
		{
			name:        "unknown sort direction",
			filter:      &repository.TransactionFilter{Batch: 1, Sort: "sideways"},
			wantMessage: "sort must be either asc or desc",
		},
		{
			name:        "unknown type",
			filter:      &repository.TransactionFilter{Batch: 1, Type: "donation"},
			wantMessage: "unrecognized transaction type",
		},
		{
			name:        "unknown status",
			filter:      &repository.TransactionFilter{Batch: 1, Status: "reversed"},
			wantMessage: "unrecognized transaction status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, mock := newMockService(t, &fakeBank{})

			_, _, err := service.Transactions(7, tt.filter)
			require.Error(t, err)
			require.Equal(t, KindValidation, KindOf(err))
			require.Equal(t, tt.wantMessage, err.Error())

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTransactions_NoWalletForUser(t *testing.T) {
	service, mock := newMockService(t, &fakeBank{})

	mock.ExpectQuery(`FROM wallets WHERE user_id=\$1`).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, _, err := service.Transactions(7, &repository.TransactionFilter{Batch: 1})
	require.Error(t, err)
	require.Equal(t, KindValidation, KindOf(err))
	require.Equal(t, "no wallet is associated with this user", err.Error())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactions_ReturnsPageWithWalletScopeCount(t *testing.T) {
	service, mock := newMockService(t, &fakeBank{})
	now := time.Now()

	mock.ExpectQuery(`FROM wallets WHERE user_id=\$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(walletColumns()).
			AddRow(int64(1), int64(7), "100.00", now, nil))
	mock.ExpectQuery(`FROM transactions`).
		WithArgs(int64(1), repository.TransactionTypeFunding, 10, 0).
		WillReturnRows(sqlmock.NewRows(transactionColumns()).
			AddRow(int64(11), int64(1), repository.TransactionTypeFunding, repository.TransactionStatusApproved, "50.00", nil, now, nil))
	mock.ExpectQuery(`SELECT count\(\*\) FROM transactions WHERE wallet_id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	records, count, err := service.Transactions(7, &repository.TransactionFilter{
		Batch: 1,
		Type:  repository.TransactionTypeFunding,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)

	// the count covers the whole wallet, not just the filtered page
	require.Equal(t, int64(42), count)

	require.NoError(t, mock.ExpectationsWereMet())
}
