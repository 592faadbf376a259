package mocks

import (
	"github.com/cradoe/lenda/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockAccountLogRepo struct {
	mock.Mock
}

func (m *MockAccountLogRepo) Insert(log *repository.AccountLog) (*repository.AccountLog, error) {
	args := m.Called(log)
	record, _ := args.Get(0).(*repository.AccountLog)
	return record, args.Error(1)
}
