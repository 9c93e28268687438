package importer

import (
	"context"
	"time"

	"github.com/Veraticus/smart-finance/internal/model"
)

// MockFetcher is a TransactionFetcher for tests.
type MockFetcher struct {
	GetTransactionsFn    func(ctx context.Context, startDate, endDate time.Time) ([]model.Record, error)
	GetTransactionsCalls []GetTransactionsCall
}

// GetTransactionsCall records the parameters of a GetTransactions call.
type GetTransactionsCall struct {
	StartDate time.Time
	EndDate   time.Time
}

// GetTransactions records the call and delegates to GetTransactionsFn.
func (m *MockFetcher) GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Record, error) {
	m.GetTransactionsCalls = append(m.GetTransactionsCalls, GetTransactionsCall{
		StartDate: startDate,
		EndDate:   endDate,
	})

	if m.GetTransactionsFn != nil {
		return m.GetTransactionsFn(ctx, startDate, endDate)
	}
	return []model.Record{}, nil
}

var _ TransactionFetcher = (*MockFetcher)(nil)
