package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/Veraticus/smart-finance/internal/report"
)

// MockWriter is a mock implementation of ReportWriter for testing.
type MockWriter struct {
	WriteFunc      func(ctx context.Context, records []model.Record, summary report.Summary) error
	LastRecords    []model.Record
	WriteCalls     []WriteCall
	LastSummary    report.Summary
	WriteCallCount int
	mu             sync.Mutex
}

// WriteCall represents a single call to Write.
type WriteCall struct {
	Error   error
	Records []model.Record
	Summary report.Summary
}

// NewMockWriter creates a new mock writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{
		WriteCalls: make([]WriteCall, 0),
	}
}

// Write implements the ReportWriter interface.
func (m *MockWriter) Write(ctx context.Context, records []model.Record, summary report.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCallCount++
	m.LastRecords = records
	m.LastSummary = summary

	var err error
	if m.WriteFunc != nil {
		err = m.WriteFunc(ctx, records, summary)
	}

	m.WriteCalls = append(m.WriteCalls, WriteCall{
		Records: records,
		Summary: summary,
		Error:   err,
	})

	return err
}

// SetWriteError configures the mock to return err from Write.
func (m *MockWriter) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteFunc = func(_ context.Context, _ []model.Record, _ report.Summary) error {
		return err
	}
}

var _ ReportWriter = (*MockWriter)(nil)
