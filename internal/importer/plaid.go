package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/shopspring/decimal"
)

// PlaidConfig holds Plaid API configuration.
type PlaidConfig struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production
	AccessToken string
}

// Validate ensures all required fields are present.
func (c *PlaidConfig) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: plaid client ID is required", common.ErrMissingConfig)
	}
	if c.Secret == "" {
		return fmt.Errorf("%w: plaid secret is required", common.ErrMissingConfig)
	}
	if c.AccessToken == "" {
		return fmt.Errorf("%w: plaid access token is required", common.ErrMissingConfig)
	}
	switch c.Environment {
	case "sandbox", "production":
	case "":
		return fmt.Errorf("%w: plaid environment is required", common.ErrMissingConfig)
	default:
		return fmt.Errorf("%w: invalid Plaid environment: must be sandbox or production", common.ErrInvalidConfig)
	}
	return nil
}

// TransactionFetcher retrieves already-converted records for a date range.
type TransactionFetcher interface {
	GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Record, error)
}

// PlaidClient fetches transactions from the Plaid API.
type PlaidClient struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	accessToken string
	retryOpts   common.RetryOptions
}

// NewPlaidClient creates a Plaid client from validated configuration.
func NewPlaidClient(cfg PlaidConfig) (*PlaidClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	return &PlaidClient{
		client:      plaid.NewAPIClient(configuration),
		accessToken: cfg.AccessToken,
		logger:      slog.Default().With("component", "plaid"),
		retryOpts:   common.DefaultRetryOptions(),
	}, nil
}

// GetTransactions fetches all transactions between startDate and endDate,
// following Plaid's offset pagination.
func (c *PlaidClient) GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Record, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}
	if startDate.After(endDate) {
		return nil, errors.New("start date must be before end date")
	}

	c.logger.Info("Fetching transactions from Plaid",
		"start_date", startDate.Format(model.DateLayout),
		"end_date", endDate.Format(model.DateLayout))

	var all []plaid.Transaction
	offset := int32(0)
	const pageSize = int32(500) // Plaid's max page size

	for {
		var page []plaid.Transaction

		retryErr := common.WithRetry(ctx, func() error {
			request := plaid.NewTransactionsGetRequest(
				c.accessToken,
				startDate.Format(model.DateLayout),
				endDate.Format(model.DateLayout),
			)
			request.SetOptions(plaid.TransactionsGetRequestOptions{
				Count:  plaid.PtrInt32(pageSize),
				Offset: plaid.PtrInt32(offset),
			})

			resp, _, err := c.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
			if err != nil {
				return classifyPlaidError(c.logger, err)
			}

			page = resp.GetTransactions()
			c.logger.Debug("Fetched transaction batch",
				"count", len(page),
				"offset", offset,
				"total", resp.GetTotalTransactions())
			return nil
		}, c.retryOpts)
		if retryErr != nil {
			return nil, retryErr
		}

		all = append(all, page...)
		if len(page) < int(pageSize) {
			break
		}
		offset += pageSize
	}

	c.logger.Info("Fetched all transactions", "count", len(all))

	records := make([]model.Record, 0, len(all))
	for _, pt := range all {
		if pt.GetPending() {
			continue
		}
		rec, ok := c.mapPlaidTransaction(pt)
		if ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// mapPlaidTransaction converts a Plaid transaction. Plaid reports money
// leaving the account as a positive amount. Zero amounts are dropped.
func (c *PlaidClient) mapPlaidTransaction(pt plaid.Transaction) (model.Record, bool) {
	date, err := model.ParseDate(pt.GetDate())
	if err != nil {
		c.logger.Warn("Failed to parse transaction date", "date", pt.GetDate(), "error", err)
	}

	merchant := pt.GetMerchantName()
	if merchant == "" {
		merchant = pt.GetName()
	}
	merchant = cleanMerchantName(merchant)

	return plaidRecord(pt.GetTransactionId(), pt.GetAccountId(), merchant, pt.GetAmount(), date, pt.GetCategory())
}

func plaidRecord(id, account, merchant string, amount float64, date time.Time, categories []string) (model.Record, bool) {
	value := decimal.NewFromFloat(amount).Round(2)
	if value.IsZero() {
		return model.Record{}, false
	}

	recType := model.TypeExpense
	if value.IsNegative() {
		recType = model.TypeIncome
		value = value.Neg()
	}

	hints := append([]string{merchant}, categories...)
	return model.Record{
		Type:      recType,
		Amount:    value,
		Category:  guessCategory(recType, hints...),
		Date:      date,
		Note:      merchant,
		PaidVia:   account,
		ExtraNote: Marker("plaid", id),
	}, true
}

func classifyPlaidError(logger *slog.Logger, err error) error {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return fmt.Errorf("failed to fetch transactions: %w", err)
	}
	if plaidErr.ErrorCode == "RATE_LIMIT_EXCEEDED" {
		logger.Warn("Rate limit hit, will retry", "error", plaidErr.ErrorMessage)
		return &common.RetryableError{Err: fmt.Errorf("%w: %s", common.ErrRateLimit, plaidErr.ErrorMessage), Retryable: true}
	}
	return &common.RetryableError{
		Err:       fmt.Errorf("plaid API error: %s - %s", plaidErr.ErrorCode, plaidErr.ErrorMessage),
		Retryable: false,
	}
}

// cleanMerchantName title-cases a merchant and strips trailing reference
// numbers and corporate suffixes.
func cleanMerchantName(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for i, word := range words {
		runes := []rune(word)
		for j := range runes {
			if j == 0 || !isLetter(runes[j-1]) {
				runes[j] = toUpper(runes[j])
			}
		}
		words[i] = string(runes)
	}

	// "MERCHANT 123456789": a long trailing number is a transaction reference
	if len(words) > 1 {
		last := words[len(words)-1]
		if len(last) > 5 && isAllDigits(last) {
			words = words[:len(words)-1]
		}
	}
	name = strings.Join(words, " ")

	suffixes := []string{" Llc", " Inc", " Corp", " Corporation", " Company", " Co", " Ltd", " Limited"}
	for changed := true; changed; {
		changed = false
		for _, suffix := range suffixes {
			if strings.HasSuffix(name, suffix) {
				name = strings.TrimSuffix(name, suffix)
				changed = true
			}
		}
	}

	return strings.TrimSpace(name)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 32
	}
	return r
}

// PlaidSource imports a date window from a TransactionFetcher.
type PlaidSource struct {
	Fetcher TransactionFetcher
	Start   time.Time
	End     time.Time
}

// Name identifies the source in logs.
func (s *PlaidSource) Name() string {
	return "plaid"
}

// Fetch returns the records in the configured window.
func (s *PlaidSource) Fetch(ctx context.Context) ([]model.Record, error) {
	return s.Fetcher.GetTransactions(ctx, s.Start, s.End)
}

var _ TransactionFetcher = (*PlaidClient)(nil)
