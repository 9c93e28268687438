package importer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/Veraticus/smart-finance/internal/storage"
	"github.com/shopspring/decimal"
)

// SimpleFINClient fetches transactions from a SimpleFIN Bridge access URL.
type SimpleFINClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	accessURL  string
	retryOpts  common.RetryOptions
}

// SimpleFINAuth is the saved result of claiming a setup token.
type SimpleFINAuth struct {
	ClaimedAt time.Time `json:"claimed_at"`
	AccessURL string    `json:"access_url"`
	TokenHint string    `json:"token_hint"`
}

type sfAccountSet struct {
	Errors   []string    `json:"errors"`
	Accounts []sfAccount `json:"accounts"`
}

type sfAccount struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Transactions []sfTransaction `json:"transactions"`
}

type sfTransaction struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Payee       string `json:"payee"`
	Posted      int64  `json:"posted"`
	Pending     bool   `json:"pending"`
}

// NewSimpleFINClient returns a client for an already claimed access URL.
func NewSimpleFINClient(accessURL string) (*SimpleFINClient, error) {
	if !isHTTPURL(accessURL) {
		return nil, fmt.Errorf("%w: simplefin access URL must be an http(s) URL", common.ErrInvalidConfig)
	}
	return &SimpleFINClient{
		accessURL:  strings.TrimSuffix(accessURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default().With("component", "simplefin"),
		retryOpts:  common.DefaultRetryOptions(),
	}, nil
}

// LoadOrClaimSimpleFIN returns the access URL saved at statePath, claiming
// token and saving the result when there is none.
func LoadOrClaimSimpleFIN(ctx context.Context, token, statePath string) (*SimpleFINAuth, error) {
	if auth, err := loadSimpleFINAuth(statePath); err == nil && auth.AccessURL != "" {
		slog.Debug("Using saved SimpleFIN access URL", "claimed_at", auth.ClaimedAt.Format(model.DateLayout))
		return auth, nil
	}

	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: simplefin setup token is required", common.ErrMissingConfig)
	}

	accessURL, err := claimSimpleFINToken(ctx, &http.Client{Timeout: 30 * time.Second}, token)
	if err != nil {
		return nil, err
	}

	auth := &SimpleFINAuth{
		AccessURL: accessURL,
		ClaimedAt: time.Now().UTC(),
		TokenHint: tokenHint(token),
	}
	if err := storage.WriteFileAtomic(statePath, 0o600, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(auth)
	}); err != nil {
		return nil, fmt.Errorf("failed to save simplefin access: %w", err)
	}

	slog.Info("Claimed SimpleFIN access URL", "state_file", statePath)
	return auth, nil
}

// claimSimpleFINToken exchanges a base64 setup token for an access URL.
func claimSimpleFINToken(ctx context.Context, client *http.Client, token string) (string, error) {
	token = strings.TrimSpace(token)
	decoded, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(token)
		if err != nil {
			return "", fmt.Errorf("%w: failed to decode simplefin token: %v", common.ErrInvalidConfig, err)
		}
	}

	claimURL := string(decoded)
	if !isHTTPURL(claimURL) {
		return "", fmt.Errorf("%w: simplefin token does not contain a claim URL", common.ErrInvalidConfig)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claimURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create claim request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to claim simplefin access: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read claim response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to claim simplefin access: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	accessURL := strings.TrimSpace(string(body))
	if !isHTTPURL(accessURL) {
		return "", fmt.Errorf("invalid simplefin access URL received")
	}
	return accessURL, nil
}

// GetTransactions fetches posted transactions of every account in the window.
func (c *SimpleFINClient) GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Record, error) {
	if startDate.After(endDate) {
		return nil, errors.New("start date must be before end date")
	}

	u, err := url.Parse(c.accessURL + "/accounts")
	if err != nil {
		return nil, fmt.Errorf("failed to parse access URL: %w", err)
	}
	q := u.Query()
	q.Set("start-date", strconv.FormatInt(startDate.Unix(), 10))
	// end-date is exclusive
	q.Set("end-date", strconv.FormatInt(endDate.AddDate(0, 0, 1).Unix(), 10))
	u.RawQuery = q.Encode()

	var set sfAccountSet
	err = common.WithRetry(ctx, func() error {
		var fetchErr error
		set, fetchErr = c.fetchAccounts(ctx, u.String())
		return fetchErr
	}, c.retryOpts)
	if err != nil {
		return nil, err
	}

	for _, msg := range set.Errors {
		c.logger.Warn("SimpleFIN reported a problem", "message", msg)
	}

	records := []model.Record{}
	for _, acct := range set.Accounts {
		for _, tx := range acct.Transactions {
			if tx.Pending {
				continue
			}
			rec, ok, err := simpleFINRecord(acct, tx)
			if err != nil {
				return nil, err
			}
			if ok {
				records = append(records, rec)
			}
		}
	}

	c.logger.Info("Fetched SimpleFIN transactions", "accounts", len(set.Accounts), "records", len(records))
	return records, nil
}

func (c *SimpleFINClient) fetchAccounts(ctx context.Context, endpoint string) (sfAccountSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return sfAccountSet{}, &common.RetryableError{Err: fmt.Errorf("failed to create request: %w", err), Retryable: false}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return sfAccountSet{}, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return sfAccountSet{}, common.ErrRateLimit
	case resp.StatusCode >= 500:
		return sfAccountSet{}, fmt.Errorf("simplefin server error: %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return sfAccountSet{}, &common.RetryableError{
			Err:       fmt.Errorf("simplefin API error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body))),
			Retryable: false,
		}
	}

	var set sfAccountSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return sfAccountSet{}, &common.RetryableError{Err: fmt.Errorf("failed to decode response: %w", err), Retryable: false}
	}
	return set, nil
}

// simpleFINRecord converts a transaction. SimpleFIN amounts are signed
// decimal strings, negative for money leaving the account.
func simpleFINRecord(acct sfAccount, tx sfTransaction) (model.Record, bool, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(tx.Amount))
	if err != nil {
		return model.Record{}, false, fmt.Errorf("failed to parse amount %q: %w", tx.Amount, err)
	}
	if amount.IsZero() {
		return model.Record{}, false, nil
	}

	recType := model.TypeIncome
	if amount.IsNegative() {
		recType = model.TypeExpense
		amount = amount.Neg()
	}

	merchant := cleanMerchantName(firstNonBlank(tx.Payee, tx.Description))
	return model.Record{
		Type:      recType,
		Amount:    amount,
		Category:  guessCategory(recType, merchant, tx.Description),
		Date:      model.NormalizeDate(time.Unix(tx.Posted, 0).UTC()),
		Note:      merchant,
		PaidVia:   acct.Name,
		ExtraNote: Marker("simplefin", acct.ID+"_"+tx.ID),
	}, true, nil
}

// SimpleFINStatePath is where the claimed access URL is kept inside dataDir.
func SimpleFINStatePath(dataDir string) string {
	return filepath.Join(dataDir, "simplefin.json")
}

func loadSimpleFINAuth(path string) (*SimpleFINAuth, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var auth SimpleFINAuth
	if err := json.Unmarshal(data, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// tokenHint keeps enough of a token to recognize it later.
func tokenHint(token string) string {
	if len(token) > 16 {
		return token[:8] + "..." + token[len(token)-8:]
	}
	return "short-token"
}

// SimpleFINSource imports a date window from SimpleFIN.
type SimpleFINSource struct {
	Fetcher TransactionFetcher
	Start   time.Time
	End     time.Time
}

// Name identifies the source in logs.
func (s *SimpleFINSource) Name() string {
	return "simplefin"
}

// Fetch returns the records in the configured window.
func (s *SimpleFINSource) Fetch(ctx context.Context) ([]model.Record, error) {
	return s.Fetcher.GetTransactions(ctx, s.Start, s.End)
}

var _ TransactionFetcher = (*SimpleFINClient)(nil)
