package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// OFXSource reads an OFX or QFX statement export.
type OFXSource struct {
	open func() (io.ReadCloser, error)
	name string
}

// NewOFXFile returns a source reading the statement at path.
func NewOFXFile(path string) *OFXSource {
	return &OFXSource{
		name: "ofx:" + filepath.Base(path),
		open: func() (io.ReadCloser, error) {
			return os.Open(filepath.Clean(path))
		},
	}
}

// NewOFXReader returns a source reading a statement from r.
func NewOFXReader(name string, r io.Reader) *OFXSource {
	return &OFXSource{
		name: "ofx:" + name,
		open: func() (io.ReadCloser, error) { return io.NopCloser(r), nil },
	}
}

// Name identifies the source in logs.
func (s *OFXSource) Name() string {
	return s.name
}

// Fetch parses every bank and credit card statement in the file.
func (s *OFXSource) Fetch(ctx context.Context) ([]model.Record, error) {
	rc, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("failed to open OFX file: %w", err)
	}
	defer func() { _ = rc.Close() }()

	return ParseOFX(ctx, rc)
}

// preprocessOFX fixes common formatting issues in OFX files.
func preprocessOFX(content string) string {
	// Trim any leading whitespace or blank lines before the header
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML exports sometimes drop the closing bracket of a bare tag
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// ParseOFX converts an OFX document into records.
func ParseOFX(ctx context.Context, reader io.Reader) ([]model.Record, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	records := []model.Record{}
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if stmt.BankTranList == nil {
				continue
			}
			for _, tx := range stmt.BankTranList.Transactions {
				records = append(records, convertOFXTransaction(tx, string(stmt.BankAcctFrom.AcctID)))
			}
		}
	}

	for _, msg := range resp.CreditCard {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if stmt.BankTranList == nil {
				continue
			}
			for _, tx := range stmt.BankTranList.Transactions {
				records = append(records, convertOFXTransaction(tx, string(stmt.CCAcctFrom.AcctID)))
			}
		}
	}

	slog.Info("Parsed OFX file",
		"total_transactions", len(records),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return records, nil
}

// convertOFXTransaction maps a statement line to a record. OFX amounts are
// negative for money leaving the account.
func convertOFXTransaction(tx ofxgo.Transaction, accountID string) model.Record {
	amount, err := decimal.NewFromString(tx.TrnAmt.String())
	if err != nil {
		f, _ := tx.TrnAmt.Float64()
		amount = decimal.NewFromFloat(f)
	}

	recType := model.TypeIncome
	if amount.IsNegative() {
		recType = model.TypeExpense
		amount = amount.Neg()
	}

	merchant := extractMerchantName(tx)
	hints := []string{merchant, string(tx.Name), string(tx.Memo)}
	switch tx.TrnType {
	case ofxgo.TrnTypeDirectDep:
		hints = append(hints, "direct deposit")
	case ofxgo.TrnTypeATM, ofxgo.TrnTypeFee, ofxgo.TrnTypeSrvChg:
		hints = nil
	}

	return model.Record{
		Type:      recType,
		Amount:    amount,
		Category:  guessCategory(recType, hints...),
		Date:      model.NormalizeDate(tx.DtPosted.Time),
		Note:      merchant,
		PaidVia:   accountID,
		ExtraNote: Marker("ofx", string(tx.FiTID)),
	}
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " authorisation dates
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}
