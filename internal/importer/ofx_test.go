package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/Veraticus/smart-finance/internal/testutil"
	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ofxHeader = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
`

const sampleBankOFX = ofxHeader + `<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS COFFEE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<NAME>Whole Foods Market
</STMTTRN>
<STMTTRN>
<TRNTYPE>DIRECTDEP
<DTPOSTED>20240131120000[0:GMT]
<TRNAMT>3200.00
<FITID>2024013101
<NAME>ACME CORP
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = ofxHeader + `<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2024011001
<NAME>AMAZON.COM*RT4Y7HG2
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-15.00
<FITID>CC2024011501
<NAME>NETFLIX.COM
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseOFX_BankStatement(t *testing.T) {
	records, err := ParseOFX(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, records, 3)

	coffee := records[0]
	assert.Equal(t, model.TypeExpense, coffee.Type)
	assert.True(t, decimal.RequireFromString("25.50").Equal(coffee.Amount), "amount %s", coffee.Amount)
	assert.Equal(t, "Food", coffee.Category)
	assert.Equal(t, testutil.Date(2024, 1, 15), coffee.Date)
	assert.Equal(t, "STARBUCKS COFFEE #1234", coffee.Note)
	assert.Equal(t, "1234567890", coffee.PaidVia)
	assert.Equal(t, "import:ofx:2024011501", coffee.ExtraNote)

	assert.Equal(t, "Food", records[1].Category)

	payroll := records[2]
	assert.Equal(t, model.TypeIncome, payroll.Type)
	assert.Equal(t, "Salary", payroll.Category)
	assert.True(t, decimal.RequireFromString("3200").Equal(payroll.Amount))
}

func TestParseOFX_CreditCardStatement(t *testing.T) {
	records, err := ParseOFX(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "4111111111111111", records[0].PaidVia)
	assert.Equal(t, model.OtherCategory, records[0].Category)
	assert.Equal(t, "Entertainment", records[1].Category)
	for _, r := range records {
		assert.Equal(t, model.TypeExpense, r.Type)
		assert.True(t, IsImported(r))
	}
}

func TestParseOFX_Invalid(t *testing.T) {
	_, err := ParseOFX(context.Background(), strings.NewReader("this is not ofx"))
	assert.Error(t, err)
}

func TestParseOFX_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ParseOFX(ctx, strings.NewReader(sampleBankOFX))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOFXFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "january.qfx")
	require.NoError(t, os.WriteFile(path, []byte(sampleBankOFX), 0o600))

	src := NewOFXFile(path)
	assert.Equal(t, "ofx:january.qfx", src.Name())

	records, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 3)

	_, err = NewOFXFile(filepath.Join(t.TempDir(), "missing.ofx")).Fetch(context.Background())
	assert.Error(t, err)
}

func TestPreprocessOFX(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "leading whitespace",
			input: "\n\n  OFXHEADER:100",
			want:  "OFXHEADER:100",
		},
		{
			name:  "lower case severity",
			input: "<SEVERITY>Info</SEVERITY>",
			want:  "<SEVERITY>INFO</SEVERITY>",
		},
		{
			name:  "unterminated tag",
			input: "<OFX>\n<BANKMSGSRSV1\n</OFX>",
			want:  "<OFX>\n<BANKMSGSRSV1>\n</OFX>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, preprocessOFX(tt.input))
		})
	}
}

func TestExtractMerchantName(t *testing.T) {
	tests := []struct {
		name string
		tx   ofxgo.Transaction
		want string
	}{
		{
			name: "payee wins",
			tx:   ofxgo.Transaction{Name: "POS 1234", Payee: &ofxgo.Payee{Name: "Corner Deli"}},
			want: "Corner Deli",
		},
		{
			name: "generic name uses memo",
			tx:   ofxgo.Transaction{Name: "DEBIT", Memo: "Blue Bottle"},
			want: "Blue Bottle",
		},
		{
			name: "strips purchase prefix",
			tx:   ofxgo.Transaction{Name: "POS PURCHASE SHELL OIL"},
			want: "SHELL OIL",
		},
		{
			name: "strips authorisation date",
			tx:   ofxgo.Transaction{Name: "PURCHASE AUTHORIZED ON 01/15 TARGET"},
			want: "TARGET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractMerchantName(tt.tx))
		})
	}
}
