// Package accounts manages the registered user directory: signup, login
// verification and profile maintenance over a JSON file.
package accounts

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/Veraticus/smart-finance/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// Directory errors.
var (
	ErrMissingField       = errors.New("all fields are required")
	ErrDuplicateEmail     = errors.New("an account with this email already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrDirectoryCorrupted = errors.New("account directory corrupted")
)

// NewAccount holds the signup form.
type NewAccount struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Directory is the list of registered accounts persisted as a JSON array.
type Directory struct {
	now       func() time.Time
	warning   error
	logger    *slog.Logger
	path      string
	accounts  []model.Account
	dummy     []byte
	HashCost  int // bcrypt cost for new password hashes
	dummyOnce sync.Once
}

// Open loads the directory at path. A missing file is an empty directory.
// A file that is not valid JSON also yields an empty directory, with the
// problem reported by Warning; it is moved aside on the next save.
func Open(path string) (*Directory, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: accounts path", common.ErrMissingConfig)
	}

	d := &Directory{
		path:     path,
		accounts: []model.Account{},
		now:      time.Now,
		logger:   slog.Default().With("component", "accounts"),
		HashCost: bcrypt.DefaultCost,
	}

	data, err := os.ReadFile(path) // #nosec G304 -- configured data file
	if errors.Is(err, os.ErrNotExist) {
		return d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account directory: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return d, nil
	}

	var accounts []model.Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		d.warning = fmt.Errorf("%w: %v", ErrDirectoryCorrupted, err)
		d.logger.Warn("Account directory unreadable, starting empty", "path", path, "error", err)
		return d, nil
	}

	d.accounts = accounts
	return d, nil
}

// Warning returns the problem found while loading, if any.
func (d *Directory) Warning() error {
	return d.warning
}

// SetClock replaces the time source used for join dates.
func (d *Directory) SetClock(now func() time.Time) {
	d.now = now
}

// Len returns the number of accounts.
func (d *Directory) Len() int {
	return len(d.accounts)
}

// FindByEmail looks an account up by normalized email.
func (d *Directory) FindByEmail(email string) (*model.Account, bool) {
	i := d.indexOf(email)
	if i < 0 {
		return nil, false
	}
	acct := d.accounts[i]
	return &acct, true
}

// Authenticate verifies the credentials. Unknown emails and wrong passwords
// both return common.ErrInvalidCredentials. Accounts still holding a
// plaintext password are upgraded to a hash on successful login.
func (d *Directory) Authenticate(email, password string) (*model.Account, error) {
	i := d.indexOf(email)
	if i < 0 || password == "" {
		// Unknown emails cost the same as wrong passwords.
		_ = bcrypt.CompareHashAndPassword(d.dummyHash(), []byte(password))
		return nil, common.ErrInvalidCredentials
	}

	acct := d.accounts[i]
	switch {
	case acct.PasswordHash != "":
		if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
			return nil, common.ErrInvalidCredentials
		}
	case acct.Password != "":
		if subtle.ConstantTimeCompare([]byte(acct.Password), []byte(password)) != 1 {
			return nil, common.ErrInvalidCredentials
		}
		if err := d.upgrade(i, password); err != nil {
			d.logger.Warn("Failed to upgrade legacy password", "email", acct.Email, "error", err)
		}
		acct = d.accounts[i]
	default:
		return nil, common.ErrInvalidCredentials
	}

	return &acct, nil
}

// Create registers a new account with a hashed password.
func (d *Directory) Create(in NewAccount) (*model.Account, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = model.NormalizeEmail(in.Email)

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"first name", in.FirstName},
		{"last name", in.LastName},
		{"email", in.Email},
		{"password", in.Password},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMissingField, strings.Join(missing, ", "))
	}

	if d.indexOf(in.Email) >= 0 {
		return nil, ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), d.HashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	acct := model.Account{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: string(hash),
		DateJoined:   d.now().Format(model.DateLayout),
	}

	d.accounts = append(d.accounts, acct)
	if err := d.save(); err != nil {
		d.accounts = d.accounts[:len(d.accounts)-1]
		return nil, err
	}

	d.logger.Info("Account created", "email", acct.Email)
	return &acct, nil
}

// Delete removes the account with the given email.
func (d *Directory) Delete(email string) error {
	i := d.indexOf(email)
	if i < 0 {
		return ErrAccountNotFound
	}

	prev := append([]model.Account{}, d.accounts...)
	d.accounts = append(d.accounts[:i:i], d.accounts[i+1:]...)
	if err := d.save(); err != nil {
		d.accounts = prev
		return err
	}

	d.logger.Info("Account deleted", "email", model.NormalizeEmail(email))
	return nil
}

// UpdateProfile changes the name on an account. Empty values keep the
// current name.
func (d *Directory) UpdateProfile(email, firstName, lastName string) (*model.Account, error) {
	i := d.indexOf(email)
	if i < 0 {
		return nil, ErrAccountNotFound
	}

	prev := d.accounts[i]
	if v := strings.TrimSpace(firstName); v != "" {
		d.accounts[i].FirstName = v
	}
	if v := strings.TrimSpace(lastName); v != "" {
		d.accounts[i].LastName = v
	}

	if err := d.save(); err != nil {
		d.accounts[i] = prev
		return nil, err
	}

	acct := d.accounts[i]
	return &acct, nil
}

// ChangePassword replaces the password after verifying the current one.
func (d *Directory) ChangePassword(email, current, next string) error {
	if next == "" {
		return fmt.Errorf("%w: new password", ErrMissingField)
	}
	if _, err := d.Authenticate(email, current); err != nil {
		return err
	}
	return d.upgrade(d.indexOf(email), next)
}

func (d *Directory) upgrade(i int, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.HashCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	prev := d.accounts[i]
	d.accounts[i].PasswordHash = string(hash)
	d.accounts[i].Password = ""
	if err := d.save(); err != nil {
		d.accounts[i] = prev
		return err
	}
	return nil
}

func (d *Directory) indexOf(email string) int {
	email = model.NormalizeEmail(email)
	if email == "" {
		return -1
	}
	for i, a := range d.accounts {
		if model.NormalizeEmail(a.Email) == email {
			return i
		}
	}
	return -1
}

func (d *Directory) save() error {
	if errors.Is(d.warning, ErrDirectoryCorrupted) {
		backup := d.path + ".corrupt"
		if err := os.Rename(d.path, backup); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to move corrupted directory aside: %w", err)
		}
		d.logger.Warn("Moved corrupted account directory aside", "backup", backup)
		d.warning = nil
	}

	data, err := json.MarshalIndent(d.accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode accounts: %w", err)
	}

	err = storage.WriteFileAtomic(d.path, 0600, func(w io.Writer) error {
		_, werr := w.Write(data)
		return werr
	})
	if err != nil {
		return fmt.Errorf("failed to save account directory: %w", err)
	}
	return nil
}

func (d *Directory) dummyHash() []byte {
	d.dummyOnce.Do(func() {
		d.dummy, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), d.HashCost)
	})
	return d.dummy
}
