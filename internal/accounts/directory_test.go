package accounts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func openTestDirectory(t *testing.T) (*Directory, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.json")
	d, err := Open(path)
	require.NoError(t, err)
	d.HashCost = bcrypt.MinCost
	d.now = func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }
	return d, path
}

func validSignup() NewAccount {
	return NewAccount{
		FirstName: "Asha",
		LastName:  "Rao",
		Email:     "Asha@Example.com ",
		Password:  "s3cret",
	}
}

func TestCreateAndAuthenticate(t *testing.T) {
	d, path := openTestDirectory(t)

	acct, err := d.Create(validSignup())
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", acct.Email)
	assert.Equal(t, "2024-06-01", acct.DateJoined)
	assert.Empty(t, acct.Password)
	assert.NotEqual(t, "s3cret", acct.PasswordHash)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "s3cret")

	reopened, err := Open(path)
	require.NoError(t, err)
	got, err := reopened.Authenticate("ASHA@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", got.FullName())
}

func TestAuthenticate_GenericFailure(t *testing.T) {
	d, _ := openTestDirectory(t)
	_, err := d.Create(validSignup())
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "asha@example.com", password: "nope"},
		{name: "unknown email", email: "who@example.com", password: "s3cret"},
		{name: "empty password", email: "asha@example.com", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Authenticate(tt.email, tt.password)
			assert.ErrorIs(t, err, common.ErrInvalidCredentials)
		})
	}
}

func TestCreate_Validation(t *testing.T) {
	d, _ := openTestDirectory(t)
	_, err := d.Create(validSignup())
	require.NoError(t, err)

	dup := validSignup()
	dup.Email = "asha@EXAMPLE.com"
	_, err = d.Create(dup)
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	missing := validSignup()
	missing.LastName = "  "
	missing.Email = "other@example.com"
	_, err = d.Create(missing)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "last name")

	assert.Equal(t, 1, d.Len())
}

func TestAuthenticate_UpgradesLegacyPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	legacy := []map[string]string{{
		"first_name":  "Old",
		"last_name":   "Timer",
		"email":       "old@example.com",
		"password":    "plain",
		"date_joined": "2023-01-01",
	}}
	data, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))

	d, err := Open(path)
	require.NoError(t, err)
	d.HashCost = bcrypt.MinCost

	_, err = d.Authenticate("old@example.com", "wrong")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)

	acct, err := d.Authenticate("old@example.com", "plain")
	require.NoError(t, err)
	assert.Empty(t, acct.Password)
	assert.NotEmpty(t, acct.PasswordHash)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"password":`)

	reopened, err := Open(path)
	require.NoError(t, err)
	_, err = reopened.Authenticate("old@example.com", "plain")
	assert.NoError(t, err)
}

func TestOpen_CorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	d, err := Open(path)
	require.NoError(t, err)
	assert.ErrorIs(t, d.Warning(), ErrDirectoryCorrupted)
	assert.Equal(t, 0, d.Len())

	d.HashCost = bcrypt.MinCost
	_, err = d.Create(validSignup())
	require.NoError(t, err)
	assert.NoError(t, d.Warning())

	backup, err := os.ReadFile(path + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(backup))
}

func TestOpen_MissingAndEmpty(t *testing.T) {
	dir := t.TempDir()

	d, err := Open(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.NoError(t, d.Warning())
	assert.Equal(t, 0, d.Len())

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0600))
	d, err = Open(empty)
	require.NoError(t, err)
	assert.NoError(t, d.Warning())
}

func TestDeleteAndUpdateProfile(t *testing.T) {
	d, path := openTestDirectory(t)
	_, err := d.Create(validSignup())
	require.NoError(t, err)

	acct, err := d.UpdateProfile("asha@example.com", "Asha", "Verma")
	require.NoError(t, err)
	assert.Equal(t, "Verma", acct.LastName)
	assert.Equal(t, "Asha", acct.FirstName)

	_, err = d.UpdateProfile("nobody@example.com", "x", "y")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	require.NoError(t, d.Delete("ASHA@example.com"))
	assert.ErrorIs(t, d.Delete("asha@example.com"), ErrAccountNotFound)

	var stored []model.Account
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Empty(t, stored)
}

func TestChangePassword(t *testing.T) {
	d, _ := openTestDirectory(t)
	_, err := d.Create(validSignup())
	require.NoError(t, err)

	assert.ErrorIs(t, d.ChangePassword("asha@example.com", "bad", "new"), common.ErrInvalidCredentials)
	require.NoError(t, d.ChangePassword("asha@example.com", "s3cret", "n3w"))

	_, err = d.Authenticate("asha@example.com", "s3cret")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	_, err = d.Authenticate("asha@example.com", "n3w")
	assert.NoError(t, err)
}
