// Package app ties accounts, sessions and the ledger together into the
// state of one logged-in user.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/smart-finance/internal/accounts"
	"github.com/Veraticus/smart-finance/internal/common"
	"github.com/Veraticus/smart-finance/internal/ledger"
	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/Veraticus/smart-finance/internal/session"
	"github.com/Veraticus/smart-finance/internal/storage"
)

// App holds the long-lived services shared by every command.
type App struct {
	Accounts *accounts.Directory
	Sessions *session.Store
	Store    storage.RecordStore
	Now      func() time.Time
	logger   *slog.Logger
}

// State is everything that belongs to the active session.
type State struct {
	Account *model.Account
	Session *model.Session
	Ledger  *ledger.Ledger
}

// New creates an App. Now is the clock for session expiry and join dates.
func New(accts *accounts.Directory, sessions *session.Store, store storage.RecordStore) *App {
	a := &App{
		Accounts: accts,
		Sessions: sessions,
		Store:    store,
		Now:      time.Now,
		logger:   slog.Default().With("component", "app"),
	}
	clock := func() time.Time { return a.Now() }
	accts.SetClock(clock)
	sessions.SetClock(clock)
	return a
}

// Signup registers an account and logs it in.
func (a *App) Signup(ctx context.Context, in accounts.NewAccount) (*State, error) {
	acct, err := a.Accounts.Create(in)
	if err != nil {
		return nil, err
	}
	return a.start(ctx, acct)
}

// Login verifies credentials and starts a session.
func (a *App) Login(ctx context.Context, email, password string) (*State, error) {
	acct, err := a.Accounts.Authenticate(email, password)
	if err != nil {
		return nil, err
	}
	return a.start(ctx, acct)
}

// Resume restores the state of the saved session.
func (a *App) Resume(ctx context.Context) (*State, error) {
	sess, err := a.Sessions.Load()
	if err != nil {
		if errors.Is(err, session.ErrSessionExpired) {
			return nil, fmt.Errorf("%w: session expired, log in again", common.ErrNotLoggedIn)
		}
		return nil, common.ErrNotLoggedIn
	}

	acct, ok := a.Accounts.FindByEmail(sess.Email)
	if !ok {
		a.logger.Warn("Session refers to a deleted account", "email", sess.Email)
		if err := a.Sessions.Clear(); err != nil {
			a.logger.Warn("Failed to clear orphaned session", "error", err)
		}
		return nil, common.ErrNotLoggedIn
	}

	return &State{
		Account: acct,
		Session: sess,
		Ledger:  ledger.Open(ctx, a.Store),
	}, nil
}

// Logout ends the saved session.
func (a *App) Logout() error {
	return a.Sessions.Clear()
}

// DeleteAccount removes the logged-in account and ends its session. The
// shared record store is left untouched.
func (a *App) DeleteAccount(state *State) error {
	if state == nil || state.Account == nil {
		return common.ErrNotLoggedIn
	}
	if err := a.Accounts.Delete(state.Account.Email); err != nil {
		return err
	}
	if err := a.Sessions.Clear(); err != nil {
		return err
	}
	state.Account = nil
	state.Session = nil
	return nil
}

func (a *App) start(ctx context.Context, acct *model.Account) (*State, error) {
	sess, err := a.Sessions.Create(*acct)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Logged in", "email", acct.Email)
	return &State{
		Account: acct,
		Session: sess,
		Ledger:  ledger.Open(ctx, a.Store),
	}, nil
}
