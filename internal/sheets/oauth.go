package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/smart-finance/internal/storage"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

// OAuth2Config holds OAuth2 client credentials for the interactive flow.
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	TokenFile    string // where to save the token
	ListenAddr   string // callback listener, default localhost:8080
}

const authTimeout = 5 * time.Minute

func oauthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       []string{sheets.SpreadsheetsScope},
	}
}

// AuthenticateOAuth2Interactive runs the browser consent flow. The consent
// URL is written to out and the authorization code is received on a local
// callback server.
func AuthenticateOAuth2Interactive(ctx context.Context, config OAuth2Config, out io.Writer) (*oauth2.Token, error) {
	addr := config.ListenAddr
	if addr == "" {
		addr = "localhost:8080"
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}

	oauthCfg := oauthConfig(config.ClientID, config.ClientSecret, "http://"+listener.Addr().String()+"/callback")

	codeChan := make(chan string, 1)
	errorChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errorChan <- errors.New("no authorization code received")
			_, _ = fmt.Fprint(w, "Authentication failed: no authorization code received. Please try again.")
			return
		}
		codeChan <- code
		_, _ = fmt.Fprint(w, "Authentication successful. You can close this window and return to the terminal.")
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errorChan <- fmt.Errorf("callback server failed: %w", serveErr)
		}
	}()
	defer func() { _ = server.Shutdown(context.Background()) }()

	authURL := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	_, _ = fmt.Fprintf(out, "Visit this URL to authorize Google Sheets access:\n\n%s\n\n", authURL)

	var authCode string
	select {
	case authCode = <-codeChan:
		slog.Info("Received authorization code")
	case err := <-errorChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authTimeout):
		return nil, fmt.Errorf("authentication timeout - no response received within %s", authTimeout)
	}

	token, err := oauthCfg.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if config.TokenFile != "" {
		if err := SaveToken(config.TokenFile, token); err != nil {
			slog.Warn("Failed to save token to file", "error", err, "file", config.TokenFile)
		} else {
			slog.Info("Token saved", "file", config.TokenFile)
		}
	}

	return token, nil
}

// LoadToken loads a token from file.
func LoadToken(tokenFile string) (*oauth2.Token, error) {
	f, err := os.Open(filepath.Clean(tokenFile))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return token, nil
}

// SaveToken writes token to path with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	return storage.WriteFileAtomic(path, 0o600, func(w io.Writer) error {
		if err := json.NewEncoder(w).Encode(token); err != nil {
			return fmt.Errorf("failed to encode token: %w", err)
		}
		return nil
	})
}

// GetOrCreateToken returns the saved token when one exists and otherwise
// runs the interactive flow.
func GetOrCreateToken(ctx context.Context, config OAuth2Config, out io.Writer) (*oauth2.Token, error) {
	if config.TokenFile != "" {
		token, err := LoadToken(config.TokenFile)
		if err == nil && token.RefreshToken != "" {
			slog.Info("Loaded existing token from file")
			return token, nil
		}
		slog.Info("No usable token found, starting OAuth2 flow")
	}

	return AuthenticateOAuth2Interactive(ctx, config, out)
}
