package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/browser"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// OAuthConfig holds OAuth configuration
type OAuthConfig struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURI  string   `json:"redirect_uri"`
	TokenFile    string   `json:"token_file"`
	Scopes       []string `json:"scopes"`
}

// OAuthClient manages OAuth2 authentication for the Google APIs. A token
// loaded from disk is reused and refreshed in the background; otherwise an
// interactive browser flow runs once and persists the result.
type OAuthClient struct {
	config       *oauth2.Config
	token        *oauth2.Token
	tokenFile    string
	httpClient   *http.Client
	mu           sync.RWMutex
	refreshTimer *time.Timer
}

// DefaultScopes returns the scopes this server needs
func DefaultScopes() []string {
	return []string{
		"https://www.googleapis.com/auth/documents",
		"https://www.googleapis.com/auth/drive",
	}
}

// NewOAuthClient creates a new OAuth client
func NewOAuthClient(ctx context.Context, config OAuthConfig) (*OAuthClient, error) {
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("client ID and client secret are required")
	}
	if len(config.Scopes) == 0 {
		config.Scopes = DefaultScopes()
	}
	if config.RedirectURI == "" {
		config.RedirectURI = "http://localhost:8080/callback"
	}
	if config.TokenFile == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		config.TokenFile = filepath.Join(homeDir, ".gws-mcp-token.json")
	}

	client := &OAuthClient{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURI,
			Scopes:       config.Scopes,
			Endpoint:     google.Endpoint,
		},
		tokenFile: config.TokenFile,
	}

	if err := client.loadToken(); err == nil {
		client.httpClient = client.config.Client(ctx, client.token)
		client.startTokenRefresh(ctx)
		return client, nil
	}

	if err := client.authenticate(ctx); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	client.startTokenRefresh(ctx)
	return client, nil
}

// GetHTTPClient returns the authenticated HTTP client
func (c *OAuthClient) GetHTTPClient() *http.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.httpClient
}

// GetClientOption returns the Google API client option
func (c *OAuthClient) GetClientOption() option.ClientOption {
	return option.WithHTTPClient(c.GetHTTPClient())
}

// authenticate runs the interactive browser flow: open the consent page,
// collect the authorization code on the localhost callback, exchange it,
// and persist the token.
func (c *OAuthClient) authenticate(ctx context.Context) error {
	authURL := c.config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)

	log.Printf("[INFO] Opening browser for authentication. If it does not open, visit:\n%s", authURL)
	if err := browser.OpenURL(authURL); err != nil {
		log.Printf("[WARNING] Failed to open browser: %v", err)
	}

	addr, err := callbackAddr(c.config.RedirectURL)
	if err != nil {
		return err
	}

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)
	srv := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				errChan <- fmt.Errorf("no authorization code received")
				http.Error(w, "No authorization code received", http.StatusBadRequest)
				return
			}
			codeChan <- code
			w.Header().Set("Content-Type", "text/html")
			_, _ = fmt.Fprint(w, "<html><body><h1>Authentication successful!</h1>"+
				"<p>You can close this window and return to the terminal.</p></body></html>")
		}),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var code string
	select {
	case code = <-codeChan:
	case err := <-errChan:
		return err
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("authentication timeout")
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[WARNING] Failed to shut down callback server: %v", err)
	}

	token, err := c.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	c.mu.Lock()
	c.token = token
	c.httpClient = c.config.Client(ctx, token)
	c.mu.Unlock()

	if err := c.saveToken(); err != nil {
		log.Printf("[WARNING] Failed to save token: %v", err)
	}
	log.Println("[INFO] Authentication successful")
	return nil
}

// callbackAddr derives the listen address from the redirect URI.
func callbackAddr(redirectURI string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URI: %w", err)
	}
	port := u.Port()
	if port == "" {
		port = "8080"
	}
	return ":" + port, nil
}

// loadToken loads the OAuth token from file
func (c *OAuthClient) loadToken() error {
	file, err := os.Open(c.tokenFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	token := &oauth2.Token{}
	if err := json.NewDecoder(file).Decode(token); err != nil {
		return err
	}
	if token.Expiry.Before(time.Now()) && token.RefreshToken == "" {
		return fmt.Errorf("token expired and no refresh token available")
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return nil
}

// saveToken saves the OAuth token to file
func (c *OAuthClient) saveToken() error {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token == nil {
		return fmt.Errorf("no token to save")
	}

	if err := os.MkdirAll(filepath.Dir(c.tokenFile), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	file, err := os.OpenFile(c.tokenFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := json.NewEncoder(file).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return nil
}

// startTokenRefresh schedules a refresh shortly before the token expires
func (c *OAuthClient) startTokenRefresh(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
	}
	if c.token == nil || c.token.RefreshToken == "" {
		return
	}

	refreshIn := time.Until(c.token.Expiry) - 5*time.Minute
	if refreshIn <= 0 {
		refreshIn = time.Second
	}
	c.refreshTimer = time.AfterFunc(refreshIn, func() {
		c.refreshToken(ctx)
	})
}

// refreshToken refreshes the OAuth token and re-arms the timer
func (c *OAuthClient) refreshToken(ctx context.Context) {
	c.mu.RLock()
	current := c.token
	c.mu.RUnlock()
	if current == nil || current.RefreshToken == "" {
		return
	}

	newToken, err := c.config.TokenSource(ctx, current).Token()
	if err != nil {
		log.Printf("[WARNING] Failed to refresh token: %v", err)
		return
	}

	c.mu.Lock()
	c.token = newToken
	c.httpClient = c.config.Client(ctx, newToken)
	c.mu.Unlock()

	if err := c.saveToken(); err != nil {
		log.Printf("[WARNING] Failed to save refreshed token: %v", err)
	}
	c.startTokenRefresh(ctx)
}
