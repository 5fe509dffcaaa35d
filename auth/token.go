// Package auth owns the marketplace bearer token: concurrent reads during
// request signing and serialized refreshes when the marketplace starts
// rejecting it.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"giftsniper/config"
	"giftsniper/logger"
)

const refreshTimeout = 15 * time.Second

// TokenManager holds the current marketplace token and rotates it through
// the refresh endpoint. A successful rotation is persisted back to the env
// file so a restart picks up the fresh credential.
type TokenManager struct {
	mu    sync.RWMutex
	token string

	refreshURL string
	envFile    string
	client     *http.Client

	refreshing sync.Mutex // single-flight guard for async refreshes
	inflight   bool

	log *logger.Entry
}

// NewTokenManager creates a manager seeded with the configured token.
func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	return &TokenManager{
		token:      cfg.Token,
		refreshURL: cfg.RefreshURL,
		envFile:    cfg.EnvFile,
		client:     &http.Client{Timeout: refreshTimeout},
		log:        logger.GetLogger().WithComponent("auth"),
	}
}

// Token returns the current bearer token.
func (m *TokenManager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

type refreshResponse struct {
	Token string `json:"token"`
}

// Refresh rotates the token synchronously. Returns true when a new token was
// installed. Safe to call concurrently; callers racing a refresh all wait for
// the same rotation.
func (m *TokenManager) Refresh(ctx context.Context) bool {
	if m.refreshURL == "" {
		return false
	}

	m.refreshing.Lock()
	defer m.refreshing.Unlock()

	token, err := m.fetchToken(ctx)
	if err != nil {
		m.log.WithError(err).Error("token refresh failed")
		return false
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	if m.envFile != "" {
		if err := rewriteEnvToken(m.envFile, token); err != nil {
			m.log.WithError(err).Warn("failed to persist refreshed token")
		}
	}

	m.log.Info("marketplace token refreshed")
	return true
}

// RefreshAsync kicks off a background refresh unless one is already running.
func (m *TokenManager) RefreshAsync() {
	m.refreshing.Lock()
	if m.inflight {
		m.refreshing.Unlock()
		return
	}
	m.inflight = true
	m.refreshing.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		m.Refresh(ctx)

		m.refreshing.Lock()
		m.inflight = false
		m.refreshing.Unlock()
	}()
}

func (m *TokenManager) fetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.refreshURL, nil)
	if err != nil {
		return "", fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Authorization", m.Token())
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("refresh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("refresh endpoint returned %d", resp.StatusCode)
	}

	var body refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	if body.Token == "" {
		return "", fmt.Errorf("refresh endpoint returned empty token")
	}
	return body.Token, nil
}

// rewriteEnvToken replaces the GIFTSNIPER_AUTH line in the env file, appending
// one when absent.
func rewriteEnvToken(path, token string) error {
	line := "GIFTSNIPER_AUTH=" + token

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return os.WriteFile(path, []byte(line+"\n"), 0600)
		}
		return err
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	replaced := false
	for i, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "GIFTSNIPER_AUTH=") {
			lines[i] = line
			replaced = true
		}
	}
	if !replaced {
		lines = append(lines, line)
	}

	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600)
}
