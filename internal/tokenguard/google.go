package tokenguard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/model"
)

// googleOAuthErrorBody is the token-endpoint error shape RFC 6749 §5.2
// defines; Google's invalid_grant response follows it exactly.
type googleOAuthErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// googleRefresher posts a refresh_token grant to Google's OAuth2 token
// endpoint, the same hand-rolled net/http pattern used for the outbound
// LLM client and every other external integration in this codebase.
type googleRefresher struct {
	cfg        *config.GoogleOAuthConfig
	httpClient *http.Client
}

func newGoogleRefresher(cfg *config.GoogleOAuthConfig) *googleRefresher {
	return &googleRefresher{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *googleRefresher) Refresh(ctx context.Context, account *model.Account) (string, time.Time, error) {
	clientID := os.Getenv(g.cfg.ClientIDEnv)
	clientSecret := os.Getenv(g.cfg.ClientSecretEnv)

	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"refresh_token": {account.RefreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("tokenguard: build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("tokenguard: refresh request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("tokenguard: read refresh response: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		var tok googleTokenResponse
		if err := json.Unmarshal(body, &tok); err != nil {
			return "", time.Time{}, fmt.Errorf("tokenguard: decode refresh response: %w", err)
		}
		expiresAt := time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
		return tok.AccessToken, expiresAt, nil
	}

	if isRevocationSignal(string(body)) {
		return "", time.Time{}, &model.RevokedTokenError{
			AccountID: account.ID,
			Email:     account.Email,
			Cause:     fmt.Errorf("google oauth refresh: %s", describeOAuthError(body)),
		}
	}

	return "", time.Time{}, fmt.Errorf("tokenguard: refresh failed (status %s): %s",
		strconv.Itoa(resp.StatusCode), describeOAuthError(body))
}

func describeOAuthError(body []byte) string {
	var oerr googleOAuthErrorBody
	if err := json.Unmarshal(body, &oerr); err != nil || oerr.Error == "" {
		return string(body)
	}
	if oerr.ErrorDescription != "" {
		return fmt.Sprintf("%s: %s", oerr.Error, oerr.ErrorDescription)
	}
	return oerr.Error
}
