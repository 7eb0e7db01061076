package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ELENA-QPA/elena-case-sync/internal/config"
	"github.com/ELENA-QPA/elena-case-sync/pkg/logger"
)

// Client talks to the external judicial-process tracking provider. It owns a
// single cached bearer token, refreshed lazily when absent or expired.
type Client struct {
	baseURL  string
	email    string
	password string
	tokenTTL time.Duration
	maxPages int

	http   *http.Client
	logger *logger.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time

	now func() time.Time
}

// NewClient creates a provider client. The request timeout applies per
// outbound call; there is no other cancellation surface.
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		baseURL:  cfg.ProviderBaseURL,
		email:    cfg.ProviderEmail,
		password: cfg.ProviderPassword,
		tokenTTL: cfg.TokenTTL,
		maxPages: cfg.MaxPages,
		http:     &http.Client{Timeout: cfg.RequestTimeout},
		logger:   log,
		now:      time.Now,
	}
}

// FetchChangeSummary asks whether the given day has pending changes.
func (c *Client) FetchChangeSummary(ctx context.Context, date time.Time) (*ChangeSummary, error) {
	var summary ChangeSummary
	path := fmt.Sprintf("/ResumenActualizacion/%s", date.Format("20060102"))
	if err := c.get(ctx, "change summary", path, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// FetchChangePage fetches one page of the day's change feed. An empty slice
// means the feed is exhausted.
func (c *Client) FetchChangePage(ctx context.Context, date time.Time, page int) ([]ChangeRecord, error) {
	var records []ChangeRecord
	path := fmt.Sprintf("/InformeExpedientes/Cambios?idFecha=%s&pagina=%d", date.Format("20060102"), page)
	if err := c.get(ctx, "change page", path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FetchAllChanges pages through the day's feed until an empty page. A hard
// page guard stops runaway pagination if the provider never terminates.
func (c *Client) FetchAllChanges(ctx context.Context, date time.Time) ([]ChangeRecord, error) {
	var all []ChangeRecord
	for page := 1; ; page++ {
		if page > c.maxPages {
			c.logger.Warn("Page guard tripped while fetching changes",
				"date", date.Format("2006-01-02"),
				"max_pages", c.maxPages,
				"records", len(all),
			)
			return all, nil
		}

		records, err := c.FetchChangePage(ctx, date, page)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return all, nil
		}
		all = append(all, records...)
	}
}

// get performs an authenticated GET. Exactly one token rejection triggers a
// re-login and a single retry; a second rejection is fatal for the call.
func (c *Client) get(ctx context.Context, op, path string, out interface{}) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	status, err := c.doGet(ctx, op, path, token, out)
	if status != http.StatusUnauthorized {
		return err
	}

	c.logger.Info("Provider rejected token, re-authenticating", "op", op)
	c.invalidateToken()
	token, err = c.ensureToken(ctx)
	if err != nil {
		return err
	}

	status, err = c.doGet(ctx, op, path, token, out)
	if status == http.StatusUnauthorized {
		return &RequestError{Op: op, StatusCode: status, Message: "token rejected twice"}
	}
	return err
}

func (c *Client) doGet(ctx context.Context, op, path, token string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, &RequestError{Op: op, Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &RequestError{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &RequestError{Op: op, StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, &RequestError{Op: op, StatusCode: resp.StatusCode, Message: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, &RequestError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	return resp.StatusCode, nil
}

// ensureToken returns the cached token, logging in first when it is absent or
// expired. Last-writer-wins on the token field is fine; login is idempotent.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	token, err := c.login(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.tokenExpiry = c.now().Add(c.tokenTTL)
	return token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *Client) login(ctx context.Context) (string, error) {
	payload, err := json.Marshal(loginRequest{Email: c.email, Pwd: c.password})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Login", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrAuth, resp.StatusCode, string(body))
	}

	var login loginResponse
	if err := json.Unmarshal(body, &login); err != nil {
		return "", fmt.Errorf("%w: malformed login response: %v", ErrAuth, err)
	}
	if !login.Success || login.Token == "" {
		return "", fmt.Errorf("%w: %s", ErrAuth, login.Message)
	}

	c.logger.Debug("Provider login succeeded")
	return login.Token, nil
}
