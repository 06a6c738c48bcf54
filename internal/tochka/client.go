package tochka

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/vkotelnikov/eduplatform/internal"
	tochkatypes "github.com/vkotelnikov/eduplatform/internal/core/datamodel/tochka"
)

// expiryLeeway is subtracted from the reported token lifetime so a token is
// never used right at its expiration edge.
const expiryLeeway = 30 * time.Second

// Client talks to the Tochka SBP gateway: client-credentials token exchange
// and dynamic QR code registration. The access token is cached until expiry;
// concurrent refreshes are coalesced so only one exchange hits the gateway.
type Client struct {
	cfg    internal.TochkaConfig
	client *http.Client
	logger *slog.Logger

	mu     sync.Mutex
	token  string
	expiry time.Time
	group  singleflight.Group
}

func NewClient(cfg internal.TochkaConfig, logger *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// AccessToken returns a bearer token for the gateway. A statically configured
// token always wins; otherwise the cached token is reused while valid, and a
// single client-credentials exchange is performed on miss or expiry.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.cfg.StaticToken != "" {
		return c.cfg.StaticToken, nil
	}

	c.mu.Lock()
	if c.token != "" && time.Now().Before(c.expiry) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	result, err, _ := c.group.Do("token", func() (interface{}, error) {
		return c.fetchToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Invalidate drops the cached token so the next AccessToken call performs a
// fresh exchange. Called when the gateway answers 401.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiry = time.Time{}
	c.mu.Unlock()
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	if !c.cfg.HasClientCredentials() {
		return "", internal.NewValidationError("tochka client credentials are not configured", internal.ErrCodeMissingConfig)
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("scope", tochkatypes.TokenScope)

	var tokenResp tochkatypes.TokenResponse

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL(), strings.NewReader(form.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("token endpoint returned %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
		}

		return json.Unmarshal(body, &tokenResp)
	})
	if err != nil {
		c.logger.Error("token exchange failed", "error", err)
		if appErr, ok := internal.IsAppError(err); ok {
			return "", appErr
		}
		return "", internal.NewUpstreamError("failed to obtain access token", err)
	}

	c.mu.Lock()
	c.token = tokenResp.AccessToken
	c.expiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - expiryLeeway)
	c.mu.Unlock()

	c.logger.Info("access token obtained", "expires_in", tokenResp.ExpiresIn)
	return tokenResp.AccessToken, nil
}

func (c *Client) tokenURL() string {
	if c.cfg.TokenURL != "" {
		return c.cfg.TokenURL
	}
	return strings.TrimSuffix(c.cfg.BaseURL, "/") + "/connect/token"
}

// RegisterQR registers a dynamic QR code for the given amount and returns the
// gateway payment URL plus the issued qrcId. Transient failures are retried
// with exponential backoff; a 401 invalidates the cached token so the retry
// re-authenticates.
func (c *Client) RegisterQR(ctx context.Context, qr *tochkatypes.QRRequest) (*tochkatypes.QRData, error) {
	if err := qr.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	body := tochkatypes.QRRequestBody{
		Data: tochkatypes.QRRequestData{
			Amount:         qr.AmountKopecks(),
			Currency:       qr.Currency,
			PaymentPurpose: qr.PaymentPurpose,
			QRCType:        "02",
			SourceName:     "eduplatform",
			TTL:            qr.TTLMinutes,
			RedirectURL:    qr.RedirectURL,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, internal.NewInternalError("failed to marshal qr registration request", err)
	}

	endpoint := fmt.Sprintf("%s/qr-code/merchant/%s/%s",
		strings.TrimSuffix(c.cfg.BaseURL, "/"), c.cfg.MerchantID, c.cfg.AccountID)

	var qrResp tochkatypes.QRResponse

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		token, err := c.AccessToken(ctx)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
			return json.Unmarshal(respBody, &qrResp)
		case resp.StatusCode == http.StatusUnauthorized:
			// stale token: drop the cache and let the retry re-authenticate
			c.Invalidate()
			return retry.RetryableError(fmt.Errorf("gateway rejected token: %s", string(respBody)))
		case resp.StatusCode == http.StatusForbidden:
			return internal.NewForbiddenError("insufficient token scope for qr registration", internal.ErrCodeInsufficientScope)
		case resp.StatusCode == http.StatusBadRequest:
			return internal.NewValidationError(
				fmt.Sprintf("gateway rejected qr registration: %s", string(respBody)),
				internal.ErrCodeGatewayRejected)
		case resp.StatusCode >= http.StatusInternalServerError:
			return retry.RetryableError(fmt.Errorf("gateway returned %d", resp.StatusCode))
		default:
			return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(respBody))
		}
	})
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return nil, appErr
		}
		c.logger.Error("qr registration failed", "error", err, "endpoint", endpoint)
		return nil, internal.NewUpstreamError("qr registration failed", err)
	}

	c.logger.Info("qr code registered", "qrc_id", qrResp.Data.QRCID)
	return &qrResp.Data, nil
}
