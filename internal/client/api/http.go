package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/moneyxfer/internal/common"
	"github.com/google/uuid"
)

// HTTPClient talks JSON to the backend at baseURL.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a client for baseURL. hc carries the transport
// chain (bearer credentials, timeouts); nil means http.DefaultClient.
func NewHTTPClient(baseURL string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Msg   string `json:"msg"`
}

type errorResponse struct {
	Error string `json:"error"`
	Msg   string `json:"msg"`
}

// Login exchanges credentials for a token. Any non-2xx status is a
// *LoginRejectedError regardless of the body shape.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/login", loginRequest{Email: email, Password: password})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body loginResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)

	if !success(resp.StatusCode) {
		msg := body.Msg
		if msg == "" {
			msg = DefaultLoginMessage
		}
		return "", &LoginRejectedError{Status: resp.StatusCode, Message: msg}
	}
	if body.Token == "" {
		return "", &LoginRejectedError{Status: resp.StatusCode, Message: "no token in response"}
	}
	return body.Token, nil
}

// Ping reports whether the backend answers at all. Client errors still
// count as reachable.
func (c *HTTPClient) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) SendMoney(ctx context.Context, tr Transfer) (*TransferResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/send-money", tr)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := mapStatus(resp); err != nil {
		return nil, err
	}

	var res TransferResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode transfer result: %w", err)
	}
	return &res, nil
}

func (c *HTTPClient) Transactions(ctx context.Context) ([]Transaction, error) {
	resp, err := c.do(ctx, http.MethodGet, "/get-transactions", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := mapStatus(resp); err != nil {
		return nil, err
	}

	var txs []Transaction
	if err := json.NewDecoder(resp.Body).Decode(&txs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return txs, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

func success(code int) bool { return code >= 200 && code < 300 }

// mapStatus translates a non-2xx response into the package's errors.
func mapStatus(resp *http.Response) error {
	if success(resp.StatusCode) {
		return nil
	}

	var body errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = body.Msg
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return &RequestError{Status: resp.StatusCode, Message: msg}
	}
}
