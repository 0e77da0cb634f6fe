package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxProviderBody = 1 << 20

// HTTPProvider calls a 100ms-style token endpoint: POST JSON
// {room_id, role, exp} with a bearer credential, reply {"token": "..."}.
type HTTPProvider struct {
	endpoint string
	auth     Authorizer
	client   *http.Client
}

func NewHTTPProvider(endpoint string, auth Authorizer, client *http.Client) *HTTPProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProvider{endpoint: endpoint, auth: auth, client: client}
}

func (p *HTTPProvider) IssueToken(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", &ProviderError{Detail: "encode request", Err: err}
	}
	bearer, err := p.auth.Bearer()
	if err != nil {
		return "", &ProviderError{Detail: "provider credential", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Detail: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", &ProviderError{Transient: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderBody))
	if err != nil {
		return "", &ProviderError{Status: resp.StatusCode, Transient: true, Detail: "read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ProviderError{
			Status:    resp.StatusCode,
			Detail:    strings.TrimSpace(string(raw)),
			Transient: transientStatus(resp.StatusCode),
		}
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &ProviderError{Status: resp.StatusCode, Detail: "malformed response body", Err: err}
	}
	if out.Token == "" {
		return "", &ProviderError{Status: resp.StatusCode, Detail: fmt.Sprintf("malformed response body: no token in %d bytes", len(raw))}
	}
	return out.Token, nil
}

func transientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
