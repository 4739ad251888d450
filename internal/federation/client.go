// Package federation implements cross-domain identity verification. A
// recipient server never trusts a client's self-asserted binding between an
// address and a public key; it discovers the address's home server through a
// well-known document and asks that server directly. Every failure mode
// (bad document, timeout, network error, non-valid answer) is fail-closed.
package federation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// WellKnownPath is where every keypears server publishes its Document.
const WellKnownPath = "/.well-known/keypears.json"

// DefaultTimeout bounds the whole discover-then-verify round trip.
const DefaultTimeout = 10 * time.Second

// Document is the federation discovery document served by a domain.
type Document struct {
	Version int    `json:"version"`
	APIURL  string `json:"apiUrl"`
}

func (d Document) validate() error {
	if d.Version < 1 {
		return fmt.Errorf("federation: unsupported document version %d", d.Version)
	}
	if !strings.HasSuffix(d.APIURL, "/api") {
		return fmt.Errorf("federation: apiUrl %q does not end in /api", d.APIURL)
	}
	return nil
}

type Client struct {
	hc     *http.Client
	scheme string
}

// NewClient builds the outbound federation client. Scheme is "https" in
// production; tests pass "http" to talk to local servers.
func NewClient(timeout time.Duration, scheme string) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if scheme == "" {
		scheme = "https"
	}
	return &Client{
		scheme: scheme,
		hc: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// Discover fetches and validates the discovery document for a domain.
func (c *Client) Discover(ctx context.Context, domain string) (Document, error) {
	url := c.scheme + "://" + domain + WellKnownPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Document{}, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("federation: discovery for %s: %w", domain, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("federation: discovery for %s: status %d", domain, resp.StatusCode)
	}
	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("federation: discovery for %s: %w", domain, err)
	}
	if err := doc.validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

type verifyRequest struct {
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

// VerifyEngagementKeyOwnership asks the domain's own server whether the
// claimed address legitimately owns the claimed public key. Only an explicit
// {"valid": true} counts as success.
func (c *Client) VerifyEngagementKeyOwnership(ctx context.Context, domain, address, publicKey string) (bool, error) {
	doc, err := c.Discover(ctx, domain)
	if err != nil {
		return false, err
	}

	body, err := json.Marshal(verifyRequest{Address: address, PublicKey: publicKey})
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, doc.APIURL+"/verifyEngagementKeyOwnership", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return false, fmt.Errorf("federation: verify against %s: %w", domain, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("federation: verify against %s: status %d", domain, resp.StatusCode)
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("federation: verify against %s: %w", domain, err)
	}
	return out.Valid, nil
}
