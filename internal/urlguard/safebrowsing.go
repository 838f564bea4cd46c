package urlguard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const safeBrowsingEndpoint = "https://safebrowsing.googleapis.com/v4/threatMatches:find"

var safeBrowsingThreatTypes = []string{
	"MALWARE",
	"SOCIAL_ENGINEERING",
	"UNWANTED_SOFTWARE",
	"POTENTIALLY_HARMFUL_APPLICATION",
}

type sbClient struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

type sbThreatEntry struct {
	URL string `json:"url"`
}

type sbThreatInfo struct {
	ThreatTypes      []string        `json:"threatTypes"`
	PlatformTypes    []string        `json:"platformTypes"`
	ThreatEntryTypes []string        `json:"threatEntryTypes"`
	ThreatEntries    []sbThreatEntry `json:"threatEntries"`
}

type sbFindRequest struct {
	Client     sbClient     `json:"client"`
	ThreatInfo sbThreatInfo `json:"threatInfo"`
}

type sbFindResponse struct {
	Matches []json.RawMessage `json:"matches"`
}

// SafeBrowsingClient queries the Google Safe Browsing v4 Lookup API.
type SafeBrowsingClient struct {
	httpClient    *http.Client
	endpoint      string
	apiKey        string
	clientID      string
	clientVersion string
}

// SafeBrowsingOption configures a SafeBrowsingClient.
type SafeBrowsingOption func(*SafeBrowsingClient)

// WithEndpoint overrides the API endpoint.
func WithEndpoint(endpoint string) SafeBrowsingOption {
	return func(c *SafeBrowsingClient) { c.endpoint = endpoint }
}

// WithHTTPClient sets the HTTP client used for lookups.
func WithHTTPClient(client *http.Client) SafeBrowsingOption {
	return func(c *SafeBrowsingClient) { c.httpClient = client }
}

func NewSafeBrowsingClient(apiKey string, opts ...SafeBrowsingOption) *SafeBrowsingClient {
	c := &SafeBrowsingClient{
		httpClient:    http.DefaultClient,
		endpoint:      safeBrowsingEndpoint,
		apiKey:        apiKey,
		clientID:      "linkguard",
		clientVersion: "1.0",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Lookup sends one threatMatches:find request. Any match blocks the URL.
func (c *SafeBrowsingClient) Lookup(ctx context.Context, rawURL string) (Reputation, error) {
	payload, err := json.Marshal(sbFindRequest{
		Client: sbClient{ClientID: c.clientID, ClientVersion: c.clientVersion},
		ThreatInfo: sbThreatInfo{
			ThreatTypes:      safeBrowsingThreatTypes,
			PlatformTypes:    []string{"ANY_PLATFORM"},
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries:    []sbThreatEntry{{URL: rawURL}},
		},
	})
	if err != nil {
		return Reputation{}, fmt.Errorf("%w: encode request: %w", ErrLookupFailed, err)
	}

	endpoint := c.endpoint + "?key=" + url.QueryEscape(c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Reputation{}, fmt.Errorf("%w: build request: %w", ErrLookupFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Reputation{}, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Reputation{}, fmt.Errorf("%w: unexpected status %d", ErrLookupFailed, resp.StatusCode)
	}

	var out sbFindResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Reputation{}, fmt.Errorf("%w: decode response: %w", ErrLookupFailed, err)
	}

	if len(out.Matches) > 0 {
		return Reputation{Verdict: VerdictBlock, Vendor: VendorSafeBrowsing}, nil
	}

	return Reputation{Verdict: VerdictAllow, Vendor: VendorSafeBrowsing}, nil
}
