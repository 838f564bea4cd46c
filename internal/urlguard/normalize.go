package urlguard

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

var (
	ErrEmptyInput   = errors.New("empty url")
	ErrMalformedURL = errors.New("malformed url")
)

// Zero-width characters are removed anywhere in the input.
var invisibleChars = strings.NewReplacer(
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\ufeff", "",
)

// NormalizedURL is a parsed URL with its host in machine and display form.
type NormalizedURL struct {
	URL         *url.URL
	HostASCII   string
	HostUnicode string
}

// String returns the canonical URL with the ASCII host.
func (n *NormalizedURL) String() string {
	return n.URL.String()
}

// Normalize canonicalizes raw user input into a URL suitable for evaluation.
// Scheme-less input is treated as https.
func Normalize(raw string) (*NormalizedURL, error) {
	cleaned := strings.TrimSpace(invisibleChars.Replace(raw))
	if cleaned == "" {
		return nil, ErrEmptyInput
	}

	if !hasHTTPScheme(cleaned) {
		cleaned = "https://" + cleaned
	}

	u, err := url.Parse(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedURL, err)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrMalformedURL)
	}

	ascii, err := idna.Punycode.ToASCII(host)
	if err != nil {
		return nil, fmt.Errorf("%w: host %q: %w", ErrMalformedURL, host, err)
	}

	ascii = strings.ToLower(ascii)

	display, err := idna.Punycode.ToUnicode(ascii)
	if err != nil {
		return nil, fmt.Errorf("%w: host %q: %w", ErrMalformedURL, host, err)
	}

	u.Host = joinHost(ascii, u.Port())

	return &NormalizedURL{URL: u, HostASCII: ascii, HostUnicode: display}, nil
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)

	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func joinHost(host, port string) string {
	if port != "" {
		return net.JoinHostPort(host, port)
	}

	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}

	return host
}
