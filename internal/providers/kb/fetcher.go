package kb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
)

// maxDocumentBytes caps how much of one knowledge-base page goes into a prompt.
const maxDocumentBytes = 64 << 10

// ErrBlockedAddress is returned for links that resolve to loopback, private,
// link-local or otherwise non-public addresses.
var ErrBlockedAddress = errors.New("knowledge base address is not public")

// carrier-grade NAT, not covered by netip.Addr.IsPrivate
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// Fetcher downloads knowledge-base documents referenced by expert profiles.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type HTTPFetcher struct {
	client *resty.Client
}

type Option func(*options)

type options struct {
	allowPrivate bool
}

// AllowPrivateNetworks disables the public-address check. Local test servers only.
func AllowPrivateNetworks() Option {
	return func(o *options) { o.allowPrivate = true }
}

func NewHTTPFetcher(timeout time.Duration, opts ...Option) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	if !o.allowPrivate {
		// runs after DNS resolution for every connection, redirects included
		dialer.Control = func(_, address string, _ syscall.RawConn) error {
			return checkDialAddress(address)
		}
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
	}

	c := resty.New().
		SetTransport(transport).
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(3)).
		SetHeader("Accept", "text/plain, text/markdown, text/html;q=0.8, */*;q=0.5")
	return &HTTPFetcher{client: c}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return "", err
	}
	raw := resp.RawBody()
	defer raw.Close()

	if resp.IsError() {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode())
	}
	body, err := io.ReadAll(io.LimitReader(raw, maxDocumentBytes))
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	return string(body), nil
}

// ValidateURL rejects links that can never be fetched: non-http(s) schemes,
// missing hosts, localhost and literal non-public IPs. Hostnames that resolve
// to private addresses are refused at dial time.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return errors.New("knowledge base links must be http(s) URLs")
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return ErrBlockedAddress
	}
	if addr, err := netip.ParseAddr(host); err == nil && !isPublic(addr) {
		return ErrBlockedAddress
	}
	return nil
}

func checkDialAddress(address string) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	if !isPublic(ap.Addr()) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, ap.Addr())
	}
	return nil
}

func isPublic(addr netip.Addr) bool {
	addr = addr.Unmap()
	switch {
	case !addr.IsValid(),
		addr.IsUnspecified(),
		addr.IsLoopback(),
		addr.IsPrivate(),
		addr.IsLinkLocalUnicast(),
		addr.IsLinkLocalMulticast(),
		addr.IsInterfaceLocalMulticast(),
		addr.IsMulticast(),
		sharedAddressSpace.Contains(addr):
		return false
	}
	return true
}
