// Package safeurl gates every outbound fetch the compositing pipeline makes.
// It rejects URLs that resolve to internal network ranges and enforces
// content-type and response-size limits, failing closed on any ambiguity.
package safeurl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrDisallowed  = errors.New("url disallowed")
	ErrContentType = errors.New("unexpected content type")
	ErrTooLarge    = errors.New("response exceeds size limit")
)

// Policy describes what a caller is willing to accept from a fetch.
type Policy struct {
	// ContentTypes are accepted Content-Type prefixes. A response with no
	// Content-Type header at all is tolerated; a mismatched one is not.
	ContentTypes []string
	// MaxBytes caps the response body. Both the declared Content-Length and
	// the actual bytes read are checked.
	MaxBytes int64
}

// XMLPolicy accepts feed documents.
func XMLPolicy(maxBytes int64) Policy {
	return Policy{
		ContentTypes: []string{
			"application/xml",
			"text/xml",
			"application/atom+xml",
			"application/rss+xml",
		},
		MaxBytes: maxBytes,
	}
}

// ImagePolicy accepts product and template images.
func ImagePolicy(maxBytes int64) Policy {
	return Policy{
		ContentTypes: []string{"image/jpeg", "image/png", "image/webp", "image/gif"},
		MaxBytes:     maxBytes,
	}
}

// Options configures a Client.
type Options struct {
	Timeout time.Duration
	// AllowedPorts defaults to 80 and 443.
	AllowedPorts []string
	// AllowedHosts, when non-empty, restricts fetches to exactly these hosts.
	AllowedHosts []string
	// AllowLoopback permits loopback targets. Test and development use only.
	AllowLoopback bool
	// LookupIP overrides DNS resolution; defaults to net.DefaultResolver.
	LookupIP func(ctx context.Context, host string) ([]net.IP, error)
}

// Client performs validated HTTP fetches. The address that passed validation
// is the address dialed, so a hostname whose DNS answer changes between check
// and use cannot reach a different target.
type Client struct {
	opts       Options
	ports      map[string]struct{}
	hosts      map[string]struct{}
	httpClient *http.Client
}

const maxRedirects = 3

// New constructs a Client with the given options.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if len(opts.AllowedPorts) == 0 {
		opts.AllowedPorts = []string{"80", "443"}
	}
	if opts.LookupIP == nil {
		opts.LookupIP = func(ctx context.Context, host string) ([]net.IP, error) {
			addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
			if err != nil {
				return nil, err
			}
			ips := make([]net.IP, 0, len(addrs))
			for _, a := range addrs {
				ips = append(ips, a.IP)
			}
			return ips, nil
		}
	}

	c := &Client{
		opts:  opts,
		ports: make(map[string]struct{}, len(opts.AllowedPorts)),
		hosts: make(map[string]struct{}, len(opts.AllowedHosts)),
	}
	for _, p := range opts.AllowedPorts {
		c.ports[p] = struct{}{}
	}
	for _, h := range opts.AllowedHosts {
		c.hosts[strings.ToLower(h)] = struct{}{}
	}

	dialer := &net.Dialer{Timeout: opts.Timeout}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", ErrDisallowed, addr)
			}
			ip, err := c.vetHost(ctx, host)
			if err != nil {
				return nil, err
			}
			return dialer.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
		},
		ForceAttemptHTTP2: true,
	}
	c.httpClient = &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("%w: too many redirects", ErrDisallowed)
			}
			// Each hop is re-validated; a redirect to an internal target is
			// rejected the same as a direct request.
			return c.Validate(req.URL.String())
		},
	}
	return c
}

// Validate checks scheme, port and host of rawURL without touching the
// network beyond DNS resolution. A nil return means the URL may be fetched.
func (c *Client) Validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDisallowed, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrDisallowed, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrDisallowed)
	}
	if port := u.Port(); port != "" {
		if _, ok := c.ports[port]; !ok {
			return fmt.Errorf("%w: port %s", ErrDisallowed, port)
		}
	}
	if len(c.hosts) > 0 {
		if _, ok := c.hosts[strings.ToLower(u.Hostname())]; !ok {
			return fmt.Errorf("%w: host %q not in allowlist", ErrDisallowed, u.Hostname())
		}
	}
	// Literal IP targets are checked immediately; hostnames are checked after
	// resolution, at dial time.
	if ip := net.ParseIP(u.Hostname()); ip != nil {
		if err := c.checkIP(ip); err != nil {
			return err
		}
	}
	return nil
}

// vetHost resolves host and checks every answer. Resolution failure and any
// internal-range answer both reject. Returns the address to dial.
func (c *Client) vetHost(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if err := c.checkIP(ip); err != nil {
			return nil, err
		}
		return ip, nil
	}
	ips, err := c.opts.LookupIP(ctx, host)
	if err != nil || len(ips) == 0 {
		return nil, fmt.Errorf("%w: cannot resolve %q", ErrDisallowed, host)
	}
	for _, ip := range ips {
		if err := c.checkIP(ip); err != nil {
			return nil, err
		}
	}
	return ips[0], nil
}

func (c *Client) checkIP(ip net.IP) error {
	if ip.IsLoopback() {
		if c.opts.AllowLoopback {
			return nil
		}
		return fmt.Errorf("%w: %s is loopback", ErrDisallowed, ip)
	}
	switch {
	case ip.IsUnspecified():
		return fmt.Errorf("%w: %s is unspecified", ErrDisallowed, ip)
	case ip.IsPrivate():
		return fmt.Errorf("%w: %s is private", ErrDisallowed, ip)
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return fmt.Errorf("%w: %s is link-local", ErrDisallowed, ip)
	case ip.IsMulticast(), ip.IsInterfaceLocalMulticast():
		return fmt.Errorf("%w: %s is multicast", ErrDisallowed, ip)
	}
	return nil
}

// Fetch retrieves rawURL subject to the policy and returns the body bytes.
func (c *Client) Fetch(ctx context.Context, rawURL string, policy Policy) ([]byte, error) {
	if err := c.Validate(rawURL); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDisallowed, err)
	}
	req.Header.Set("User-Agent", "framepress/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	if err := checkContentType(resp.Header.Get("Content-Type"), policy.ContentTypes); err != nil {
		return nil, err
	}
	if policy.MaxBytes > 0 && resp.ContentLength > policy.MaxBytes {
		return nil, fmt.Errorf("%w: declared %d bytes", ErrTooLarge, resp.ContentLength)
	}

	reader := io.Reader(resp.Body)
	if policy.MaxBytes > 0 {
		reader = io.LimitReader(resp.Body, policy.MaxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if policy.MaxBytes > 0 && int64(len(body)) > policy.MaxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, policy.MaxBytes)
	}
	return body, nil
}

func checkContentType(header string, accepted []string) error {
	if header == "" || len(accepted) == 0 {
		return nil
	}
	ct := strings.ToLower(strings.TrimSpace(strings.Split(header, ";")[0]))
	for _, want := range accepted {
		if strings.HasPrefix(ct, want) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrContentType, ct)
}
