// Package httpclient provides the outbound HTTP client shared by the Invidious
// API client and the YouTube engines. Requests are routed per URL: browser TLS
// fingerprint, explicit transport routes, rotating global proxies, or direct.
package httpclient

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"nextsoundwave/pkg/config"
	"nextsoundwave/pkg/logging"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
	"golang.org/x/net/proxy"
)

// UserAgent is sent on every outbound request that does not set one.
const UserAgent = "NextSoundWave/1.0"

const (
	clientTimeout = 30 * time.Second
	dialTimeout   = 30 * time.Second
	keepAlive     = 60 * time.Second
)

// route identifies one pooled client. The zero route is a direct connection.
type route struct {
	proxy    string
	insecure bool
}

// Client picks a pooled http.Client per request URL.
type Client struct {
	direct      *http.Client
	fingerprint *http.Client

	routes      []config.TransportRoute
	proxies     []string
	utlsDomains []string
	next        atomic.Uint64

	mu     sync.RWMutex
	pooled map[route]*http.Client

	log *logging.Logger
}

// New creates a client from the proxy and TLS settings in cfg.
func New(cfg *config.Config, log *logging.Logger) *Client {
	c := &Client{
		routes:  cfg.TransportRoutes,
		proxies: cfg.GlobalProxies,
		pooled:  make(map[route]*http.Client),
		log:     log.WithComponent("httpclient"),
	}
	for _, d := range cfg.UTLSDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			c.utlsDomains = append(c.utlsDomains, d)
		}
	}

	c.direct = &http.Client{Transport: newTransport(), Timeout: clientTimeout}
	c.fingerprint = &http.Client{Transport: newFingerprintTransport(), Timeout: clientTimeout}
	return c
}

// dialIPv4 forces IPv4. Several public instances publish broken AAAA records.
func dialIPv4(ctx context.Context, network, addr string) (net.Conn, error) {
	if network == "tcp" {
		network = "tcp4"
	}
	d := &net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}
	return d.DialContext(ctx, network, addr)
}

func newTransport() *http.Transport {
	return &http.Transport{
		DialContext:           dialIPv4,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		ResponseHeaderTimeout: clientTimeout,
	}
}

// Do executes req on the client selected for its URL.
// A User-Agent is added when the request carries none.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}
	return c.clientFor(req.URL.String()).Do(req)
}

// RoundTrip lets the Client act as the transport of a plain http.Client, so
// libraries that only accept *http.Client still follow the routing rules.
func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	rt := c.clientFor(req.URL.String()).Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	return rt.RoundTrip(req)
}

// HTTPClient returns a standard client that routes through c.
func (c *Client) HTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Transport: c, Timeout: timeout}
}

// clientFor applies, in order: fingerprint domains, the first matching
// transport route, the global proxy rotation, then a direct connection.
func (c *Client) clientFor(rawURL string) *http.Client {
	lower := strings.ToLower(rawURL)
	for _, d := range c.utlsDomains {
		if strings.Contains(lower, d) {
			return c.fingerprint
		}
	}

	for _, tr := range c.routes {
		if !strings.Contains(rawURL, tr.URLPattern) {
			continue
		}
		c.log.Debug("matched transport route", "url", rawURL, "pattern", tr.URLPattern, "proxy", tr.Proxy, "direct", tr.Direct)

		r := route{insecure: tr.DisableSSL}
		if !tr.Direct {
			r.proxy = tr.Proxy
		}
		return c.pooledClient(r)
	}

	if n := len(c.proxies); n > 0 {
		p := c.proxies[(c.next.Add(1)-1)%uint64(n)]
		return c.pooledClient(route{proxy: p})
	}
	return c.direct
}

// pooledClient returns the client for r, building it on first use.
func (c *Client) pooledClient(r route) *http.Client {
	if r == (route{}) {
		return c.direct
	}

	c.mu.RLock()
	client, ok := c.pooled[r]
	c.mu.RUnlock()
	if ok {
		return client
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.pooled[r]; ok {
		return client
	}

	client, err := buildClient(r)
	if err != nil {
		c.log.WithError(err).Error("invalid proxy, connecting directly", "proxy", r.proxy)
		client = c.direct
	} else {
		c.log.Debug("created pooled client", "proxy", r.proxy, "insecure", r.insecure)
	}
	c.pooled[r] = client
	return client
}

func buildClient(r route) (*http.Client, error) {
	transport := newTransport()
	if r.insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	if r.proxy != "" {
		u, err := url.Parse(r.proxy)
		if err != nil {
			return nil, err
		}
		switch u.Scheme {
		case "socks5", "socks5h":
			dialer, err := proxy.FromURL(u, proxy.Direct)
			if err != nil {
				return nil, err
			}
			cd, ok := dialer.(proxy.ContextDialer)
			if !ok {
				return nil, fmt.Errorf("socks dialer for %s has no context support", u.Host)
			}
			transport.DialContext = cd.DialContext
		case "http", "https":
			transport.Proxy = http.ProxyURL(u)
		default:
			return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
		}
	}

	return &http.Client{Transport: transport, Timeout: clientTimeout}, nil
}

// fingerprintTransport dials TLS with a Chrome ClientHello and speaks HTTP/2
// when the server negotiates it.
type fingerprintTransport struct {
	dialer *net.Dialer
	h2     *http2.Transport
}

func newFingerprintTransport() *fingerprintTransport {
	return &fingerprintTransport{
		dialer: &net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive},
		h2:     &http2.Transport{},
	}
}

func (t *fingerprintTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return http.DefaultTransport.RoundTrip(req)
	}

	addr := req.URL.Host
	if req.URL.Port() == "" {
		addr = net.JoinHostPort(req.URL.Hostname(), "443")
	}

	conn, err := t.dialer.DialContext(req.Context(), "tcp4", addr)
	if err != nil {
		return nil, err
	}

	uconn := utls.UClient(conn, &utls.Config{ServerName: req.URL.Hostname()}, utls.HelloChrome_120)
	if err := uconn.HandshakeContext(req.Context()); err != nil {
		conn.Close()
		return nil, err
	}

	if uconn.ConnectionState().NegotiatedProtocol == "h2" {
		cc, err := t.h2.NewClientConn(uconn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return cc.RoundTrip(req)
	}

	if err := req.Write(uconn); err != nil {
		conn.Close()
		return nil, err
	}
	resp, err := http.ReadResponse(bufio.NewReader(uconn), req)
	if err != nil {
		conn.Close()
		return nil, err
	}
	resp.Body = &closeConn{ReadCloser: resp.Body, conn: conn}
	return resp, nil
}

// closeConn closes the connection together with the body.
type closeConn struct {
	io.ReadCloser
	conn net.Conn
}

func (c *closeConn) Close() error {
	err := c.ReadCloser.Close()
	c.conn.Close()
	return err
}
