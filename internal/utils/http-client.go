package utils

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"
)

// Transport is the request capability every network component consumes.
type Transport interface {
	Send(ctx context.Context, method, url string, headers http.Header) (*http.Response, error)
}

type ZouHTTPClient struct {
	client *http.Client
	config HTTPClientConfig
}

func NewZouHTTPClient(cfg HTTPClientConfig) *ZouHTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.KATimeout == 0 {
		cfg.KATimeout = 60 * time.Second
	}
	if cfg.Headers == nil {
		cfg.Headers = make(map[string]string)
	}
	// Timeout bounds connecting and waiting for headers only. Bodies are read
	// for as long as bytes keep arriving.
	dialer := &net.Dialer{
		Timeout:   cfg.Timeout,
		KeepAlive: 30 * time.Second,
	}
	if cfg.HighThreadMode {
		dialer.Control = func(network, address string, c syscall.RawConn) error {
			return c.Control(func(fd uintptr) {
				setSocketOptions(fd)
			})
		}
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
		IdleConnTimeout:       cfg.KATimeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		DisableCompression:    true,
		MaxConnsPerHost:       0,
	}
	if cfg.EnableTLS {
		transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err == nil {
			if cfg.ProxyUsername != "" {
				if cfg.ProxyPassword != "" {
					proxyURL.User = url.UserPassword(cfg.ProxyUsername, cfg.ProxyPassword)
				} else {
					proxyURL.User = url.User(cfg.ProxyUsername)
				}
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return &ZouHTTPClient{
		client: &http.Client{
			Transport: transport,
		},
		config: cfg,
	}
}

func (z *ZouHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if z.config.UserAgent != "" {
		req.Header.Set("User-Agent", z.config.UserAgent)
	} else {
		req.Header.Set("User-Agent", ToolUserAgent)
	}
	for k, v := range z.config.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return z.client.Do(req)
}

// Send issues method against link with the given headers attached. Headers
// passed here win over the client-wide ones.
func (z *ZouHTTPClient) Send(ctx context.Context, method, link string, headers http.Header) (*http.Response, error) {
	protocol, err := ProtocolOf(link)
	if err != nil {
		return nil, err
	}
	if protocol == HTTPS && !z.config.EnableTLS {
		return nil, fmt.Errorf("%s: %w", link, ErrTLSDisabled)
	}
	req, err := http.NewRequestWithContext(ctx, method, link, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating %s request: %w", method, err)
	}
	for k, values := range headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	return z.Do(req)
}
