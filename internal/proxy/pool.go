// Package proxy rotates outbound requests across a list of HTTP/SOCKS5
// proxies, benching ones that recently failed.
package proxy

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// DefaultCooldown is how long a failed proxy is skipped
const DefaultCooldown = 5 * time.Minute

// ProxyPool manages a list of proxies with rotation and failure tracking
type ProxyPool struct {
	proxies  []string
	index    int
	mu       sync.Mutex
	failed   map[string]time.Time
	cooldown time.Duration
	now      func() time.Time
}

// NewProxyPool creates a new ProxyPool
func NewProxyPool(proxies []string) *ProxyPool {
	return &ProxyPool{
		proxies:  proxies,
		failed:   make(map[string]time.Time),
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
}

// Len returns the number of configured proxies
func (p *ProxyPool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.proxies)
}

// GetNext returns the next healthy proxy, or "" when the pool is empty.
// If every proxy is benched the next one in order is returned anyway.
func (p *ProxyPool) GetNext() string {
	if p == nil {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	start := p.index
	for {
		proxy := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		if failTime, ok := p.failed[proxy]; ok {
			if p.now().Sub(failTime) < p.cooldown {
				if p.index == start {
					return proxy
				}
				continue
			}
			delete(p.failed, proxy)
		}

		return proxy
	}
}

// MarkFailed benches a proxy for the cooldown period
func (p *ProxyPool) MarkFailed(proxy string) {
	if p == nil || proxy == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[proxy] = p.now()
}

// MarkHealthy clears the failure status of a proxy
func (p *ProxyPool) MarkHealthy(proxy string) {
	if p == nil || proxy == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failed, proxy)
}

// Clients hands out one http.Client per proxy so connections are reused
// across requests routed through the same proxy.
type Clients struct {
	base    *http.Client
	mu      sync.Mutex
	clients map[string]*http.Client
}

// NewClients wraps base; the empty proxy maps to base itself
func NewClients(base *http.Client) *Clients {
	if base == nil {
		base = &http.Client{}
	}
	return &Clients{base: base, clients: make(map[string]*http.Client)}
}

// For returns the client routing through proxyURL
func (c *Clients) For(proxyURL string) (*http.Client, error) {
	if proxyURL == "" {
		return c.base, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[proxyURL]; ok {
		return client, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy URL %q", proxyURL)
	}

	var transport *http.Transport
	if t, ok := c.base.Transport.(*http.Transport); ok && t != nil {
		transport = t.Clone()
	} else {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	transport.Proxy = http.ProxyURL(u)

	client := &http.Client{
		Transport: transport,
		Timeout:   c.base.Timeout,
		Jar:       c.base.Jar,
	}
	c.clients[proxyURL] = client
	return client, nil
}

// CloseIdleConnections closes idle connections of every proxied client
func (c *Clients) CloseIdleConnections() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, client := range c.clients {
		client.CloseIdleConnections()
	}
	c.base.CloseIdleConnections()
}
