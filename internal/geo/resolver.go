package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ajithvnr2001/edgelink/pkg/cache"
	"github.com/ajithvnr2001/edgelink/pkg/metrics"
)

// Resolver maps a client IP to an ISO 3166-1 alpha-2 country code. An empty
// code means "unknown" and geo routing falls through to its default entry.
type Resolver interface {
	Resolve(ctx context.Context, ip string) (string, error)
}

// Noop never resolves a country. Used when geo routing is disabled.
type Noop struct{}

func (Noop) Resolve(context.Context, string) (string, error) { return "", nil }

// IPAPIResolver queries the ip-api.com JSON endpoint. Results are cached
// per IP so repeat visitors cost nothing, and the HTTP client timeout keeps
// a slow upstream from eating the redirect latency budget.
type IPAPIResolver struct {
	client  *http.Client
	baseURL string
	cache   *cache.LRU
}

// NewIPAPIResolver creates a resolver with the given lookup timeout.
func NewIPAPIResolver(timeout time.Duration) *IPAPIResolver {
	if timeout == 0 {
		timeout = 200 * time.Millisecond
	}
	return &IPAPIResolver{
		client:  &http.Client{Timeout: timeout},
		baseURL: "http://ip-api.com/json/",
		cache:   cache.NewLRU(10000, time.Hour),
	}
}

func (r *IPAPIResolver) Resolve(ctx context.Context, ip string) (string, error) {
	if ip == "" || isPrivate(ip) {
		return "", nil
	}

	if cached, ok := r.cache.Get(ip); ok {
		return cached.(string), nil
	}

	start := time.Now()
	defer func() {
		metrics.GeoLookupDuration.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		r.baseURL+ip+"?fields=countryCode", nil)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geo lookup for %s: status %d", ip, resp.StatusCode)
	}

	var data struct {
		CountryCode string `json:"countryCode"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", err
	}

	r.cache.Set(ip, data.CountryCode)
	return data.CountryCode, nil
}

func isPrivate(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return true
	}
	return parsed.IsPrivate() || parsed.IsLoopback() || parsed.IsUnspecified()
}
