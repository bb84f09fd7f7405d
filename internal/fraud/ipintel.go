package fraud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"postback-platform/internal/config"
	"postback-platform/pkg/httpclient"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// IPInfo IP 信誉查询结果。Known 为 false 时所有标记都是 false。
type IPInfo struct {
	Known      bool   `json:"known"`
	VPN        bool   `json:"vpn"`
	Proxy      bool   `json:"proxy"`
	Tor        bool   `json:"tor"`
	Datacenter bool   `json:"datacenter"`
	ISP        string `json:"isp"`
	ASN        string `json:"asn"`
	Country    string `json:"country"`
	Region     string `json:"region"`
	City       string `json:"city"`
}

// IPLookup 查询失败时返回 IPInfo{Known:false}，从不返回错误
type IPLookup interface {
	Lookup(ctx context.Context, ip string) IPInfo
}

// ipIntelResponse 上游服务的响应字段
type ipIntelResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Proxy      bool   `json:"proxy"`
	VPN        bool   `json:"vpn"`
	Tor        bool   `json:"tor"`
	Hosting    bool   `json:"hosting"`
	ISP        string `json:"isp"`
	AS         string `json:"as"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
	City       string `json:"city"`
}

// LookupClient 通过 HTTP 查询 IP 信誉，结果缓存在 Redis
type LookupClient struct {
	endpoint string
	ttl      time.Duration
	http     *httpclient.Client
	redis    *redis.Client
	logger   *zap.Logger
}

// NewLookupClient endpoint 为空时所有查询都返回未知
func NewLookupClient(cfg config.IPIntel, rdb *redis.Client, logger *zap.Logger) *LookupClient {
	return &LookupClient{
		endpoint: cfg.Endpoint,
		ttl:      cfg.CacheTTL,
		http:     httpclient.New(httpclient.Config{Timeout: cfg.Timeout, MaxAttempts: 1}),
		redis:    rdb,
		logger:   logger.Named("ipintel"),
	}
}

// Lookup 查询 IP。超时、限流、格式错误都只记录日志。
func (c *LookupClient) Lookup(ctx context.Context, ip string) IPInfo {
	ip = strings.TrimSpace(ip)
	if c.endpoint == "" || !publicIP(ip) {
		return IPInfo{}
	}

	if info, ok := c.cached(ctx, ip); ok {
		return info
	}

	info, err := c.fetch(ctx, ip)
	if err != nil {
		c.logger.Warn("IP 信誉查询失败，按未知处理", zap.String("ip", ip), zap.Error(err))
		return IPInfo{}
	}
	c.store(ctx, ip, info)
	return info
}

func (c *LookupClient) fetch(ctx context.Context, ip string) (IPInfo, error) {
	target := strings.ReplaceAll(c.endpoint, "{ip}", url.PathEscape(ip))
	resp, err := c.http.Do(ctx, httpclient.Request{URL: target})
	if err != nil {
		return IPInfo{}, err
	}

	var body ipIntelResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return IPInfo{}, fmt.Errorf("malformed response: %w", err)
	}
	if strings.EqualFold(body.Status, "fail") {
		return IPInfo{}, errors.New("lookup failed: " + body.Message)
	}
	return IPInfo{
		Known:      true,
		VPN:        body.VPN,
		Proxy:      body.Proxy,
		Tor:        body.Tor,
		Datacenter: body.Hosting,
		ISP:        body.ISP,
		ASN:        body.AS,
		Country:    body.Country,
		Region:     body.RegionName,
		City:       body.City,
	}, nil
}

func (c *LookupClient) cached(ctx context.Context, ip string) (IPInfo, bool) {
	if c.redis == nil {
		return IPInfo{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	raw, err := c.redis.Get(ctx, cacheKey(ip)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("读取 IP 缓存失败", zap.String("ip", ip), zap.Error(err))
		}
		return IPInfo{}, false
	}
	var info IPInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return IPInfo{}, false
	}
	return info, true
}

func (c *LookupClient) store(ctx context.Context, ip string, info IPInfo) {
	if c.redis == nil || c.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	if err := c.redis.Set(ctx, cacheKey(ip), raw, c.ttl).Err(); err != nil {
		c.logger.Debug("写入 IP 缓存失败", zap.String("ip", ip), zap.Error(err))
	}
}

func cacheKey(ip string) string {
	return "ipintel:" + ip
}

func publicIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return !(parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() || parsed.IsLinkLocalUnicast())
}
