package fraud

import (
	"fmt"
	"strings"
	"time"

	"postback-platform/internal/config"
)

// Status 欺诈分档
type Status string

const (
	StatusClean  Status = "clean"
	StatusLow    Status = "low"
	StatusMedium Status = "medium"
	StatusHigh   Status = "high"
)

// 欺诈标记
const (
	FlagDuplicateClick = "duplicate_click"
	FlagFastClick      = "fast_click"
	FlagFastConversion = "fast_conversion"
	FlagBotLike        = "bot_like"
	FlagVPN            = "vpn"
	FlagProxy          = "proxy"
	FlagTor            = "tor"
	FlagDatacenter     = "datacenter"
)

// ClickContext 评分所需的点击上下文
type ClickContext struct {
	UserAgent        string
	ClickedAt        time.Time
	PreviousClickAt  *time.Time // 同一用户上一次点击
	CompletedAt      *time.Time
	RecentDuplicates int // 窗口内相同 (user, offer, placement) 的点击数
	IP               IPInfo
}

// FraudResult 评分结果
type FraudResult struct {
	Score  int      `json:"score"`
	Status Status   `json:"status"`
	Flags  []string `json:"flags"`
}

// Has 是否包含某个标记
func (r FraudResult) Has(flag string) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Scorer 按固定权重累加分数，权重非负，所以增加标记不会降低分数
type Scorer struct {
	weights    map[string]int
	thresholds config.FraudThresholds
	cfg        config.Fraud
	keywords   []string
}

// NewScorer 校验权重和阈值后创建评分器
func NewScorer(cfg config.Fraud) (*Scorer, error) {
	weights := map[string]int{
		FlagDuplicateClick: cfg.Weights.DuplicateClick,
		FlagFastClick:      cfg.Weights.FastClick,
		FlagFastConversion: cfg.Weights.FastConversion,
		FlagBotLike:        cfg.Weights.BotLike,
		FlagVPN:            cfg.Weights.VPN,
		FlagProxy:          cfg.Weights.Proxy,
		FlagTor:            cfg.Weights.Tor,
		FlagDatacenter:     cfg.Weights.Datacenter,
	}
	for flag, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("fraud weight %s must not be negative", flag)
		}
	}
	t := cfg.Thresholds
	if !(0 < t.Low && t.Low < t.Medium && t.Medium < t.High) {
		return nil, fmt.Errorf("fraud thresholds must satisfy 0 < low < medium < high, got %d/%d/%d", t.Low, t.Medium, t.High)
	}

	keywords := make([]string, 0, len(cfg.BotKeywords))
	for _, k := range cfg.BotKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	return &Scorer{weights: weights, thresholds: t, cfg: cfg, keywords: keywords}, nil
}

// Score 计算点击的欺诈分数
func (s *Scorer) Score(c ClickContext) FraudResult {
	var flags []string

	if c.RecentDuplicates > 0 {
		flags = append(flags, FlagDuplicateClick)
	}
	if c.PreviousClickAt != nil && within(*c.PreviousClickAt, c.ClickedAt, s.cfg.FastClickWindow) {
		flags = append(flags, FlagFastClick)
	}
	if c.CompletedAt != nil && within(c.ClickedAt, *c.CompletedAt, s.cfg.FastConversionWindow) {
		flags = append(flags, FlagFastConversion)
	}
	if s.IsBotLike(c.UserAgent) {
		flags = append(flags, FlagBotLike)
	}
	if c.IP.VPN {
		flags = append(flags, FlagVPN)
	}
	if c.IP.Proxy {
		flags = append(flags, FlagProxy)
	}
	if c.IP.Tor {
		flags = append(flags, FlagTor)
	}
	if c.IP.Datacenter {
		flags = append(flags, FlagDatacenter)
	}

	return s.result(flags)
}

// WithCompletion 在点击时的评分上追加 fast_conversion，不重新计算其它信号
func (s *Scorer) WithCompletion(r FraudResult, clickedAt, completedAt time.Time) FraudResult {
	if r.Has(FlagFastConversion) || !within(clickedAt, completedAt, s.cfg.FastConversionWindow) {
		return r
	}
	// 已存储的分数可能来自旧权重，只做累加
	score := r.Score + s.weights[FlagFastConversion]
	flags := append(append([]string(nil), r.Flags...), FlagFastConversion)
	return FraudResult{Score: score, Status: s.Bucket(score), Flags: flags}
}

// IsBotLike UA 为空或包含爬虫关键字
func (s *Scorer) IsBotLike(userAgent string) bool {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return true
	}
	for _, k := range s.keywords {
		if strings.Contains(ua, k) {
			return true
		}
	}
	return false
}

// Bucket 把分数映射到分档
func (s *Scorer) Bucket(score int) Status {
	switch {
	case score >= s.thresholds.High:
		return StatusHigh
	case score >= s.thresholds.Medium:
		return StatusMedium
	case score >= s.thresholds.Low:
		return StatusLow
	default:
		return StatusClean
	}
}

func (s *Scorer) result(flags []string) FraudResult {
	score := 0
	for _, f := range flags {
		score += s.weights[f]
	}
	if flags == nil {
		flags = []string{}
	}
	return FraudResult{Score: score, Status: s.Bucket(score), Flags: flags}
}

func within(from, to time.Time, window time.Duration) bool {
	if window <= 0 || from.IsZero() || to.IsZero() {
		return false
	}
	d := to.Sub(from)
	return d >= 0 && d < window
}
