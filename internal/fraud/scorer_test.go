package fraud

import (
	"testing"
	"time"

	"postback-platform/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const browserUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15"

func newScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(config.Default().Fraud)
	require.NoError(t, err)
	return s
}

func TestScore_CleanClick(t *testing.T) {
	s := newScorer(t)

	res := s.Score(ClickContext{UserAgent: browserUA, ClickedAt: time.Now(), IP: IPInfo{Known: true}})

	assert.Equal(t, 0, res.Score)
	assert.Equal(t, StatusClean, res.Status)
	assert.Empty(t, res.Flags)
}

func TestScore_FlagsAndBuckets(t *testing.T) {
	s := newScorer(t)
	now := time.Now()
	prev := now.Add(-time.Second)

	cases := []struct {
		name   string
		ctx    ClickContext
		score  int
		status Status
		flags  []string
	}{
		{"duplicate", ClickContext{UserAgent: browserUA, RecentDuplicates: 2}, 15, StatusLow, []string{FlagDuplicateClick}},
		{"fast click", ClickContext{UserAgent: browserUA, ClickedAt: now, PreviousClickAt: &prev}, 20, StatusLow, []string{FlagFastClick}},
		{"bot", ClickContext{UserAgent: "python-requests/2.31"}, 30, StatusMedium, []string{FlagBotLike}},
		{"empty ua", ClickContext{}, 30, StatusMedium, []string{FlagBotLike}},
		{"vpn+tor", ClickContext{UserAgent: browserUA, IP: IPInfo{Known: true, VPN: true, Tor: true}}, 40, StatusMedium, []string{FlagVPN, FlagTor}},
		{"everything", ClickContext{UserAgent: "curl/8.0", RecentDuplicates: 1, IP: IPInfo{Proxy: true, Datacenter: true}}, 70, StatusHigh, []string{FlagDuplicateClick, FlagBotLike, FlagProxy, FlagDatacenter}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := s.Score(tc.ctx)
			assert.Equal(t, tc.score, res.Score)
			assert.Equal(t, tc.status, res.Status)
			assert.Equal(t, tc.flags, res.Flags)
		})
	}
}

func TestScore_SlowPreviousClickIsNotFast(t *testing.T) {
	s := newScorer(t)
	now := time.Now()
	prev := now.Add(-time.Minute)

	res := s.Score(ClickContext{UserAgent: browserUA, ClickedAt: now, PreviousClickAt: &prev})

	assert.False(t, res.Has(FlagFastClick))
}

func TestScore_BotKeywordsCaseInsensitive(t *testing.T) {
	s := newScorer(t)

	for _, ua := range []string{"Googlebot/2.1", "Mozilla/5.0 (compatible; Baiduspider)", "Wget/1.21", "Java/17.0.1", "SCRAPER"} {
		assert.True(t, s.IsBotLike(ua), ua)
	}
	assert.False(t, s.IsBotLike(browserUA))
}

// Adding any flag never lowers the score.
func TestScore_Monotonic(t *testing.T) {
	s := newScorer(t)
	now := time.Now()
	prev := now.Add(-time.Second)
	done := now.Add(2 * time.Second)

	toggles := []func(*ClickContext){
		func(c *ClickContext) { c.RecentDuplicates = 1 },
		func(c *ClickContext) { c.PreviousClickAt = &prev },
		func(c *ClickContext) { c.CompletedAt = &done },
		func(c *ClickContext) { c.UserAgent = "spider" },
		func(c *ClickContext) { c.IP.VPN = true },
		func(c *ClickContext) { c.IP.Proxy = true },
		func(c *ClickContext) { c.IP.Tor = true },
		func(c *ClickContext) { c.IP.Datacenter = true },
	}

	for mask := 0; mask < 1<<len(toggles); mask++ {
		base := ClickContext{UserAgent: browserUA, ClickedAt: now}
		for i, toggle := range toggles {
			if mask&(1<<i) != 0 {
				toggle(&base)
			}
		}
		baseScore := s.Score(base).Score

		for i, toggle := range toggles {
			if mask&(1<<i) != 0 {
				continue
			}
			more := base
			toggle(&more)
			assert.GreaterOrEqual(t, s.Score(more).Score, baseScore, "mask=%b toggle=%d", mask, i)
		}
	}
}

func TestWithCompletion(t *testing.T) {
	s := newScorer(t)
	clicked := time.Now()
	stored := FraudResult{Score: 15, Status: StatusLow, Flags: []string{FlagDuplicateClick}}

	fast := s.WithCompletion(stored, clicked, clicked.Add(3*time.Second))
	assert.Equal(t, 35, fast.Score)
	assert.Equal(t, StatusMedium, fast.Status)
	assert.Equal(t, []string{FlagDuplicateClick, FlagFastConversion}, fast.Flags)
	assert.Equal(t, []string{FlagDuplicateClick}, stored.Flags, "stored result must not be mutated")

	slow := s.WithCompletion(stored, clicked, clicked.Add(time.Hour))
	assert.Equal(t, stored, slow)

	again := s.WithCompletion(fast, clicked, clicked.Add(time.Second))
	assert.Equal(t, fast, again)
}

func TestNewScorer_RejectsBadConfig(t *testing.T) {
	cfg := config.Default().Fraud
	cfg.Weights.Tor = -1
	_, err := NewScorer(cfg)
	assert.Error(t, err)

	cfg = config.Default().Fraud
	cfg.Thresholds = config.FraudThresholds{Low: 30, Medium: 30, High: 50}
	_, err = NewScorer(cfg)
	assert.Error(t, err)
}
