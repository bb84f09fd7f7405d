// Package forwarder 把入账的转化回传给发布者配置的 placement 回调地址
package forwarder

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"postback-platform/internal/config"
	"postback-platform/internal/macro"
	"postback-platform/internal/metrics"
	"postback-platform/internal/model"
	"postback-platform/pkg/httpclient"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const maxStoredResponse = 2 << 10

// Dispatcher 负责挑选转发目标、渲染模板并发送
type Dispatcher struct {
	db     *gorm.DB
	client *httpclient.Client
	rules  *ruleEvaluator
	cfg    config.Forwarding
	logger *zap.Logger
}

// New 创建转发器
func New(db *gorm.DB, cfg config.Forwarding, logger *zap.Logger) (*Dispatcher, error) {
	rules, err := newRuleEvaluator()
	if err != nil {
		return nil, err
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Dispatcher{
		db: db,
		client: httpclient.New(httpclient.Config{
			Timeout:        cfg.Timeout,
			MaxAttempts:    cfg.MaxAttempts,
			BackoffInitial: cfg.BackoffInitial,
			BackoffMax:     cfg.BackoffMax,
		}),
		rules:  rules,
		cfg:    cfg,
		logger: logger.Named("forwarder"),
	}, nil
}

// Dispatch 向每个符合条件的 placement 发送一次回传（含重试），
// 每个 placement 恰好产生一条转发记录，按 placement_id 排序返回。
// 单个目标失败不影响其它目标。
func (d *Dispatcher) Dispatch(ctx context.Context, conv model.Conversion) []model.ForwardedPostback {
	placements, err := d.eligible(ctx, conv)
	if err != nil {
		d.logger.Error("查询转发目标失败", zap.String("conversion_id", conv.ConversionID), zap.Error(err))
		return nil
	}
	if len(placements) == 0 {
		d.logger.Info("没有可转发的 placement", zap.String("conversion_id", conv.ConversionID))
		return nil
	}

	values := macroContext(conv)
	records := make([]model.ForwardedPostback, len(placements))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Concurrency)
	for i, p := range placements {
		i, p := i, p
		g.Go(func() error {
			records[i] = d.deliver(gctx, conv, p, values)
			return nil
		})
	}
	_ = g.Wait()

	for i := range records {
		if err := d.db.WithContext(context.WithoutCancel(ctx)).Create(&records[i]).Error; err != nil {
			d.logger.Error("保存转发记录失败",
				zap.String("conversion_id", conv.ConversionID),
				zap.String("placement_id", records[i].PlacementID),
				zap.Error(err))
		}
	}
	return records
}

// eligible 返回有回传地址且规则通过的 placement，按 placement_id 排序
func (d *Dispatcher) eligible(ctx context.Context, conv model.Conversion) ([]model.Placement, error) {
	query := d.db.WithContext(ctx).
		Where("TRIM(COALESCE(postback_url, '')) <> ''").
		Order("placement_id ASC")
	if d.cfg.Eligibility == config.EligibilityPlacement {
		query = query.Where("placement_id = ?", conv.PlacementID)
	}

	var placements []model.Placement
	if err := query.Find(&placements).Error; err != nil {
		return nil, err
	}

	out := placements[:0]
	for _, p := range placements {
		if !p.Forwardable() {
			continue
		}
		if d.allowed(conv, p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PlacementID < out[j].PlacementID })
	return out, nil
}

// allowed 规则无法编译或执行时放行并记录日志
func (d *Dispatcher) allowed(conv model.Conversion, p model.Placement) bool {
	rule := strings.TrimSpace(p.ForwardRule)
	if rule == "" {
		return true
	}
	ok, err := d.rules.Eval(rule, map[string]any{
		"status":       conv.Status,
		"payout":       int64(conv.Total),
		"points":       int64(conv.Total),
		"offer_id":     conv.OfferID,
		"user_id":      conv.UserID,
		"placement_id": conv.PlacementID,
		"fraud_status": conv.FraudStatus,
	})
	if err != nil {
		d.logger.Warn("forward_rule 执行失败，按通过处理",
			zap.String("placement_id", p.PlacementID),
			zap.String("rule", rule),
			zap.Error(err))
		return true
	}
	return ok
}

func (d *Dispatcher) deliver(ctx context.Context, conv model.Conversion, p model.Placement, values map[string]string) model.ForwardedPostback {
	method := p.Method()
	rendered := macro.Render(strings.TrimSpace(p.PostbackURL), values)
	record := model.ForwardedPostback{
		ConversionID:       conv.ConversionID,
		ReceivedPostbackID: conv.ReceivedPostbackID,
		PlacementID:        p.PlacementID,
		Method:             method,
		URL:                rendered,
	}

	req := httpclient.Request{Method: method, URL: rendered}
	if method == http.MethodPost {
		target, body := splitQuery(rendered)
		req.URL = target
		req.Body = []byte(body)
		req.ContentType = "application/x-www-form-urlencoded"
	}

	start := time.Now()
	resp, err := d.client.Do(ctx, req)
	elapsed := time.Since(start)

	record.DurationMS = elapsed.Milliseconds()
	record.Attempts = resp.Attempts
	record.StatusCode = resp.StatusCode
	record.ResponseBody = truncate(string(resp.Body), maxStoredResponse)
	switch {
	case err == nil:
		record.Outcome = model.ForwardSuccess
	case resp.StatusCode != 0:
		record.Outcome = model.ForwardFailed
		record.Error = err.Error()
	default:
		record.Outcome = model.ForwardError
		record.Error = err.Error()
	}

	metrics.Forwards.WithLabelValues(record.Outcome).Inc()
	metrics.ForwardDuration.Observe(elapsed.Seconds())

	fields := []zap.Field{
		zap.String("conversion_id", conv.ConversionID),
		zap.String("placement_id", p.PlacementID),
		zap.String("method", method),
		zap.Int("status", record.StatusCode),
		zap.Int("attempts", record.Attempts),
		zap.Duration("elapsed", elapsed),
	}
	switch {
	case record.Outcome == model.ForwardSuccess:
		d.logger.Info("回传转发成功", fields...)
	case errors.Is(err, httpclient.ErrPermanent):
		d.logger.Warn("回传被下游拒绝", append(fields, zap.Error(err))...)
	default:
		d.logger.Error("回传转发失败", append(fields, zap.Error(err))...)
	}
	return record
}

// macroContext 转发模板可用的变量，值已做查询参数转义
func macroContext(conv model.Conversion) map[string]string {
	total := strconv.Itoa(conv.Total)
	raw := map[macro.Macro]string{
		macro.UserID:        conv.UserID,
		macro.Username:      conv.Username,
		macro.ClickID:       conv.ClickID,
		macro.OfferID:       conv.OfferID,
		macro.TransactionID: conv.TransactionID,
		macro.Status:        conv.Status,
		macro.Payout:        total,
		macro.Points:        total,
		macro.Timestamp:     strconv.FormatInt(conv.CreatedAt.Unix(), 10),
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[string(k)] = url.QueryEscape(v)
	}
	return out
}

// splitQuery 把 URL 拆成不带查询串的地址和查询串
func splitQuery(rawURL string) (string, string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, ""
	}
	body := u.RawQuery
	u.RawQuery = ""
	return u.String(), body
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
