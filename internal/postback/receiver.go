// Package postback 接收上游网络的转化回传，依次完成匹配、评分、入账和转发。
package postback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"postback-platform/internal/events"
	"postback-platform/internal/fraud"
	"postback-platform/internal/metrics"
	"postback-platform/internal/model"
	"postback-platform/internal/payout"
	"postback-platform/internal/resolver"
	"postback-platform/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 流水线状态
const (
	StateReceived     = "received"
	StateResolved     = "resolved"
	StateScored       = "scored"
	StateCredited     = "credited"
	StateForwarded    = "forwarded"
	StateReceivedOnly = "received_only"
	StateDuplicate    = "duplicate"
	StateFailed       = "failed"
)

var (
	ErrPostbackNotFound = errors.New("postback not found")
	ErrNotReplayable    = errors.New("postback already credited")
)

// Forwarder 把转化转发给下游 placement
type Forwarder interface {
	Dispatch(ctx context.Context, conv model.Conversion) []model.ForwardedPostback
}

// Result 一次流水线执行的结果
type Result struct {
	State      string                    `json:"state"`
	Outcome    string                    `json:"outcome"`
	Conversion *model.Conversion         `json:"conversion,omitempty"`
	Forwards   []model.ForwardedPostback `json:"forwards,omitempty"`
}

// Receiver 回传状态机
type Receiver struct {
	db        *gorm.DB
	resolver  *resolver.Resolver
	scorer    *fraud.Scorer
	forwarder Forwarder
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewReceiver(db *gorm.DB, res *resolver.Resolver, scorer *fraud.Scorer, fwd Forwarder, pub events.Publisher, logger *zap.Logger) *Receiver {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Receiver{
		db:        db,
		resolver:  res,
		scorer:    scorer,
		forwarder: fwd,
		publisher: pub,
		logger:    logger.Named("postback"),
		now:       time.Now,
	}
}

// ReceivePostback 保存原始审计记录。数据库不可用时只记录日志，
// 返回的记录 ID 为 0，流水线仍可在内存中继续。
func (r *Receiver) ReceivePostback(ctx context.Context, partnerKey string, in *Inbound) *model.ReceivedPostback {
	metrics.PostbacksReceived.WithLabelValues(partnerKey).Inc()

	params, _ := json.Marshal(in.Params)
	rec := &model.ReceivedPostback{
		PartnerKey:    partnerKey,
		Method:        in.Method,
		RemoteIP:      in.RemoteIP,
		RawQuery:      in.RawQuery,
		RawBody:       in.RawBody,
		Params:        string(params),
		State:         StateReceived,
		ClickID:       in.Params.Get("click_id"),
		OfferID:       in.Params.Get("offer_id", "survey_id"),
		TransactionID: in.Params.Get("transaction_id"),
		CreatedAt:     r.now(),
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		r.logger.Error("保存回传原始记录失败",
			zap.String("partner", partnerKey),
			zap.String("method", in.Method),
			zap.String("raw_query", in.RawQuery),
			zap.String("raw_body", in.RawBody),
			zap.Error(err))
		rec.ID = 0
	}
	return rec
}

// Process 执行 resolve → score → credit → forward。
// 匹配失败和重复回传是正常的终止状态，只有基础设施错误才返回 error。
func (r *Receiver) Process(ctx context.Context, rec *model.ReceivedPostback) (*Result, error) {
	log := r.logger.With(zap.Uint("postback_id", rec.ID), zap.String("partner", rec.PartnerKey))

	params := Params{}
	if rec.Params != "" {
		if err := json.Unmarshal([]byte(rec.Params), &params); err != nil {
			return r.fail(ctx, rec, log, fmt.Errorf("decode params: %w", err))
		}
	}
	pb := resolver.InboundPostback{
		ClickID:       params.Get("click_id"),
		OfferID:       params.Get("offer_id", "survey_id"),
		UserID:        params.Get("user_id", "username"),
		TransactionID: params.Get("transaction_id"),
	}

	click, offer, err := r.resolver.Resolve(ctx, pb)
	if errors.Is(err, resolver.ErrClickNotFound) || errors.Is(err, resolver.ErrOfferNotFound) {
		log.Warn("回传无法匹配，仅记录",
			zap.String("click_id", pb.ClickID),
			zap.String("offer_id", pb.OfferID),
			zap.String("user_id", pb.UserID),
			zap.Error(err))
		return r.finish(ctx, rec, log, &Result{State: StateReceivedOnly, Outcome: err.Error()}), nil
	}
	if err != nil {
		return r.fail(ctx, rec, log, err)
	}
	rec.ClickID = click.ClickID
	rec.OfferID = offer.OfferID
	r.transition(ctx, rec, log, StateResolved, "")

	// 读取点击时的评分，只补充 fast_conversion
	completedAt := rec.CreatedAt
	if completedAt.IsZero() {
		completedAt = r.now()
	}
	score := r.scorer.WithCompletion(fraud.FraudResult{
		Score:  click.FraudScore,
		Status: fraud.Status(click.FraudStatus),
		Flags:  click.Flags(),
	}, click.CreatedAt, completedAt)
	r.transition(ctx, rec, log, StateScored, "")

	pay := payout.Calculate(*offer)
	status := ConversionStatus(params["status"])
	if status == model.ConversionApproved && score.Status == fraud.StatusHigh {
		status = model.ConversionPending
	}
	txn := pb.TransactionID
	if txn == "" {
		txn = click.ClickID
	}
	rec.TransactionID = txn

	conv := model.Conversion{
		ConversionID:       "cv_" + uuid.NewString(),
		ClickID:            click.ClickID,
		TransactionID:      txn,
		OfferID:            offer.OfferID,
		UserID:             click.UserID,
		Username:           params.Get("username"),
		PlacementID:        click.PlacementID,
		Base:               pay.Base,
		Bonus:              pay.Bonus,
		Total:              pay.Total,
		BonusPercent:       pay.BonusPercent,
		Currency:           offer.Currency,
		Status:             status,
		FraudScore:         score.Score,
		FraudStatus:        string(score.Status),
		FraudFlags:         model.JoinFlags(score.Flags),
		RawPayload:         rec.Params,
		ReceivedPostbackID: rec.ID,
		CreatedAt:          completedAt,
	}
	if conv.Username == "" {
		conv.Username = click.UserID
	}

	err = r.credit(ctx, &conv)
	if database.IsDuplicate(err) {
		log.Info("重复回传，已忽略",
			zap.String("click_id", conv.ClickID),
			zap.String("transaction_id", conv.TransactionID))
		return r.finish(ctx, rec, log, &Result{State: StateDuplicate, Outcome: "conversion already credited"}), nil
	}
	if err != nil {
		return r.fail(ctx, rec, log, err)
	}
	rec.ConversionID = conv.ConversionID
	r.transition(ctx, rec, log, StateCredited, "")
	log.Info("转化入账",
		zap.String("conversion_id", conv.ConversionID),
		zap.String("user_id", conv.UserID),
		zap.String("status", conv.Status),
		zap.Int("total", conv.Total),
		zap.String("fraud_status", conv.FraudStatus))

	if err := r.publisher.PublishConversion(ctx, events.NewConversionEvent(conv)); err != nil {
		log.Warn("发布转化事件失败", zap.String("conversion_id", conv.ConversionID), zap.Error(err))
	}

	var forwards []model.ForwardedPostback
	if r.forwarder != nil {
		forwards = r.forwarder.Dispatch(ctx, conv)
	}
	return r.finish(ctx, rec, log, &Result{
		State:      StateForwarded,
		Outcome:    forwardSummary(forwards),
		Conversion: &conv,
		Forwards:   forwards,
	}), nil
}

// Replay 重新处理一条已保存的回传。已入账的记录不允许重放。
func (r *Receiver) Replay(ctx context.Context, id uint) (*Result, error) {
	var rec model.ReceivedPostback
	err := r.db.WithContext(ctx).Take(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostbackNotFound
	}
	if err != nil {
		return nil, err
	}
	switch rec.State {
	case StateCredited, StateForwarded:
		return nil, ErrNotReplayable
	}
	r.logger.Info("重放回传", zap.Uint("postback_id", rec.ID), zap.String("state", rec.State))
	return r.Process(ctx, &rec)
}

// credit 在同一事务里写入转化并标记点击已转化，唯一索引冲突由调用方识别
func (r *Receiver) credit(ctx context.Context, conv *model.Conversion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		if conv.Status == model.ConversionRejected {
			return nil
		}
		now := r.now()
		return tx.Model(&model.Click{}).
			Where("click_id = ? AND converted = ?", conv.ClickID, false).
			Updates(map[string]any{"converted": true, "converted_at": now}).Error
	})
}

func (r *Receiver) fail(ctx context.Context, rec *model.ReceivedPostback, log *zap.Logger, err error) (*Result, error) {
	log.Error("回传处理失败", zap.String("state", rec.State), zap.Error(err))
	return r.finish(ctx, rec, log, &Result{State: StateFailed, Outcome: err.Error()}), err
}

func (r *Receiver) finish(ctx context.Context, rec *model.ReceivedPostback, log *zap.Logger, res *Result) *Result {
	r.transition(ctx, rec, log, res.State, res.Outcome)
	metrics.PipelineOutcomes.WithLabelValues(res.State).Inc()
	return res
}

// transition 推进审计记录的状态。即使流水线 context 已超时也要写入。
func (r *Receiver) transition(ctx context.Context, rec *model.ReceivedPostback, log *zap.Logger, state, outcome string) {
	rec.State = state
	rec.Outcome = outcome
	if rec.ID == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := r.db.WithContext(ctx).Model(&model.ReceivedPostback{}).
		Where("id = ?", rec.ID).
		Updates(map[string]any{
			"state":          rec.State,
			"outcome":        rec.Outcome,
			"click_id":       rec.ClickID,
			"offer_id":       rec.OfferID,
			"transaction_id": rec.TransactionID,
			"conversion_id":  rec.ConversionID,
		}).Error
	if err != nil {
		log.Error("更新回传状态失败", zap.String("state", state), zap.Error(err))
	}
}

func forwardSummary(forwards []model.ForwardedPostback) string {
	if len(forwards) == 0 {
		return "no eligible placements"
	}
	ok := 0
	for _, f := range forwards {
		if f.Outcome == model.ForwardSuccess {
			ok++
		}
	}
	return fmt.Sprintf("%d/%d placements acknowledged", ok, len(forwards))
}
