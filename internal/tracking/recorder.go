// Package tracking 记录 offerwall 点击，并在点击时打上欺诈评分
package tracking

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"postback-platform/internal/config"
	"postback-platform/internal/fraud"
	"postback-platform/internal/metrics"
	"postback-platform/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"gorm.io/gorm"
)

// ErrOfferUnavailable offer 不存在或已下线
var ErrOfferUnavailable = errors.New("offer not found or inactive")

// ErrMissingUser 点击必须带用户标识
var ErrMissingUser = errors.New("user_id is required")

// ClickInput 一次点击的请求信息
type ClickInput struct {
	OfferID        string
	UserID         string
	PlacementID    string
	IP             string
	UserAgent      string
	Referer        string
	AcceptLanguage string
}

// Recorder 点击记录器
type Recorder struct {
	db        *gorm.DB
	scorer    *fraud.Scorer
	lookup    fraud.IPLookup
	dupWindow time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewRecorder(db *gorm.DB, scorer *fraud.Scorer, lookup fraud.IPLookup, cfg config.Fraud, logger *zap.Logger) *Recorder {
	return &Recorder{
		db:        db,
		scorer:    scorer,
		lookup:    lookup,
		dupWindow: cfg.DuplicateWindow,
		logger:    logger.Named("tracking"),
		now:       time.Now,
	}
}

// RecordClick 保存点击并返回点击记录和对应的 offer
func (r *Recorder) RecordClick(ctx context.Context, in ClickInput) (*model.Click, *model.Offer, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		return nil, nil, ErrMissingUser
	}

	var offer model.Offer
	err := r.db.WithContext(ctx).Where("offer_id = ? AND active = ?", in.OfferID, true).Take(&offer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrOfferUnavailable
	}
	if err != nil {
		return nil, nil, err
	}

	now := r.now()
	fc := fraud.ClickContext{UserAgent: in.UserAgent, ClickedAt: now}

	if r.dupWindow > 0 {
		var dups int64
		err := r.db.WithContext(ctx).Model(&model.Click{}).
			Where("user_id = ? AND offer_id = ? AND placement_id = ? AND created_at >= ?",
				in.UserID, offer.OfferID, in.PlacementID, now.Add(-r.dupWindow)).
			Count(&dups).Error
		if err != nil {
			return nil, nil, err
		}
		fc.RecentDuplicates = int(dups)
	}

	var prev model.Click
	err = r.db.WithContext(ctx).Where("user_id = ?", in.UserID).
		Order("created_at DESC").Order("id DESC").
		Take(&prev).Error
	switch {
	case err == nil:
		fc.PreviousClickAt = &prev.CreatedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil, err
	}

	fc.IP = r.lookup.Lookup(ctx, in.IP)
	result := r.scorer.Score(fc)

	click := &model.Click{
		ClickID:      "clk_" + uuid.NewString(),
		UserID:       in.UserID,
		OfferID:      offer.OfferID,
		PlacementID:  in.PlacementID,
		IP:           in.IP,
		UserAgent:    in.UserAgent,
		Referer:      in.Referer,
		ISP:          fc.IP.ISP,
		ASN:          fc.IP.ASN,
		IsVPN:        fc.IP.VPN,
		IsProxy:      fc.IP.Proxy,
		IsTor:        fc.IP.Tor,
		IsDatacenter: fc.IP.Datacenter,
		IPIntelKnown: fc.IP.Known,
		Fingerprint:  Fingerprint(in.IP, in.UserAgent, in.AcceptLanguage),
		Country:      fc.IP.Country,
		Region:       fc.IP.Region,
		City:         fc.IP.City,
		FraudScore:   result.Score,
		FraudStatus:  string(result.Status),
		FraudFlags:   model.JoinFlags(result.Flags),
		IsDuplicate:  result.Has(fraud.FlagDuplicateClick),
		IsFastClick:  result.Has(fraud.FlagFastClick),
		IsBotLike:    result.Has(fraud.FlagBotLike),
		CreatedAt:    now,
	}
	if err := r.db.WithContext(ctx).Create(click).Error; err != nil {
		return nil, nil, err
	}

	metrics.ClicksRecorded.WithLabelValues(click.FraudStatus).Inc()
	if result.Status != fraud.StatusClean {
		r.logger.Info("点击命中欺诈规则",
			zap.String("click_id", click.ClickID),
			zap.String("user_id", click.UserID),
			zap.Int("score", result.Score),
			zap.Strings("flags", result.Flags))
	}
	return click, &offer, nil
}

// Fingerprint 设备指纹：IP、UA、语言的 blake2b-256 摘要
func Fingerprint(ip, userAgent, acceptLanguage string) string {
	sum := blake2b.Sum256([]byte(strings.Join([]string{ip, userAgent, acceptLanguage}, "|")))
	return hex.EncodeToString(sum[:])
}
