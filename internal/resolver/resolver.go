// Package resolver 将上游回传匹配到原始点击与内部 offer，容忍各网络之间的 ID 不一致
package resolver

import (
	"context"
	"errors"
	"strings"

	"postback-platform/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrClickNotFound = errors.New("点击不存在")
	ErrOfferNotFound = errors.New("offer 不存在")
)

// InboundPostback 上游网络回传的标识
type InboundPostback struct {
	ClickID       string
	OfferID       string // 上游命名空间
	UserID        string
	TransactionID string
}

// Resolver 每次都直接查库
type Resolver struct {
	db     *gorm.DB
	logger *zap.Logger
}

func New(db *gorm.DB, logger *zap.Logger) *Resolver {
	return &Resolver{db: db, logger: logger.Named("resolver")}
}

// Resolve 查找回传对应的点击和 offer:
//  1. 带 click id 时只按 click id 查找，查不到即 ErrClickNotFound;
//  2. 不带 click id 时，取映射到的 offer 上最近的一次点击，带 user id 时限定该用户;
//  3. offer 先按回传 offer id 查（映射优先，新映射在前，再按内部 id），否则用点击记录的 offer。
//
// 只缺 offer 时返回点击和 ErrOfferNotFound。
func (r *Resolver) Resolve(ctx context.Context, pb InboundPostback) (*model.Click, *model.Offer, error) {
	pb.ClickID = strings.TrimSpace(pb.ClickID)
	pb.OfferID = strings.TrimSpace(pb.OfferID)
	pb.UserID = strings.TrimSpace(pb.UserID)

	candidates, err := r.candidateOfferIDs(ctx, pb.OfferID)
	if err != nil {
		return nil, nil, err
	}

	click, err := r.findClick(ctx, pb, candidates)
	if err != nil {
		return nil, nil, err
	}
	if click == nil {
		return nil, nil, ErrClickNotFound
	}

	offerIDs := candidates
	if !contains(offerIDs, click.OfferID) {
		offerIDs = append(offerIDs, click.OfferID)
	}
	for _, id := range offerIDs {
		offer, err := r.findOffer(ctx, id)
		if err != nil {
			return click, nil, err
		}
		if offer != nil {
			if !contains(candidates, id) {
				r.logger.Info("回传 offer id 无法解析，使用点击记录的 offer",
					zap.String("postback_offer_id", pb.OfferID),
					zap.String("click_id", click.ClickID),
					zap.String("offer_id", id))
			}
			return click, offer, nil
		}
	}
	return click, nil, ErrOfferNotFound
}

// candidateOfferIDs 上游 id 可能对应的内部 offer id：映射结果（新的在前），最后是 id 本身
func (r *Resolver) candidateOfferIDs(ctx context.Context, external string) ([]string, error) {
	if external == "" {
		return nil, nil
	}

	var mapped []string
	err := r.db.WithContext(ctx).
		Model(&model.OfferMapping{}).
		Where("external_id = ?", external).
		Order("updated_at DESC, id DESC").
		Pluck("offer_id", &mapped).Error
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(mapped)+1)
	for _, id := range mapped {
		if !contains(out, id) {
			out = append(out, id)
		}
	}
	if !contains(out, external) {
		out = append(out, external)
	}
	return out, nil
}

func (r *Resolver) findClick(ctx context.Context, pb InboundPostback, offerIDs []string) (*model.Click, error) {
	db := r.db.WithContext(ctx)

	if pb.ClickID != "" {
		var click model.Click
		err := db.Where("click_id = ?", pb.ClickID).Take(&click).Error
		if err == nil {
			return &click, nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Warn("未知的 click id",
				zap.String("click_id", pb.ClickID), zap.String("offer_id", pb.OfferID))
			return nil, nil
		}
		return nil, err
	}

	if len(offerIDs) == 0 {
		return nil, nil
	}

	q := db.Where("offer_id IN ?", offerIDs)
	if pb.UserID != "" {
		q = q.Where("user_id = ?", pb.UserID)
	}
	var click model.Click
	err := q.Order("created_at DESC, id DESC").First(&click).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &click, nil
}

func (r *Resolver) findOffer(ctx context.Context, offerID string) (*model.Offer, error) {
	if offerID == "" {
		return nil, nil
	}
	var offer model.Offer
	err := r.db.WithContext(ctx).Preload("PromoCode").Where("offer_id = ?", offerID).Take(&offer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
