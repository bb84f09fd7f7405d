// Package testutil 各包测试共用的数据库夹具
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"postback-platform/internal/model"
	"postback-platform/pkg/database"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var dbSeq int64

// NewDB 打开一个已迁移的内存数据库，测试结束时关闭
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	name = fmt.Sprintf("%s_%d", name, atomic.AddInt64(&dbSeq, 1))

	db, err := database.OpenMemory(name)
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SeedOffer 插入一个上线中的 offer
func SeedOffer(t testing.TB, db *gorm.DB, offerID, payout string, promo *model.PromoCode) model.Offer {
	t.Helper()
	offer := model.Offer{
		OfferID:   offerID,
		Name:      "Offer " + offerID,
		Payout:    decimal.RequireFromString(payout),
		Currency:  "points",
		TargetURL: "https://advertiser.example/landing?c={click_id}",
		Active:    true,
	}
	if promo != nil {
		must(t, db.Create(promo).Error)
		offer.PromoCodeID = &promo.ID
		offer.PromoCode = promo
	}
	must(t, db.Omit("PromoCode").Create(&offer).Error)
	return offer
}

// PercentPromo 构造一个生效的百分比加成
func PercentPromo(code, amount string) *model.PromoCode {
	return &model.PromoCode{Code: code, BonusType: model.BonusTypePercentage, BonusAmount: decimal.RequireFromString(amount), Active: true}
}

// SeedMapping 把上游 offer id 映射到内部 offer
func SeedMapping(t testing.TB, db *gorm.DB, externalID, offerID string, updatedAt time.Time) model.OfferMapping {
	t.Helper()
	m := model.OfferMapping{ExternalID: externalID, Network: "test", OfferID: offerID, CreatedAt: updatedAt, UpdatedAt: updatedAt}
	must(t, db.Create(&m).Error)
	return m
}

// SeedClick 插入点击，CreatedAt 缺省为当前时间
func SeedClick(t testing.TB, db *gorm.DB, click model.Click) model.Click {
	t.Helper()
	if click.CreatedAt.IsZero() {
		click.CreatedAt = time.Now()
	}
	if click.FraudStatus == "" {
		click.FraudStatus = "clean"
	}
	must(t, db.Create(&click).Error)
	return click
}

// SeedPlacement 插入一个按 method 回传到 url 的推广位
func SeedPlacement(t testing.TB, db *gorm.DB, placementID, url, method string) model.Placement {
	t.Helper()
	p := model.Placement{PlacementID: placementID, PublisherID: "pub-" + placementID, PostbackURL: url, PostbackMethod: method, Approved: true}
	must(t, db.Create(&p).Error)
	return p
}

func must(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("写入测试数据失败: %v", err)
	}
}
