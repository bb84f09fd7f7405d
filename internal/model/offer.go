package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	BonusTypePercentage = "percentage"
	BonusTypeFixed      = "fixed"
)

// Offer 内部商品目录中的一条推广任务
type Offer struct {
	ID               uint            `gorm:"primarykey" json:"id"`
	OfferID          string          `gorm:"size:64;uniqueIndex;not null" json:"offer_id"`
	Name             string          `gorm:"size:255" json:"name"`
	Payout           decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0" json:"payout"`
	Currency         string          `gorm:"size:16;default:'points'" json:"currency"`
	PromoCodeID      *uint           `json:"promo_code_id"`
	PromoCode        *PromoCode      `json:"promo_code,omitempty"`
	TargetURL        string          `gorm:"type:text" json:"target_url"`
	Countries        string          `gorm:"size:255" json:"countries"`
	Devices          string          `gorm:"size:255" json:"devices"`
	RequiresApproval bool            `json:"requires_approval"`
	Active           bool            `gorm:"default:true" json:"active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (Offer) TableName() string {
	return "offers"
}

// PromoCode 绑定在 Offer 上的奖励
type PromoCode struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	Code        string          `gorm:"size:64;uniqueIndex;not null" json:"code"`
	BonusType   string          `gorm:"size:16;not null" json:"bonus_type"`
	BonusAmount decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0" json:"bonus_amount"`
	Active      bool            `gorm:"default:true" json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (PromoCode) TableName() string {
	return "promo_codes"
}

// OfferMapping 上游网络的 offer 标识到内部 offer 的映射。
// 同一个外部标识可能被重新映射，以 UpdatedAt 最新的一条为准。
type OfferMapping struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	ExternalID string    `gorm:"size:128;not null;index" json:"external_id"`
	Network    string    `gorm:"size:64" json:"network"`
	OfferID    string    `gorm:"size:64;not null;index" json:"offer_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (OfferMapping) TableName() string {
	return "offer_mappings"
}
