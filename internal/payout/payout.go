// Package payout 计算完成 offer 后入账的积分
package payout

import (
	"postback-platform/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Result 单位均为整数积分
type Result struct {
	Base         int     `json:"base"`
	Bonus        int     `json:"bonus"`
	Total        int     `json:"total"`
	BonusPercent float64 `json:"bonus_percent"`
	HasBonus     bool    `json:"has_bonus"`
}

// Calculate 对取整后的 payout 叠加生效中的加成码
func Calculate(offer model.Offer) Result {
	base := nonNegativeFloor(offer.Payout)
	res := Result{Base: int(base.IntPart()), Total: int(base.IntPart())}

	promo := offer.PromoCode
	if promo == nil || !promo.Active || !promo.BonusAmount.IsPositive() {
		return res
	}

	var bonus, percent decimal.Decimal
	switch promo.BonusType {
	case model.BonusTypePercentage:
		bonus = base.Mul(promo.BonusAmount).Div(hundred).Floor()
		percent = promo.BonusAmount
	case model.BonusTypeFixed:
		bonus = promo.BonusAmount.Floor()
		if base.IsPositive() {
			percent = bonus.Div(base).Mul(hundred)
		}
	default:
		return res
	}

	res.HasBonus = true
	res.Bonus = int(bonus.IntPart())
	res.Total = res.Base + res.Bonus
	res.BonusPercent = percent.Round(2).InexactFloat64()
	return res
}

func nonNegativeFloor(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Floor()
}
