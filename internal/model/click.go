package model

import (
	"strings"
	"time"
)

// Click 用户点击一次推广链接产生的记录，创建后只允许修改转化标记
type Click struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	ClickID     string `gorm:"size:64;uniqueIndex;not null" json:"click_id"`
	UserID      string `gorm:"size:128;not null;index:idx_clicks_user_offer_placement" json:"user_id"`
	OfferID     string `gorm:"size:64;not null;index:idx_clicks_user_offer_placement;index" json:"offer_id"`
	PlacementID string `gorm:"size:64;index:idx_clicks_user_offer_placement" json:"placement_id"`

	IP           string `gorm:"size:45" json:"ip"`
	UserAgent    string `gorm:"type:text" json:"user_agent"`
	Referer      string `gorm:"type:text" json:"referer"`
	ISP          string `gorm:"size:128" json:"isp"`
	ASN          string `gorm:"size:128" json:"asn"`
	IsVPN        bool   `json:"is_vpn"`
	IsProxy      bool   `json:"is_proxy"`
	IsTor        bool   `json:"is_tor"`
	IsDatacenter bool   `json:"is_datacenter"`
	IPIntelKnown bool   `json:"ip_intel_known"`
	Fingerprint  string `gorm:"size:64;index" json:"fingerprint"`

	Country string `gorm:"size:100" json:"country"`
	Region  string `gorm:"size:100" json:"region"`
	City    string `gorm:"size:100" json:"city"`

	FraudScore  int    `json:"fraud_score"`
	FraudStatus string `gorm:"size:16" json:"fraud_status"`
	FraudFlags  string `gorm:"size:255" json:"fraud_flags"`
	IsDuplicate bool   `json:"is_duplicate"`
	IsFastClick bool   `json:"is_fast_click"`
	IsBotLike   bool   `json:"is_bot_like"`

	Converted   bool       `gorm:"default:false" json:"converted"`
	ConvertedAt *time.Time `json:"converted_at"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
}

func (Click) TableName() string {
	return "clicks"
}

// Flags 返回拆分后的欺诈标记
func (c Click) Flags() []string {
	return SplitFlags(c.FraudFlags)
}

// JoinFlags 把标记列表存成逗号分隔的字符串
func JoinFlags(flags []string) string {
	return strings.Join(flags, ",")
}

// SplitFlags 是 JoinFlags 的逆操作
func SplitFlags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
