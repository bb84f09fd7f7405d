package model

import "time"

const (
	ConversionPending  = "pending"
	ConversionApproved = "approved"
	ConversionRejected = "rejected"
)

// Conversion 成功匹配的回传产生的积分记录。
// (click_id, transaction_id) 唯一，重复回传不会重复入账。
type Conversion struct {
	ID                 uint      `gorm:"primarykey" json:"id"`
	ConversionID       string    `gorm:"size:64;uniqueIndex;not null" json:"conversion_id"`
	ClickID            string    `gorm:"size:64;not null;uniqueIndex:idx_conversions_click_txn" json:"click_id"`
	TransactionID      string    `gorm:"size:128;not null;uniqueIndex:idx_conversions_click_txn" json:"transaction_id"`
	OfferID            string    `gorm:"size:64;not null;index" json:"offer_id"`
	UserID             string    `gorm:"size:128;not null;index" json:"user_id"`
	Username           string    `gorm:"size:128" json:"username"`
	PlacementID        string    `gorm:"size:64" json:"placement_id"`
	Base               int       `json:"base"`
	Bonus              int       `json:"bonus"`
	Total              int       `json:"total"`
	BonusPercent       float64   `json:"bonus_percent"`
	Currency           string    `gorm:"size:16" json:"currency"`
	Status             string    `gorm:"size:16;not null" json:"status"`
	FraudScore         int       `json:"fraud_score"`
	FraudStatus        string    `gorm:"size:16" json:"fraud_status"`
	FraudFlags         string    `gorm:"size:255" json:"fraud_flags"`
	RawPayload         string    `gorm:"type:text" json:"raw_payload"`
	ReceivedPostbackID uint      `gorm:"index" json:"received_postback_id"`
	CreatedAt          time.Time `json:"created_at"`
}

func (Conversion) TableName() string {
	return "conversions"
}
