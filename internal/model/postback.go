package model

import "time"

// ReceivedPostback 每一次入站回传的原始审计记录。
// 原始字段写入后不再修改，只有状态和关联字段随流水线推进。
type ReceivedPostback struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	PartnerKey    string    `gorm:"size:128;not null;index" json:"partner_key"`
	Method        string    `gorm:"size:8" json:"method"`
	RemoteIP      string    `gorm:"size:45" json:"remote_ip"`
	RawQuery      string    `gorm:"type:text" json:"raw_query"`
	RawBody       string    `gorm:"type:text" json:"raw_body"`
	Params        string    `gorm:"type:text" json:"params"`
	State         string    `gorm:"size:32;not null;index" json:"state"`
	Outcome       string    `gorm:"type:text" json:"outcome"`
	ClickID       string    `gorm:"size:64;index" json:"click_id"`
	OfferID       string    `gorm:"size:128" json:"offer_id"`
	TransactionID string    `gorm:"size:128" json:"transaction_id"`
	ConversionID  string    `gorm:"size:64" json:"conversion_id"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (ReceivedPostback) TableName() string {
	return "received_postbacks"
}

const (
	ForwardSuccess = "success"
	ForwardFailed  = "failed"
	ForwardError   = "error"
)

// ForwardedPostback 向一个 placement 转发回传的审计记录，只追加
type ForwardedPostback struct {
	ID                 uint      `gorm:"primarykey" json:"id"`
	ConversionID       string    `gorm:"size:64;not null;index" json:"conversion_id"`
	ReceivedPostbackID uint      `gorm:"index" json:"received_postback_id"`
	PlacementID        string    `gorm:"size:64;not null;index" json:"placement_id"`
	Method             string    `gorm:"size:8" json:"method"`
	URL                string    `gorm:"type:text" json:"url"`
	StatusCode         int       `json:"status_code"`
	ResponseBody       string    `gorm:"type:text" json:"response_body"`
	Outcome            string    `gorm:"size:16;not null" json:"outcome"`
	Attempts           int       `json:"attempts"`
	Error              string    `gorm:"type:text" json:"error"`
	DurationMS         int64     `json:"duration_ms"`
	CreatedAt          time.Time `json:"created_at"`
}

func (ForwardedPostback) TableName() string {
	return "forwarded_postbacks"
}

// All 返回需要迁移的全部模型
func All() []any {
	return []any{
		&Click{},
		&Offer{},
		&PromoCode{},
		&OfferMapping{},
		&Conversion{},
		&Placement{},
		&ReceivedPostback{},
		&ForwardedPostback{},
	}
}
