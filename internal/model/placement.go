package model

import (
	"net/http"
	"strings"
	"time"
)

// Placement 发布者嵌入的 offerwall 实例，也是下游回传的目标
type Placement struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	PlacementID    string    `gorm:"size:64;uniqueIndex;not null" json:"placement_id"`
	PublisherID    string    `gorm:"size:128;index" json:"publisher_id"`
	Name           string    `gorm:"size:255" json:"name"`
	PostbackURL    string    `gorm:"type:text" json:"postback_url"`
	PostbackMethod string    `gorm:"size:8;default:'GET'" json:"postback_method"`
	ForwardRule    string    `gorm:"type:text" json:"forward_rule"`
	Approved       bool      `gorm:"default:false" json:"approved"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Placement) TableName() string {
	return "placements"
}

// Forwardable 只有配置了回传地址的 placement 才是转发目标
func (p Placement) Forwardable() bool {
	return strings.TrimSpace(p.PostbackURL) != ""
}

// Method 返回规范化的请求方法，默认 GET
func (p Placement) Method() string {
	if strings.EqualFold(strings.TrimSpace(p.PostbackMethod), http.MethodPost) {
		return http.MethodPost
	}
	return http.MethodGet
}
