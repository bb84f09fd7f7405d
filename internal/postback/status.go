package postback

import (
	"strings"

	"postback-platform/internal/model"
)

var statusAliases = map[string]string{
	"1":          model.ConversionApproved,
	"approved":   model.ConversionApproved,
	"approve":    model.ConversionApproved,
	"completed":  model.ConversionApproved,
	"complete":   model.ConversionApproved,
	"success":    model.ConversionApproved,
	"ok":         model.ConversionApproved,
	"credited":   model.ConversionApproved,
	"0":          model.ConversionRejected,
	"-1":         model.ConversionRejected,
	"2":          model.ConversionRejected,
	"rejected":   model.ConversionRejected,
	"reject":     model.ConversionRejected,
	"reversed":   model.ConversionRejected,
	"reversal":   model.ConversionRejected,
	"chargeback": model.ConversionRejected,
	"declined":   model.ConversionRejected,
	"failed":     model.ConversionRejected,
	"fraud":      model.ConversionRejected,
}

// ConversionStatus 把上游 status 参数映射为转化状态。
// 未携带 status 视为通过，无法识别的取值挂起等待人工处理。
func ConversionStatus(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return model.ConversionApproved
	}
	if status, ok := statusAliases[s]; ok {
		return status
	}
	return model.ConversionPending
}
