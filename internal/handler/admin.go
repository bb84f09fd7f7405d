package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"postback-platform/internal/macro"
	"postback-platform/internal/model"
	"postback-platform/internal/postback"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// AdminHandler 管理接口
type AdminHandler struct {
	db       *gorm.DB
	receiver *postback.Receiver
	logger   *zap.Logger
}

func NewAdminHandler(db *gorm.DB, receiver *postback.Receiver, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{db: db, receiver: receiver, logger: logger.Named("admin")}
}

// HealthCheck godoc
// @Summary 健康检查
// @Tags System
// @Produce  json
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /health [get]
func (h *AdminHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "timestamp": time.Now()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
}

// MacroValidation 模板校验结果
type MacroValidation struct {
	Valid       bool     `json:"valid"`
	Unsupported []string `json:"unsupported"`
	Macros      []string `json:"macros"`
}

// ValidateMacros godoc
// @Summary 校验回传模板
// @Description 列出模板中的宏，并指出不支持的宏
// @Tags Admin
// @Security ApiKeyAuth
// @Produce  json
// @Param   template  query  string  true  "回传 URL 模板"
// @Success 200 {object} MacroValidation
// @Failure 400 {object} map[string]string "缺少模板"
// @Router /api/macros/validate [get]
func (h *AdminHandler) ValidateMacros(c *gin.Context) {
	tpl := c.Query("template")
	if tpl == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 template 参数"})
		return
	}
	ok, unsupported := macro.ValidateMacros(tpl)
	found := macro.ExtractMacros(tpl)
	if unsupported == nil {
		unsupported = []string{}
	}
	if found == nil {
		found = []string{}
	}
	c.JSON(http.StatusOK, MacroValidation{Valid: ok, Unsupported: unsupported, Macros: found})
}

// ListPostbacks godoc
// @Summary 最近的入站回传
// @Tags Admin
// @Security ApiKeyAuth
// @Produce  json
// @Param   state  query  string  false  "按状态过滤"
// @Param   limit  query  int  false  "条数，默认 50，最大 500"
// @Success 200 {array} model.ReceivedPostback
// @Failure 500 {object} map[string]string
// @Router /api/postbacks [get]
func (h *AdminHandler) ListPostbacks(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxListLimit)
		}
	}

	query := h.db.WithContext(c.Request.Context()).Order("id DESC").Limit(limit)
	if state := c.Query("state"); state != "" {
		query = query.Where("state = ?", state)
	}

	rows := []model.ReceivedPostback{}
	if err := query.Find(&rows).Error; err != nil {
		h.logger.Error("查询回传失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询回传失败"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// ListForwards godoc
// @Summary 回传的转发记录
// @Tags Admin
// @Security ApiKeyAuth
// @Produce  json
// @Param   id  path  int  true  "入站回传 ID"
// @Success 200 {array} model.ForwardedPostback
// @Failure 400 {object} map[string]string
// @Router /api/postbacks/{id}/forwards [get]
func (h *AdminHandler) ListForwards(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rows := []model.ForwardedPostback{}
	err := h.db.WithContext(c.Request.Context()).
		Where("received_postback_id = ?", id).
		Order("placement_id ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		h.logger.Error("查询转发记录失败", zap.Uint64("postback_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询转发记录失败"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Replay godoc
// @Summary 重放回传
// @Description 同步重新执行一条未入账回传的流水线
// @Tags Admin
// @Security ApiKeyAuth
// @Produce  json
// @Param   id  path  int  true  "入站回传 ID"
// @Success 200 {object} postback.Result
// @Failure 404 {object} map[string]string "回传不存在"
// @Failure 409 {object} map[string]string "已入账"
// @Router /api/postbacks/{id}/replay [post]
func (h *AdminHandler) Replay(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	res, err := h.receiver.Replay(c.Request.Context(), uint(id))
	switch {
	case errors.Is(err, postback.ErrPostbackNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "回传不存在"})
	case errors.Is(err, postback.ErrNotReplayable):
		c.JSON(http.StatusConflict, gin.H{"error": "回传已入账，不能重放"})
	case err != nil:
		h.logger.Error("重放回传失败", zap.Uint64("postback_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "重放失败", "result": res})
	default:
		c.JSON(http.StatusOK, res)
	}
}

// Stats 汇总数据
type Stats struct {
	Postbacks   map[string]int64 `json:"postbacks"`
	Conversions int64            `json:"conversions"`
	Points      int64            `json:"points"`
	Forwards    map[string]int64 `json:"forwards"`
}

type groupCount struct {
	Name  string
	Total int64
}

// GetStats godoc
// @Summary 回传统计
// @Tags Admin
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} Stats
// @Failure 500 {object} map[string]string
// @Router /api/stats [get]
func (h *AdminHandler) GetStats(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	stats := Stats{Postbacks: map[string]int64{}, Forwards: map[string]int64{}}

	var byState, byOutcome []groupCount
	err := errors.Join(
		db.Model(&model.ReceivedPostback{}).Select("state AS name, COUNT(*) AS total").Group("state").Scan(&byState).Error,
		db.Model(&model.ForwardedPostback{}).Select("outcome AS name, COUNT(*) AS total").Group("outcome").Scan(&byOutcome).Error,
		db.Model(&model.Conversion{}).Count(&stats.Conversions).Error,
		db.Model(&model.Conversion{}).Where("status <> ?", model.ConversionRejected).Select("COALESCE(SUM(total), 0)").Scan(&stats.Points).Error,
	)
	if err != nil {
		h.logger.Error("统计查询失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "统计查询失败"})
		return
	}
	for _, g := range byState {
		stats.Postbacks[g.Name] = g.Total
	}
	for _, g := range byOutcome {
		stats.Forwards[g.Name] = g.Total
	}
	c.JSON(http.StatusOK, stats)
}

func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 ID"})
		return 0, false
	}
	return id, true
}
