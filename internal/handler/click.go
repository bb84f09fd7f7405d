package handler

import (
	"errors"
	"net/http"
	"net/url"

	"postback-platform/internal/macro"
	"postback-platform/internal/tracking"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ClickHandler offerwall 点击跳转
type ClickHandler struct {
	recorder *tracking.Recorder
	logger   *zap.Logger
}

func NewClickHandler(recorder *tracking.Recorder, logger *zap.Logger) *ClickHandler {
	return &ClickHandler{recorder: recorder, logger: logger.Named("click-handler")}
}

// Track godoc
// @Summary 记录点击并跳转
// @Description 记录一次 offer 点击（含欺诈评分），然后 302 跳转到广告主落地页
// @Tags Click
// @Produce  json
// @Param   offer_id  path   string  true  "内部 offer ID"
// @Param   user_id  query  string  true  "用户 ID"
// @Param   placement_id  query  string  false  "placement ID"
// @Success 302 {string} string "跳转到落地页"
// @Failure 400 {object} map[string]string "缺少 user_id"
// @Failure 404 {object} map[string]string "offer 不存在或已下线"
// @Router /click/{offer_id} [get]
func (h *ClickHandler) Track(c *gin.Context) {
	click, offer, err := h.recorder.RecordClick(c.Request.Context(), tracking.ClickInput{
		OfferID:        c.Param("offer_id"),
		UserID:         c.Query("user_id"),
		PlacementID:    c.Query("placement_id"),
		IP:             c.ClientIP(),
		UserAgent:      c.Request.UserAgent(),
		Referer:        c.Request.Referer(),
		AcceptLanguage: c.GetHeader("Accept-Language"),
	})
	switch {
	case errors.Is(err, tracking.ErrMissingUser):
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 user_id"})
		return
	case errors.Is(err, tracking.ErrOfferUnavailable):
		c.JSON(http.StatusNotFound, gin.H{"error": "offer 不存在或已下线"})
		return
	case err != nil:
		h.logger.Error("记录点击失败", zap.String("offer_id", c.Param("offer_id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "记录点击失败"})
		return
	}

	target := macro.Render(offer.TargetURL, map[string]string{
		string(macro.ClickID): url.QueryEscape(click.ClickID),
		string(macro.UserID):  url.QueryEscape(click.UserID),
		string(macro.OfferID): url.QueryEscape(click.OfferID),
	})
	if target == "" {
		c.JSON(http.StatusOK, gin.H{"click_id": click.ClickID})
		return
	}
	c.Redirect(http.StatusFound, target)
}
