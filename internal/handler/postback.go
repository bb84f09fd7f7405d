package handler

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"postback-platform/internal/postback"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 原始回传落库的超时，不受客户端断开影响
const storeTimeout = 5 * time.Second

// PostbackHandler 上游网络回传入口
type PostbackHandler struct {
	receiver *postback.Receiver
	timeout  time.Duration
	logger   *zap.Logger
	inflight sync.WaitGroup
}

// NewPostbackHandler timeout 为单条回传流水线的最长执行时间
func NewPostbackHandler(receiver *postback.Receiver, timeout time.Duration, logger *zap.Logger) *PostbackHandler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &PostbackHandler{receiver: receiver, timeout: timeout, logger: logger.Named("postback-handler")}
}

// PostbackAck 回传应答
type PostbackAck struct {
	Message string `json:"message" example:"postback received"`
}

// Receive godoc
// @Summary 接收转化回传
// @Description 保存原始回传后立即返回 200，匹配、入账和转发在后台完成。只有请求体无法解析时返回 400。
// @Tags Postback
// @Accept  json,x-www-form-urlencoded
// @Produce  json
// @Param   partner_key  path   string  true  "上游网络标识"
// @Param   click_id  query  string  false  "点击 ID"
// @Param   offer_id  query  string  false  "上游 offer ID"
// @Param   transaction_id  query  string  false  "交易 ID"
// @Success 200 {object} PostbackAck "已接收"
// @Failure 400 {object} PostbackAck "请求无法解析"
// @Router /postback/{partner_key} [get]
// @Router /postback/{partner_key} [post]
func (h *PostbackHandler) Receive(c *gin.Context) {
	partnerKey := c.Param("partner_key")

	in, err := postback.ParseRequest(c.Request)
	if err != nil {
		h.logger.Warn("回传请求无法解析", zap.String("partner", partnerKey), zap.Error(err))
		c.JSON(http.StatusBadRequest, PostbackAck{Message: "malformed request"})
		return
	}
	in.RemoteIP = c.ClientIP()

	storeCtx, storeCancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), storeTimeout)
	rec := h.receiver.ReceivePostback(storeCtx, partnerKey, in)
	storeCancel()

	// 流水线脱离请求生命周期运行，拥有自己的超时
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.timeout)
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("回传流水线 panic", zap.Uint("postback_id", rec.ID), zap.Any("panic", r))
			}
		}()
		if _, err := h.receiver.Process(ctx, rec); err != nil {
			h.logger.Error("回传流水线失败", zap.Uint("postback_id", rec.ID), zap.Error(err))
		}
	}()

	c.JSON(http.StatusOK, PostbackAck{Message: "postback received"})
}

// Drain 等待后台流水线结束，ctx 到期时放弃等待
func (h *PostbackHandler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("回传流水线未能在超时前完成: %w", ctx.Err())
	}
}
