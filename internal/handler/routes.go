package handler

import "github.com/gin-gonic/gin"

// Routes 路由依赖。RateLimit 只挂在点击和管理接口上，回传接口不限流，上游始终拿到 200
type Routes struct {
	Postback  *PostbackHandler
	Click     *ClickHandler
	Admin     *AdminHandler
	Auth      gin.HandlerFunc
	AdminOnly gin.HandlerFunc
	RateLimit gin.HandlerFunc
}

func passThrough(c *gin.Context) { c.Next() }

// RegisterRoutes 注册全部业务路由
func RegisterRoutes(router *gin.Engine, r Routes) {
	limit := r.RateLimit
	if limit == nil {
		limit = passThrough
	}

	router.GET("/health", r.Admin.HealthCheck)

	router.GET("/postback/:partner_key", r.Postback.Receive)
	router.POST("/postback/:partner_key", r.Postback.Receive)

	router.GET("/click/:offer_id", limit, r.Click.Track)

	api := router.Group("/api")
	api.Use(limit, r.Auth, r.AdminOnly)
	{
		api.GET("/macros/validate", r.Admin.ValidateMacros)
		api.GET("/postbacks", r.Admin.ListPostbacks)
		api.GET("/postbacks/:id/forwards", r.Admin.ListForwards)
		api.POST("/postbacks/:id/replay", r.Admin.Replay)
		api.GET("/stats", r.Admin.GetStats)
	}
}
