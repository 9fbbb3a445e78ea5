package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/m6parking/parkadmin/internal/api/permit"
	"github.com/m6parking/parkadmin/internal/service"
	"github.com/m6parking/parkadmin/internal/store"
	"github.com/m6parking/parkadmin/pkg/ws"
)

// 会话 ID 放在请求头里传递
const sessionHeader = "X-Session-ID"

// Handler HTTP 处理器
type Handler struct {
	logger    *zap.Logger
	dashboard *service.Dashboard
	wsHub     *ws.Hub
	upgrader  websocket.Upgrader
}

// NewHandler 创建处理器
func NewHandler(logger *zap.Logger, dashboard *service.Dashboard, wsHub *ws.Hub) *Handler {
	return &Handler{
		logger:    logger,
		dashboard: dashboard,
		wsHub:     wsHub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 开发环境允许所有来源
			},
		},
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		// 认证
		api.POST("/auth/login", h.Login)

		// 公开注册向导（无需登录）
		api.POST("/register", h.StartWizard)
		api.GET("/register/:id", h.WizardState)
		api.POST("/register/:id/identifiers", h.SubmitIdentifiers)
		api.POST("/register/:id/activate", h.ActivateWizard)
		api.POST("/register/:id/start-over", h.StartOver)
		api.POST("/register/:id/history", h.WizardHistory)
		api.POST("/register/:id/email", h.SendReceipt)

		// 登录后才可用的后台接口
		auth := api.Group("", h.RequireSession)
		{
			auth.POST("/auth/logout", h.Logout)

			// 列表视图
			views := auth.Group("/views/:resource")
			views.GET("", h.ListView)
			views.POST("/page", h.SetViewPage)
			views.POST("/select", h.SelectRow)
			views.POST("/select-all", h.SelectAllRows)
			views.POST("/copy", h.CopySelected)
			views.POST("/export", h.ExportSelected)
			views.POST("/delete", h.DeleteSelected)

			// 车场
			auth.GET("/lots/:id", h.GetLot)
			auth.POST("/lots", h.CreateLot)
			auth.PUT("/lots/:id", h.UpdateLot)

			// 车辆
			auth.GET("/vehicles/:id", h.GetVehicle)
			auth.POST("/vehicles/bulk", h.BulkCreateVehicles)
			auth.PUT("/vehicles/:id", h.UpdateVehicle)

			// 访问码
			auth.GET("/access-codes/:id", h.GetAccessCode)
			auth.POST("/access-codes/bulk", h.BulkCreateAccessCodes)
			auth.PUT("/access-codes/toggle-active", h.ToggleActiveAccessCodes)
			auth.PUT("/access-codes/:id", h.UpdateAccessCode)

			// 账号
			auth.POST("/users", h.CreateUser)
			auth.PUT("/users/:id", h.UpdateUser)
		}
	}

	// WebSocket
	r.GET("/ws", h.HandleWebSocket)

	// 健康检查
	r.GET("/health", h.HealthCheck)
}

// RequireSession 会话校验中间件
// 会话只在这里解析一次，下游统一从 context 取，不做散落的令牌直读
func (h *Handler) RequireSession(c *gin.Context) {
	sessionID := c.GetHeader(sessionHeader)
	if sessionID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing session"})
		return
	}

	session, err := h.dashboard.Authenticate(c.Request.Context(), sessionID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
		return
	}

	c.Set("session", session)
	c.Next()
}

// sessionFrom 从 context 取会话
func sessionFrom(c *gin.Context) *store.Session {
	v, _ := c.Get("session")
	session, _ := v.(*store.Session)
	return session
}

// writeAPIError 把上游/本地错误翻译成 HTTP 响应
// 表单类错误保留字段级信息，前端内联展示且不清空用户输入
func (h *Handler) writeAPIError(c *gin.Context, err error) {
	var apiErr *permit.APIError
	switch {
	case errors.Is(err, permit.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, store.ErrSessionNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
	case errors.Is(err, service.ErrUnknownResource):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &apiErr):
		body := gin.H{"error": apiErr.Message}
		if len(apiErr.Fields) > 0 {
			body["errors"] = apiErr.Fields
		}
		c.JSON(apiErr.Status, body)
	case errors.Is(err, permit.ErrNetwork):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream unreachable"})
	default:
		h.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// HandleWebSocket WebSocket 处理
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	// 启动读写协程
	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": h.wsHub.ClientCount(),
	})
}
