package api

import (
	"authserver/internal/auth"
	"authserver/internal/config"
	"authserver/internal/service"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	queryTimeout = 5 * time.Second
	// 创建用户包含头像解析，时限更长
	mutationTimeout = 30 * time.Second
)

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg         config.Config
	accounts    *service.AccountService
	authManager *auth.Manager
}

// NewHTTPHandler 创建 HTTP 处理器实例
func NewHTTPHandler(cfg config.Config, accounts *service.AccountService, authManager *auth.Manager) *HTTPHandler {
	return &HTTPHandler{
		cfg:         cfg,
		accounts:    accounts,
		authManager: authManager,
	}
}

// RegisterRoutes 注册用户相关路由
func (h *HTTPHandler) RegisterRoutes(r gin.IRouter) {
	users := r.Group("/users")
	users.POST("", h.CreateUser)
	users.POST("/login", h.Login)

	protected := users.Group("")
	protected.Use(h.AuthMiddleware())
	protected.GET("", h.ListUsers)
	protected.GET("/me", h.Me)
	protected.GET("/:id", h.GetUser)
	protected.PATCH("/:id", h.UpdateUser)
	protected.PUT("/:id/avatar", h.UploadAvatar)
	protected.DELETE("/:id/avatar", h.DeleteAvatar)

	admin := protected.Group("")
	admin.Use(h.RequireAdmin())
	admin.DELETE("/:id", h.DeleteUser)
	admin.PUT("/:id/roles/:role", h.AddUserRole)
}
