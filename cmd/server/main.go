package main

import (
	"authserver/internal/api"
	"authserver/internal/auth"
	"authserver/internal/avatar"
	"authserver/internal/config"
	"authserver/internal/metrics"
	"authserver/internal/model"
	"authserver/internal/service"
	"authserver/internal/storage"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	// 初始化logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	// 初始化配置
	cfg, err := config.ParseConfig()
	if err != nil {
		logrus.WithError(err).Error("Failed to parse config")
		return
	}

	repo, err := model.InitRepository(&cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise repository")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := model.SeedDefaultRoles(ctx, repo, cfg); err != nil {
		cancel()
		logrus.WithError(err).Error("failed to seed roles")
		return
	}
	cancel()

	store, err := storage.NewStorage(cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise storage")
		return
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	avatarOpts := avatar.OptionsFromConfig(cfg)
	avatarOpts.Metrics = metrics.NewAvatar(registry)
	resolver := avatar.NewResolver(store, avatarOpts)

	authManager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, time.Duration(cfg.JWTExpirationMinutes)*time.Minute)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise jwt manager")
		return
	}
	credentials, err := auth.NewCredentialPolicy(cfg.AuthCredentialMode)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise credential policy")
		return
	}
	if cfg.AuthCredentialMode == "" || strings.EqualFold(cfg.AuthCredentialMode, auth.CredentialModePlain) {
		logrus.Warn("credentials are stored and compared in plain text; set AUTH_CREDENTIAL_MODE=bcrypt")
	}

	accounts := service.NewAccountService(repo, authManager, resolver, credentials, service.Options{
		DefaultAvatar:  cfg.AvatarDefault,
		ResolveTimeout: cfg.AvatarStoreTimeout,
		RemoveTimeout:  cfg.AvatarRemoveTimeout,
	})

	if email := strings.TrimSpace(cfg.SeedAdminEmail); email != "" {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		admin, err := accounts.EnsureAdmin(ctx, email, cfg.SeedAdminPassword, cfg.SeedAdminName)
		cancel()
		if err != nil {
			logrus.WithError(err).Warn("failed to seed administrator")
		} else if admin != nil {
			logrus.WithField("user_id", admin.ID).Info("seeded administrator")
		}
	}

	httpHandler := api.NewHTTPHandler(cfg, accounts, authManager)

	// 设置Gin模式
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// 添加中间件
	r.Use(LoggingMiddleware())
	r.Use(CORSMiddleware())
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	httpHandler.RegisterRoutes(r.Group("/api"))

	if localProvider, ok := store.(storage.LocalBaseDirProvider); ok {
		publicPrefix := strings.TrimSpace(cfg.StoragePublicBaseURL)
		if publicPrefix == "" {
			publicPrefix = "/files"
		}
		if !strings.HasPrefix(publicPrefix, "http://") && !strings.HasPrefix(publicPrefix, "https://") {
			if !strings.HasPrefix(publicPrefix, "/") {
				publicPrefix = "/" + publicPrefix
			}
			r.Static(publicPrefix, localProvider.LocalBaseDir())
		}
	}

	serverHost := fmt.Sprintf("0.0.0.0:%s", cfg.HTTPPort)
	logrus.WithField("host", serverHost).Info("服务器启动")
	// 创建HTTP服务器
	httpServer := &http.Server{
		Addr:         serverHost,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	err = httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logrus.WithError(err).Error("服务器启动失败")
	}
}

// CORSMiddleware CORS跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggingMiddleware 日志记录中间件
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		// 处理请求
		c.Next()
		// 记录请求结束
		duration := time.Since(start)
		logrus.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"duration":  duration.String(),
			"size":      c.Writer.Size(),
			"client_ip": c.ClientIP(),
		}).Info("http_request")
	}
}
