package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"gp-directory/internal/core/auth"
	"gp-directory/internal/core/config"
	"gp-directory/internal/core/database"
	"gp-directory/internal/core/limiter"
	"gp-directory/internal/core/logger"
	"gp-directory/internal/core/server"
	"gp-directory/internal/core/session"
	"gp-directory/internal/repo"
	"gp-directory/internal/service"
	"gp-directory/internal/transport/http/handler"
	mdw "gp-directory/internal/transport/http/middleware"
	"gp-directory/internal/transport/http/router"
	"gp-directory/pkg/utils"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}
	log, cleanup := logger.FromConfig(cfg)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = logger.ToWriter(log, zapcore.DebugLevel)
	gin.DefaultErrorWriter = logger.ToWriter(log, zapcore.ErrorLevel)

	// 数据库（失败会直接 Fatal）
	db := mustOpenDB(cfg, log)
	log.Info("database connected",
		zap.String("driver", cfg.DB.Driver),
		zap.String("dsn", database.MaskDSN(cfg.DB.DSN)),
	)
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	// 管理员账号
	adminSvc := service.NewAdminService(repo.NewAdminRepo(db), log)
	if err := adminSvc.Bootstrap(context.Background(), config.DefaultAdminPassword, cfg.Admin.Password); err != nil {
		log.Fatal("admin bootstrap failed", zap.Error(err))
	}

	// 会话
	secret := cfg.Session.Secret
	if secret == "" {
		secret = utils.RandomHex(32)
		log.Warn("session secret not set; generated a random one, sessions will not survive a restart")
	}
	ttl := time.Duration(cfg.Session.TTLSec) * time.Second
	store := session.NewStore(nil)
	guard := service.NewSessionGuard(adminSvc, store, &auth.JWTer{
		Secret: []byte(secret),
		Issuer: cfg.Session.Issuer,
	}, service.GuardOpts{TTL: ttl, Logger: log})

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go guard.RunSweeper(sweepCtx, time.Minute)

	practiceSvc := service.NewPracticeService(repo.NewPracticeRepo(db), cfg.Search.PublicLimit, cfg.Search.AdminLimit)
	h := handler.New(practiceSvc, guard, mdw.SessionCookie{
		Name:   cfg.Session.CookieName,
		Secure: cfg.App.ForceHTTPS,
	}, log)

	r := router.NewEngine(router.Deps{
		Log:     log,
		Handler: h,
		LoginLimiter: limiter.NewWindow(
			cfg.Login.MaxAttempts,
			time.Duration(cfg.Login.WindowSec)*time.Second,
			nil,
		),
		ForceHTTPS:     cfg.App.ForceHTTPS,
		TrustedProxies: cfg.App.TrustedProxies,
	})

	// HTTP Server
	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	baseURL := server.BaseURL(cfg.App.HTTP.Host, cfg.App.HTTP.Port, false)
	log.Info("gp directory starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("admin", baseURL+"/admin"),
		zap.String("health", baseURL+"/health"),
		zap.Bool("force_https", cfg.App.ForceHTTPS),
		zap.Strings("trusted_proxies", cfg.App.TrustedProxies),
	)

	// 异步启动
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("gp directory start FAILED", zap.Error(err))
		}
	}()
	log.Info("gp directory started SUCCESS")

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("gp directory stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
