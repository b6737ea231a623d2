package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/youruser/fabricview/internal/api"
	"github.com/youruser/fabricview/internal/catalog"
	"github.com/youruser/fabricview/internal/config"
	imagepkg "github.com/youruser/fabricview/internal/image"
	"github.com/youruser/fabricview/internal/middleware"
	"github.com/youruser/fabricview/internal/store"
	"github.com/youruser/fabricview/internal/util"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	cfg := config.New()

	if err := util.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer util.Sync()

	util.Logger.Info("starting fabricview server",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit))

	if err := util.EnsureDir(filepath.Join(cfg.Media.Dir, "masks")); err != nil {
		util.Logger.Fatal("failed to create media directory", zap.Error(err))
	}

	// Load the catalog at startup (best-effort)
	cat, err := catalog.LoadFromDataDir(cfg.Data.Dir, cfg.Data.ProductsFile, cfg.Data.FabricsFile, cfg.Data.MasksFile)
	if err != nil {
		util.Logger.Warn("failed to load catalog", zap.String("dir", cfg.Data.Dir), zap.Error(err))
		if cat == nil {
			cat = catalog.New(nil, nil, filepath.Join(cfg.Data.Dir, cfg.Data.MasksFile))
		}
	}

	var cache store.PreviewCache = store.NopPreviewCache{}
	if cfg.Redis.Enabled {
		rc := store.NewRedisPreviewCache(&cfg.Redis)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rc.Ping(ctx); err != nil {
			util.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
			_ = rc.Close()
		} else {
			util.Logger.Info("redis connected successfully", zap.String("addr", cfg.Redis.Addr))
			cache = rc
			defer rc.Close()
		}
		cancel()
	}

	loader := &imagepkg.AssetLoader{
		DataDir: cfg.Data.Dir,
		Roots:   map[string]string{cfg.Media.URLPrefix: cfg.Media.Dir},
		Timeout: cfg.Fetch.Timeout,
	}
	masks := store.NewFileMaskStore(cfg.Media.Dir, cfg.Media.URLPrefix)
	h := api.NewHandler(cfg, cat, loader, masks, cache)

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.MaxMultipartMemory = cfg.Upload.MaxSize
	r.Static(cfg.Media.URLPrefix, cfg.Media.Dir)
	api.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		util.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.Logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		util.Logger.Error("server shutdown failed", zap.Error(err))
	}
	util.Logger.Info("server stopped")
}
