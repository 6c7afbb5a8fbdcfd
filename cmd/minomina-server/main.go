package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yuqie6/MiNomina/internal/bootstrap"
	"github.com/yuqie6/MiNomina/internal/httpapi"
	"github.com/yuqie6/MiNomina/internal/pkg/buildinfo"
	"github.com/yuqie6/MiNomina/internal/pkg/config"
)

func main() {
	cfgPath := flag.String("config", "", "配置文件路径")
	flag.Parse()

	if *cfgPath == "" {
		if p, err := config.DefaultConfigPath(); err == nil {
			if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
				_ = config.WriteFile(p, config.Default())
			}
			*cfgPath = p
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, *cfgPath))
}

func run(ctx context.Context, cfgPath string) int {
	core, err := bootstrap.NewCore(cfgPath)
	if err != nil {
		slog.Error("初始化失败", "error", err)
		return 1
	}
	defer core.Close()

	slog.Info("MiNomina 启动中...", "name", core.Cfg.App.Name, "version", core.Cfg.App.Version, "build", buildinfo.Version, "commit", buildinfo.Commit)

	if _, err := core.Prepare(ctx); err != nil {
		slog.Error("启动准备失败，退出", "error", err)
		return 1
	}

	config.Watch(cfgPath, nil)

	srv, err := httpapi.Start(ctx, core, httpapi.Options{ListenAddr: core.Cfg.HTTP.ListenAddr})
	if err != nil {
		slog.Error("启动 HTTP 服务失败", "error", err)
		return 1
	}

	<-ctx.Done()
	slog.Info("收到退出信号，正在关闭...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	slog.Info("MiNomina 已退出")
	return 0
}
