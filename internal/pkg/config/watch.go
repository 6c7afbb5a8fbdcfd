package config

import (
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
)

// Watch 监听配置文件变更，目前只热更新日志级别。
// 配置文件不存在时直接返回 false。
func Watch(configPath string, onChange func(*Config)) bool {
	v, err := newViper(configPath)
	if err != nil || v.ConfigFileUsed() == "" {
		return false
	}
	if _, err := os.Stat(v.ConfigFileUsed()); err != nil {
		return false
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			slog.Warn("配置热更新失败，保留旧配置", "path", e.Name, "error", err)
			return
		}
		SetLevel(cfg.App.LogLevel)
		slog.Info("配置已重新加载", "path", e.Name, "log_level", cfg.App.LogLevel)
		if onChange != nil {
			onChange(cfg)
		}
	})
	v.WatchConfig()
	return true
}
