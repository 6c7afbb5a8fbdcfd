package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Storage   StorageConfig   `mapstructure:"storage"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Migration MigrationConfig `mapstructure:"migration"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Version  string `mapstructure:"version"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	DBPath        string `mapstructure:"db_path" validate:"required"`
	BusyTimeoutMs int    `mapstructure:"busy_timeout_ms" validate:"gte=0"`
}

// HTTPConfig HTTP 监听配置
type HTTPConfig struct {
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`
}

// MigrationConfig 迁移执行配置
type MigrationConfig struct {
	RetryAttempts  int    `mapstructure:"retry_attempts" validate:"gte=1"`
	RetryDelayMs   int    `mapstructure:"retry_delay_ms" validate:"gte=0"`
	FailureDelayMs int    `mapstructure:"failure_delay_ms" validate:"gte=0"`
	SQLDir         string `mapstructure:"sql_dir"` // 额外的 SQL 迁移目录，可为空
}

// RetryDelay 台账重试间隔
func (c MigrationConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// FailureDelay 单个迁移失败后继续下一个前的等待
func (c MigrationConfig) FailureDelay() time.Duration {
	return time.Duration(c.FailureDelayMs) * time.Millisecond
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 支持环境变量，如 MINOMINA_STORAGE_DB_PATH
	v.SetEnvPrefix("MINOMINA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("配置文件未找到，使用默认配置")
		} else if configPath != "" && os.IsNotExist(err) {
			slog.Warn("配置文件不存在，使用默认配置", "path", configPath)
		} else {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		slog.Info("加载配置文件", "path", v.ConfigFileUsed())
	}
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.Storage.DBPath = resolvePath(strings.TrimSpace(expandEnv(cfg.Storage.DBPath)))
	cfg.App.LogPath = expandEnv(cfg.App.LogPath)
	if cfg.App.LogPath != "" {
		cfg.App.LogPath = resolvePath(cfg.App.LogPath)
	}
	if cfg.Migration.SQLDir != "" {
		cfg.Migration.SQLDir = resolvePath(expandEnv(cfg.Migration.SQLDir))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// configValidator 以 mapstructure 键名报告字段，便于对照 config.yaml
var configValidator = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

func (c *Config) validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("校验配置失败: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := fe.Namespace()
		key = key[strings.Index(key, ".")+1:]
		msgs = append(msgs, fmt.Sprintf("%s 不满足 %s%s (当前为 %v)", key, fe.Tag(), paramSuffix(fe.Param()), fe.Value()))
	}
	return fmt.Errorf("配置非法: %s", strings.Join(msgs, "; "))
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}

// Default 返回默认配置（用于首次生成 config.yaml）
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "minomina")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_path", "")

	// Storage
	v.SetDefault("storage.db_path", "./data/minomina.sqlite")
	v.SetDefault("storage.busy_timeout_ms", 5000)

	// HTTP
	v.SetDefault("http.listen_addr", "127.0.0.1:3000")

	// Migration
	v.SetDefault("migration.retry_attempts", 5)
	v.SetDefault("migration.retry_delay_ms", 1000)
	v.SetDefault("migration.failure_delay_ms", 2000)
	v.SetDefault("migration.sql_dir", "")
}

// expandEnv 展开环境变量占位符 ${VAR}
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		envVar := s[2 : len(s)-1]
		return os.Getenv(envVar)
	}
	return s
}

// resolvePath 解析相对路径为绝对路径（相对可执行文件目录）
func resolvePath(path string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}

	exe, err := os.Executable()
	if err != nil {
		return path
	}

	exeDir := filepath.Dir(exe)
	return filepath.Join(exeDir, path)
}
