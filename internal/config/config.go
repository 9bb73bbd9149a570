package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/virtual-audience/internal/infrastructure/notify"
	"github.com/JoeShih716/virtual-audience/internal/simulation"
	"github.com/JoeShih716/virtual-audience/pkg/redis"
	"github.com/JoeShih716/virtual-audience/pkg/wss"
)

// DefaultPath 預設設定檔位置
const DefaultPath = "./config/config.yaml"

// Config 總配置結構
type Config struct {
	App        AppConfig         `yaml:"app"`
	Redis      redis.Config      `yaml:"redis"`
	WSS        WSSConfig         `yaml:"wss"`
	Notify     NotifyConfig      `yaml:"notify"`
	Simulation simulation.Config `yaml:"simulation"`
}

type AppConfig struct {
	Name     string `yaml:"name"`
	Env      string `yaml:"env" env:"APP_ENV"`
	Port     int    `yaml:"port" env:"PORT"`           // HTTP / WebSocket Port
	GrpcPort int    `yaml:"grpc_port" env:"GRPC_PORT"` // gRPC Health Port，0 代表不啟動
}

type WSSConfig struct {
	Path            string        `yaml:"path"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"WSS_ALLOWED_ORIGINS" envSeparator:","`
	ReadBufferSize  int           `yaml:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size"`
	WriteWait       time.Duration `yaml:"write_wait"`
	PongWait        time.Duration `yaml:"pong_wait"`
	MaxMessageSize  int64         `yaml:"max_message_size"`
	SendBuffer      int           `yaml:"send_buffer"`
}

// Server 轉為 wss.Server 的設定
func (c WSSConfig) Server() *wss.Config {
	return &wss.Config{
		AllowedOrigins:  c.AllowedOrigins,
		ReadBufferSize:  c.ReadBufferSize,
		WriteBufferSize: c.WriteBufferSize,
		WriteWait:       c.WriteWait,
		PongWait:        c.PongWait,
		MaxMessageSize:  c.MaxMessageSize,
		SendBuffer:      c.SendBuffer,
	}
}

// NotifyConfig 事件輸出設定
type NotifyConfig struct {
	Redis        notify.RedisConfig `yaml:"redis"`
	RedisEnabled bool               `yaml:"redis_enabled" env:"NOTIFY_REDIS"`
	LogLevel     string             `yaml:"log_level"`    // debug, info, warn；空字串代表不記錄事件
	AsyncBuffer  int                `yaml:"async_buffer"` // 非同步輸出佇列長度
	Timeout      time.Duration      `yaml:"timeout"`
	LockTTL      time.Duration      `yaml:"lock_ttl"` // 單一頻道模擬程序鎖的存活時間
}

// Default 預設設定
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:     "virtual-audience",
			Env:      "local",
			Port:     8080,
			GrpcPort: 9090,
		},
		Redis: redis.Config{Addr: "localhost:6379"},
		WSS: WSSConfig{
			Path:            "/ws",
			AllowedOrigins:  []string{"*"},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			WriteWait:       10 * time.Second,
			PongWait:        60 * time.Second,
			MaxMessageSize:  64 * 1024,
			SendBuffer:      256,
		},
		Notify: NotifyConfig{
			Redis:        notify.RedisConfig{Channel: "default", StatsTTL: time.Minute},
			RedisEnabled: true,
			LogLevel:     "debug",
			AsyncBuffer:  1024,
			Timeout:      2 * time.Second,
			LockTTL:      30 * time.Second,
		},
		Simulation: simulation.DefaultConfig(),
	}
}

// Load 讀取設定檔
// 以 Default() 為底，套用 YAML (檔案不存在時略過)，最後以環境變數覆蓋
//
// 參數:
//
//	path: string - 設定檔路徑，空字串代表 DefaultPath
//
// 回傳值:
//
//	*Config: 設定
//	error: YAML 或環境變數解析失敗
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse yaml at %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// 純環境變數模式
	default:
		return nil, fmt.Errorf("failed to read config file at %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// IsProduction 是否為正式環境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production" || c.App.Env == "prod"
}
