// Package config 服务端配置
// 优先级: 命令行参数 > 环境变量(GOREDIS_*) > .env 文件 > 默认值
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kgpp34/Redis-Source-Learning/internal/logger"
)

const EnvPrefix = "GOREDIS"

type Config struct {
	Addr         string        `mapstructure:"addr"`
	Backlog      int           `mapstructure:"backlog"`
	TCPKeepAlive time.Duration `mapstructure:"tcp-keepalive"` // 0 表示不开启
	Timeout      time.Duration `mapstructure:"timeout"`       // 空闲超时，0 表示永不超时
	MaxClients   int           `mapstructure:"maxclients"`

	ReadChunkSize     int    `mapstructure:"read-chunk-size"`      // 单次 read 的大小
	MaxWritePerEvent  int    `mapstructure:"max-write-per-event"`  // 单次写事件最多写出的字节数
	BigArgThreshold   int    `mapstructure:"big-arg-threshold"`    // 大参数零拷贝阈值
	MaxAcceptsPerCall int    `mapstructure:"max-accepts-per-call"` // 单次读事件最多 accept 的连接数
	MaxQueryBufLen    int    `mapstructure:"max-query-buf-len"`
	MaxMemory         uint64 `mapstructure:"maxmemory"` // 0 表示不限制

	Hz          int    `mapstructure:"hz"`
	DBNum       int    `mapstructure:"databases"`
	Preload     string `mapstructure:"preload"`
	MetricsAddr string `mapstructure:"metrics-addr"`
	LogLevel    string `mapstructure:"log-level"`
	LogJSON     bool   `mapstructure:"log-json"`
}

func Default() Config {
	return Config{
		Addr:              ":6379",
		Backlog:           511,
		TCPKeepAlive:      300 * time.Second,
		MaxClients:        10000,
		ReadChunkSize:     16 * 1024,
		MaxWritePerEvent:  64 * 1024,
		BigArgThreshold:   32 * 1024,
		MaxAcceptsPerCall: 1000,
		MaxQueryBufLen:    1024 * 1024 * 1024,
		Hz:                10,
		DBNum:             16,
		LogLevel:          "info",
	}
}

// SetDefaults 把默认值写入 v，Unmarshal 只认识有默认值的 key
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("addr", d.Addr)
	v.SetDefault("backlog", d.Backlog)
	v.SetDefault("tcp-keepalive", d.TCPKeepAlive)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("maxclients", d.MaxClients)
	v.SetDefault("read-chunk-size", d.ReadChunkSize)
	v.SetDefault("max-write-per-event", d.MaxWritePerEvent)
	v.SetDefault("big-arg-threshold", d.BigArgThreshold)
	v.SetDefault("max-accepts-per-call", d.MaxAcceptsPerCall)
	v.SetDefault("max-query-buf-len", d.MaxQueryBufLen)
	v.SetDefault("maxmemory", d.MaxMemory)
	v.SetDefault("hz", d.Hz)
	v.SetDefault("databases", d.DBNum)
	v.SetDefault("preload", d.Preload)
	v.SetDefault("metrics-addr", d.MetricsAddr)
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-json", d.LogJSON)
}

// NewViper 创建绑定了环境变量的 viper，envFiles 中不存在的文件会被忽略
func NewViper(envFiles ...string) *viper.Viper {
	for _, f := range envFiles {
		// .env 不存在是正常情况
		_ = godotenv.Load(f)
	}
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load 从 v 读取配置并校验
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	positive("backlog", c.Backlog)
	positive("maxclients", c.MaxClients)
	positive("read-chunk-size", c.ReadChunkSize)
	positive("max-write-per-event", c.MaxWritePerEvent)
	positive("big-arg-threshold", c.BigArgThreshold)
	positive("max-accepts-per-call", c.MaxAcceptsPerCall)
	positive("max-query-buf-len", c.MaxQueryBufLen)
	positive("hz", c.Hz)
	positive("databases", c.DBNum)

	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.TCPKeepAlive < 0 || c.Timeout < 0 {
		errs = append(errs, errors.New("tcp-keepalive and timeout must not be negative"))
	}
	if c.Hz > 500 {
		errs = append(errs, fmt.Errorf("hz must be at most 500, got %d", c.Hz))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// CronInterval 定时任务的间隔
func (c Config) CronInterval() time.Duration {
	return time.Second / time.Duration(c.Hz)
}
