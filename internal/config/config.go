package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/orderdesk/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Datasource DatasourceConfig `mapstructure:"datasource"`
	Analytics  AnalyticsConfig  `mapstructure:"analytics"`
}

// ServerConfig 运行模式配置
type ServerConfig struct {
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatasourcePoolConfig 数据源连接池配置
type DatasourcePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatasourceConfig 订单数据源配置
type DatasourceConfig struct {
	Driver string               `mapstructure:"driver"` // sqlite / postgres
	DSN    string               `mapstructure:"dsn"`
	Pool   DatasourcePoolConfig `mapstructure:"pool"`
}

// AnalyticsConfig 分析口径配置
type AnalyticsConfig struct {
	Timezone string `mapstructure:"timezone"` // 时间分桶参考时区
}

// Location 解析分桶参考时区，解析失败回退 UTC
func (c AnalyticsConfig) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warnw("analytics_timezone_invalid", "timezone", name, "error", err)
		return time.UTC
	}
	return loc
}

// Load 加载配置；缺失文件时使用默认值
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./etc")
	viper.AddConfigPath("../")

	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "orderdesk.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("datasource.driver", "sqlite")
	viper.SetDefault("datasource.dsn", "./db/orderdesk.db")
	viper.SetDefault("datasource.pool.max_open_conns", 1)
	viper.SetDefault("datasource.pool.max_idle_conns", 1)
	viper.SetDefault("datasource.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("datasource.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("analytics.timezone", "UTC")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logger.Warnw("config_read_failed", "error", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("unmarshal config failed: %v", err))
	}
	return &cfg
}
