package types

import "time"

// Config は全体設定を表すインターフェースです。
type Config interface {
	GetAllocator() AllocatorConfig
	GetServer() ServerConfig
	GetLog() LogConfig
}

// IPv6Policy は IPv6 プローブのエラーをどう扱うかを表します。
type IPv6Policy string

const (
	// IPv6PolicyStrict は IPv6 が存在しないと判断できる場合のみエラーを無視します。
	IPv6PolicyStrict IPv6Policy = "strict"
	// IPv6PolicyLenient は IPv6 プローブのエラーを常に無視します。
	IPv6PolicyLenient IPv6Policy = "lenient"
)

// AllocatorConfig はポート割り当て関連の設定を表します。
type AllocatorConfig struct {
	ProbeTimeout     time.Duration `yaml:"probe_timeout" json:"probe_timeout" mapstructure:"probe_timeout"`
	CacheTTL         time.Duration `yaml:"cache_ttl" json:"cache_ttl" mapstructure:"cache_ttl"`
	MaxAttempts      int           `yaml:"max_attempts" json:"max_attempts" mapstructure:"max_attempts"`
	RandomAttempts   int           `yaml:"random_attempts" json:"random_attempts" mapstructure:"random_attempts"`
	RandomRange      PortRange     `yaml:"random_range" json:"random_range" mapstructure:"random_range"`
	Denylist         []int         `yaml:"denylist" json:"denylist" mapstructure:"denylist"`
	BatchConcurrency int           `yaml:"batch_concurrency" json:"batch_concurrency" mapstructure:"batch_concurrency"`
	IPv6Policy       IPv6Policy    `yaml:"ipv6_policy" json:"ipv6_policy" mapstructure:"ipv6_policy"`
}

// ServerConfig はサーバ起動関連の設定を表します。
type ServerConfig struct {
	Host            string        `yaml:"host" json:"host" mapstructure:"host"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// LogConfig はログ関連設定を表します。
type LogConfig struct {
	Level    string `yaml:"level" json:"level" mapstructure:"level"`
	Format   string `yaml:"format" json:"format" mapstructure:"format"`
	File     string `yaml:"file" json:"file" mapstructure:"file"`
	Detailed bool   `yaml:"detailed" json:"detailed" mapstructure:"detailed"`
}

// AppConfig は具体的な設定実装です。
type AppConfig struct {
	Allocator AllocatorConfig `yaml:"allocator" json:"allocator" mapstructure:"allocator"`
	Server    ServerConfig    `yaml:"server" json:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" json:"log" mapstructure:"log"`
}

// GetAllocator はアロケータ設定を返します。
func (c *AppConfig) GetAllocator() AllocatorConfig {
	return c.Allocator
}

// GetServer はサーバ設定を返します。
func (c *AppConfig) GetServer() ServerConfig {
	return c.Server
}

// GetLog はログ設定を返します。
func (c *AppConfig) GetLog() LogConfig {
	return c.Log
}
