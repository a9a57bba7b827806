// Package app provides the diagnostics copilot retrieval service
// application.
package app

import (
	"fmt"
	"time"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/option"
	"github.com/spf13/pflag"

	neo4jopts "github.com/kart-io/adas-copilot/pkg/component/neo4j"
	postgresopts "github.com/kart-io/adas-copilot/pkg/component/postgres"
	redisopts "github.com/kart-io/adas-copilot/pkg/component/redis"
)

// HTTPOptions contains HTTP server configuration.
type HTTPOptions struct {
	// Addr 监听地址。
	Addr string `json:"addr" mapstructure:"addr"`
	// Mode gin 运行模式 (debug|release|test)。
	Mode string `json:"mode" mapstructure:"mode"`
	// ReadTimeout 请求读取超时。
	ReadTimeout time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	// WriteTimeout 响应写入超时。
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
	// ShutdownTimeout 优雅关闭超时。
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewHTTPOptions creates default HTTP options.
func NewHTTPOptions() *HTTPOptions {
	return &HTTPOptions{
		Addr:            ":8083",
		Mode:            "release",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// LogOptions wraps the logger option.LogOption.
type LogOptions struct {
	*option.LogOption
}

// NewLogOptions creates default logger options.
func NewLogOptions() *LogOptions {
	return &LogOptions{LogOption: option.DefaultLogOption()}
}

// AddFlags adds logger flags to the flagset.
func (o *LogOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Engine, "log.engine", o.Engine, "Logging engine (zap|slog)")
	fs.StringVar(&o.Level, "log.level", o.Level, "Log level (DEBUG|INFO|WARN|ERROR|FATAL)")
	fs.StringVar(&o.Format, "log.format", o.Format, "Log format (json|console)")
	fs.StringSliceVar(&o.OutputPaths, "log.output-paths", o.OutputPaths, "Output paths for logs")
	fs.BoolVar(&o.Development, "log.development", o.Development, "Enable development mode")
}

// Init initializes the global logger.
func (o *LogOptions) Init() error {
	log, err := logger.New(o.LogOption)
	if err != nil {
		return err
	}
	logger.SetGlobal(log)
	return nil
}

// SearchOptions contains retrieval configuration.
type SearchOptions struct {
	// MaxResults 默认返回的结果数。
	MaxResults int `json:"max-results" mapstructure:"max-results"`
	// EmbeddingDim 嵌入向量维度。
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`
	// GraphTimeout 单次图谱查询超时。
	GraphTimeout time.Duration `json:"graph-timeout" mapstructure:"graph-timeout"`
	// GraphMaxDepth 默认图谱遍历深度。
	GraphMaxDepth int `json:"graph-max-depth" mapstructure:"graph-max-depth"`
}

// NewSearchOptions creates default search options.
func NewSearchOptions() *SearchOptions {
	return &SearchOptions{
		MaxResults:    10,
		EmbeddingDim:  768, // nomic-embed-text dimension
		GraphTimeout:  5 * time.Second,
		GraphMaxDepth: 2,
	}
}

// CacheOptions 检索缓存配置。
type CacheOptions struct {
	// Enabled 是否启用缓存。
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// TTL 缓存过期时间。
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`
	// KeyPrefix 缓存键前缀。
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`
	// Redis Redis 连接配置。
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`
}

// NewCacheOptions creates default cache options.
func NewCacheOptions() *CacheOptions {
	return &CacheOptions{
		Enabled:   false,
		TTL:       10 * time.Minute,
		KeyPrefix: "copilot:search:",
		Redis:     redisopts.NewOptions(),
	}
}

// Options contains all copilot service options.
type Options struct {
	// HTTP contains HTTP server configuration.
	HTTP *HTTPOptions `json:"http" mapstructure:"http"`
	// Log contains logger configuration.
	Log *LogOptions `json:"log" mapstructure:"log"`
	// Postgres contains document store configuration.
	Postgres *postgresopts.Options `json:"postgres" mapstructure:"postgres"`
	// Neo4j contains graph store configuration.
	Neo4j *neo4jopts.Options `json:"neo4j" mapstructure:"neo4j"`
	// Search contains retrieval configuration.
	Search *SearchOptions `json:"search" mapstructure:"search"`
	// Cache contains cache configuration.
	Cache *CacheOptions `json:"cache" mapstructure:"cache"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		HTTP:     NewHTTPOptions(),
		Log:      NewLogOptions(),
		Postgres: postgresopts.NewOptions(),
		Neo4j:    neo4jopts.NewOptions(),
		Search:   NewSearchOptions(),
		Cache:    NewCacheOptions(),
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.HTTP.Addr, "http.addr", o.HTTP.Addr, "HTTP listen address")
	fs.StringVar(&o.HTTP.Mode, "http.mode", o.HTTP.Mode, "HTTP server mode (debug|release|test)")
	fs.DurationVar(&o.HTTP.ReadTimeout, "http.read-timeout", o.HTTP.ReadTimeout, "HTTP read timeout")
	fs.DurationVar(&o.HTTP.WriteTimeout, "http.write-timeout", o.HTTP.WriteTimeout, "HTTP write timeout")
	fs.DurationVar(&o.HTTP.ShutdownTimeout, "http.shutdown-timeout", o.HTTP.ShutdownTimeout, "Graceful shutdown timeout")

	o.Log.AddFlags(fs)
	o.Postgres.AddFlags(fs, "postgres.")
	o.Neo4j.AddFlags(fs, "neo4j.")
	o.Cache.Redis.AddFlags(fs, "cache.redis.")

	fs.IntVar(&o.Search.MaxResults, "search.max-results", o.Search.MaxResults, "Default number of search results")
	fs.IntVar(&o.Search.EmbeddingDim, "search.embedding-dim", o.Search.EmbeddingDim, "Embedding vector dimension")
	fs.DurationVar(&o.Search.GraphTimeout, "search.graph-timeout", o.Search.GraphTimeout, "Graph query timeout")
	fs.IntVar(&o.Search.GraphMaxDepth, "search.graph-max-depth", o.Search.GraphMaxDepth, "Default graph traversal depth")

	fs.BoolVar(&o.Cache.Enabled, "cache.enabled", o.Cache.Enabled, "Enable search result cache")
	fs.DurationVar(&o.Cache.TTL, "cache.ttl", o.Cache.TTL, "Cache TTL duration")
	fs.StringVar(&o.Cache.KeyPrefix, "cache.key-prefix", o.Cache.KeyPrefix, "Cache key prefix")
}

// Validate validates the options.
func (o *Options) Validate() error {
	if err := o.Log.Validate(); err != nil {
		return err
	}
	if err := o.Postgres.Validate(); err != nil {
		return err
	}
	if err := o.Neo4j.Validate(); err != nil {
		return err
	}
	if o.Cache.Enabled {
		if err := o.Cache.Redis.Validate(); err != nil {
			return err
		}
	}
	if o.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max-results must be positive")
	}
	if o.Search.EmbeddingDim <= 0 {
		return fmt.Errorf("search.embedding-dim must be positive")
	}
	if o.Search.GraphMaxDepth < 1 {
		return fmt.Errorf("search.graph-max-depth must be at least 1")
	}
	return nil
}
