// Package redis provides a Redis client component.
package redis

import (
	"context"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

// Options defines configuration options for Redis.
type Options struct {
	Host         string `json:"host" mapstructure:"host"`
	Port         int    `json:"port" mapstructure:"port"`
	Password     string `json:"-" mapstructure:"password"`
	Database     int    `json:"database" mapstructure:"database"`
	MaxRetries   int    `json:"max-retries" mapstructure:"max-retries"`
	PoolSize     int    `json:"pool-size" mapstructure:"pool-size"`
	MinIdleConns int    `json:"min-idle-conns" mapstructure:"min-idle-conns"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Host:         "localhost",
		Port:         6379,
		Database:     0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 5,
	}
}

// Validate checks if the options are valid. An empty password falls
// back to the REDIS_PASSWORD environment variable.
func (o *Options) Validate() error {
	if o.Password == "" {
		o.Password = os.Getenv("REDIS_PASSWORD")
	}
	if o.Host == "" {
		return fmt.Errorf("redis host is required")
	}
	return nil
}

// AddFlags adds flags for Redis options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, namePrefix string) {
	fs.StringVar(&o.Host, namePrefix+"host", o.Host, "Redis host")
	fs.IntVar(&o.Port, namePrefix+"port", o.Port, "Redis port")
	fs.StringVar(&o.Password, namePrefix+"password", o.Password, "Redis password (DEPRECATED: use REDIS_PASSWORD env var instead)")
	fs.IntVar(&o.Database, namePrefix+"database", o.Database, "Redis database number")
	fs.IntVar(&o.MaxRetries, namePrefix+"max-retries", o.MaxRetries, "Redis max retries")
	fs.IntVar(&o.PoolSize, namePrefix+"pool-size", o.PoolSize, "Redis connection pool size")
	fs.IntVar(&o.MinIdleConns, namePrefix+"min-idle-conns", o.MinIdleConns, "Redis minimum idle connections")
}

// New creates a Redis client and verifies connectivity.
func New(ctx context.Context, opts *Options) (*goredis.Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("redis options cannot be nil")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis options: %w", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Password:     opts.Password,
		DB:           opts.Database,
		MaxRetries:   opts.MaxRetries,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
