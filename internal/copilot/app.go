package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kart-io/adas-copilot/internal/copilot/biz"
	"github.com/kart-io/adas-copilot/internal/copilot/handler"
	"github.com/kart-io/adas-copilot/internal/copilot/router"
	"github.com/kart-io/adas-copilot/internal/copilot/store"
	neo4jcomp "github.com/kart-io/adas-copilot/pkg/component/neo4j"
	postgrescomp "github.com/kart-io/adas-copilot/pkg/component/postgres"
	rediscomp "github.com/kart-io/adas-copilot/pkg/component/redis"
)

const (
	appName        = "adas-copilot"
	appDescription = `ADAS Diagnostics Copilot Retrieval Service

The hybrid retrieval and ranking service backing the automotive
diagnostics assistant.

This server provides:
  - Lexical, vector and hybrid search over ingested documents
  - Bounded-depth knowledge graph traversal for related entities,
    dependencies and system hierarchies
  - Structured, always-well-formed responses for the agent layer`
)

// NewCommand creates the root cobra command.
func NewCommand() *cobra.Command {
	opts := NewOptions()
	var configFile string

	cmd := &cobra.Command{
		Use:          appName,
		Short:        "ADAS diagnostics copilot retrieval service",
		Long:         appDescription,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				viper.SetConfigFile(configFile)
				if err := viper.ReadInConfig(); err != nil {
					return fmt.Errorf("failed to read config file: %w", err)
				}
				if err := viper.Unmarshal(opts); err != nil {
					return fmt.Errorf("failed to unmarshal config: %w", err)
				}
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			return Run(opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the configuration file")
	opts.AddFlags(cmd.PersistentFlags())

	viper.SetEnvPrefix("COPILOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	return cmd
}

// Run runs the copilot service with the given options.
func Run(opts *Options) error {
	// 1. 初始化日志
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting copilot retrieval service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 2. 初始化文档存储
	pgClient, err := postgrescomp.NewWithContext(ctx, opts.Postgres)
	if err != nil {
		return fmt.Errorf("failed to initialize postgres: %w", err)
	}
	defer func() { _ = pgClient.Close() }()
	docStore := store.NewPostgresStore(pgClient.DB(), opts.Search.EmbeddingDim)
	logger.Info("Document store initialized")

	// 3. 初始化图谱存储。图谱是可选证据源,连接失败不阻止启动。
	var graphStore store.GraphStore
	if opts.Neo4j.Enabled {
		neoClient, err := neo4jcomp.NewWithContext(ctx, opts.Neo4j)
		if err != nil {
			logger.Warnw("graph store unavailable, continuing without graph evidence", "error", err.Error())
		} else {
			defer func() { _ = neoClient.Close(context.Background()) }()
			graphStore = store.NewNeo4jGraph(neoClient.Driver(), neoClient.Database())
			logger.Info("Graph store initialized")
		}
	}

	// 4. 初始化缓存
	var cache *biz.SearchCache
	if opts.Cache.Enabled {
		redisClient, err := rediscomp.New(ctx, opts.Cache.Redis)
		if err != nil {
			logger.Warnw("redis unavailable, running without search cache", "error", err.Error())
		} else {
			defer func() { _ = redisClient.Close() }()
			cache = biz.NewSearchCache(redisClient, &biz.SearchCacheConfig{
				Enabled:   true,
				TTL:       opts.Cache.TTL,
				KeyPrefix: opts.Cache.KeyPrefix,
			})
			logger.Info("Search cache initialized")
		}
	}

	// 5. 初始化 Biz 层
	expander := biz.NewGraphExpander(graphStore, &biz.GraphExpanderConfig{
		Timeout:         opts.Search.GraphTimeout,
		DefaultMaxDepth: opts.Search.GraphMaxDepth,
	})
	service := biz.NewService(docStore, expander, cache, &biz.SearcherConfig{
		DefaultMaxResults: opts.Search.MaxResults,
	})
	logger.Info("Search service initialized")

	// 6. 初始化 Handler 层并注册路由
	server := NewServer(opts.HTTP)
	router.Register(server.Engine(),
		handler.NewSearchHandler(service),
		handler.NewGraphHandler(service),
		handler.NewDocumentHandler(service),
	)

	// 7. 启动服务器
	logger.Info("Copilot retrieval service is ready")
	return server.Run()
}
