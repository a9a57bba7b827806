package neo4j

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

// Options defines configuration options for Neo4j.
type Options struct {
	// URI is the bolt/neo4j connection URI.
	URI      string `json:"uri" mapstructure:"uri"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"-" mapstructure:"password"`
	// Database is the target database name; empty means the server default.
	Database              string        `json:"database" mapstructure:"database"`
	MaxConnectionPoolSize int           `json:"max-connection-pool-size" mapstructure:"max-connection-pool-size"`
	ConnectionTimeout     time.Duration `json:"connection-timeout" mapstructure:"connection-timeout"`
	// Enabled toggles the graph store; when false the service runs
	// without graph evidence.
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		URI:                   "bolt://localhost:7687",
		Username:              "neo4j",
		MaxConnectionPoolSize: 50,
		ConnectionTimeout:     5 * time.Second,
		Enabled:               true,
	}
}

// Validate checks if the options are valid. An empty password falls
// back to the NEO4J_PASSWORD environment variable.
func (o *Options) Validate() error {
	if !o.Enabled {
		return nil
	}
	if o.Password == "" {
		o.Password = os.Getenv("NEO4J_PASSWORD")
	}
	if o.Password != "" && os.Getenv("NEO4J_PASSWORD") == "" {
		fmt.Fprintf(os.Stderr, "WARNING: Passing Neo4j password via CLI is insecure. Use NEO4J_PASSWORD environment variable instead.\n")
	}
	if o.URI == "" {
		return fmt.Errorf("neo4j uri is required")
	}
	return nil
}

// AddFlags adds flags for Neo4j options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, namePrefix string) {
	fs.BoolVar(&o.Enabled, namePrefix+"enabled", o.Enabled, "Enable the Neo4j graph store")
	fs.StringVar(&o.URI, namePrefix+"uri", o.URI, "Neo4j connection URI")
	fs.StringVar(&o.Username, namePrefix+"username", o.Username, "Neo4j username")
	fs.StringVar(&o.Password, namePrefix+"password", o.Password, "Neo4j password (DEPRECATED: use NEO4J_PASSWORD env var instead)")
	fs.StringVar(&o.Database, namePrefix+"database", o.Database, "Neo4j database name")
	fs.IntVar(&o.MaxConnectionPoolSize, namePrefix+"max-connection-pool-size", o.MaxConnectionPoolSize, "Neo4j max connection pool size")
	fs.DurationVar(&o.ConnectionTimeout, namePrefix+"connection-timeout", o.ConnectionTimeout, "Neo4j connection timeout")
}
