package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment namespace for every configuration key.
const EnvPrefix = "OPENALEPH_SEARCH"

// MaxPage caps offset+limit pagination against deep result windows.
const MaxPage = 9999

// ErrInvalidConfig indicates a configuration that cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete runtime configuration. YAML tags mirror the
// mapstructure keys, so a dumped configuration reads back as a config
// file.
type Config struct {
	// Cluster connection.
	URI            string        `mapstructure:"uri"             yaml:"uri"`
	Username       string        `mapstructure:"username"        yaml:"username"`
	Password       string        `mapstructure:"password"        yaml:"password"`
	Timeout        time.Duration `mapstructure:"timeout"         yaml:"timeout"`
	MaxRetries     int           `mapstructure:"max-retries"     yaml:"max-retries"`
	RetryOnTimeout bool          `mapstructure:"retry-on-timeout" yaml:"retry-on-timeout"`

	// Testing collapses every index to one shard without replicas.
	Testing bool `mapstructure:"testing" yaml:"testing"`

	// Indexer pipeline.
	IndexerConcurrency   int `mapstructure:"indexer-concurrency"     yaml:"indexer-concurrency"`
	IndexerChunkSize     int `mapstructure:"indexer-chunk-size"      yaml:"indexer-chunk-size"`
	IndexerMaxChunkBytes int `mapstructure:"indexer-max-chunk-bytes" yaml:"indexer-max-chunk-bytes"`

	// Index layout.
	IndexPrefix             string   `mapstructure:"index-prefix"                    yaml:"index-prefix"`
	IndexWrite              string   `mapstructure:"index-write"                     yaml:"index-write"`
	IndexRead               []string `mapstructure:"index-read"                      yaml:"index-read"`
	IndexShards             int      `mapstructure:"index-shards"                    yaml:"index-shards"`
	IndexReplicas           int      `mapstructure:"index-replicas"                  yaml:"index-replicas"`
	IndexNamespaceIDs       bool     `mapstructure:"index-namespace-ids"             yaml:"index-namespace-ids"`
	IndexRefreshInterval    string   `mapstructure:"index-refresh-interval"          yaml:"index-refresh-interval"`
	IndexExpandClauseLimit  int      `mapstructure:"index-expand-clause-limit"       yaml:"index-expand-clause-limit"`
	IndexDeleteByQueryBatch int      `mapstructure:"index-delete-by-query-batchsize" yaml:"index-delete-by-query-batchsize"`

	// Per-bucket score boosts.
	IndexBoostThings    float64 `mapstructure:"index-boost-things"    yaml:"index-boost-things"`
	IndexBoostIntervals float64 `mapstructure:"index-boost-intervals" yaml:"index-boost-intervals"`
	IndexBoostDocuments float64 `mapstructure:"index-boost-documents" yaml:"index-boost-documents"`
	IndexBoostPages     float64 `mapstructure:"index-boost-pages"     yaml:"index-boost-pages"`

	// Query behavior.
	ContentTermVectors bool `mapstructure:"content-term-vectors" yaml:"content-term-vectors"`
	QueryFunctionScore bool `mapstructure:"query-function-score" yaml:"query-function-score"`

	// Authorization.
	SearchAuth      bool   `mapstructure:"search-auth"       yaml:"search-auth"`
	SearchAuthField string `mapstructure:"search-auth-field" yaml:"search-auth-field"`

	// Highlighting.
	HighlighterFVHEnabled        bool `mapstructure:"highlighter-fvh-enabled"         yaml:"highlighter-fvh-enabled"`
	HighlighterFragmentSize      int  `mapstructure:"highlighter-fragment-size"       yaml:"highlighter-fragment-size"`
	HighlighterNumberOfFragments int  `mapstructure:"highlighter-number-of-fragments" yaml:"highlighter-number-of-fragments"`
	HighlighterPhraseLimit       int  `mapstructure:"highlighter-phrase-limit"        yaml:"highlighter-phrase-limit"`
	HighlighterBoundaryMaxScan   int  `mapstructure:"highlighter-boundary-max-scan"   yaml:"highlighter-boundary-max-scan"`
	HighlighterNoMatchSize       int  `mapstructure:"highlighter-no-match-size"       yaml:"highlighter-no-match-size"`
	HighlighterMaxAnalyzedOffset int  `mapstructure:"highlighter-max-analyzed-offset" yaml:"highlighter-max-analyzed-offset"`

	// Significant terms aggregations.
	SignificantSamplerSize      int  `mapstructure:"significant-terms-sampler-size"           yaml:"significant-terms-sampler-size"`
	SignificantMinDocCount      int  `mapstructure:"significant-terms-min-doc-count"          yaml:"significant-terms-min-doc-count"`
	SignificantShardMinDocCount int  `mapstructure:"significant-terms-shard-min-doc-count"    yaml:"significant-terms-shard-min-doc-count"`
	SignificantRandomSampler    bool `mapstructure:"significant-terms-random-sampler"         yaml:"significant-terms-random-sampler"`
	SignificantRandomTarget     int  `mapstructure:"significant-terms-random-sampler-target"  yaml:"significant-terms-random-sampler-target"`
}

// New returns a Config holding the documented defaults.
func New() *Config {
	cfg := &Config{}

	fs := pflag.NewFlagSet("settings", pflag.ContinueOnError)
	cfg.RegisterFlags(fs)

	return cfg
}

// RegisterFlags registers every configuration key on the flag set and
// writes the defaults into cfg.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.URI, "uri", "http://localhost:9200",
		"Cluster URL, comma-separated for multiple nodes")
	fs.StringVar(&c.Username, "username", "",
		"Basic auth username for the cluster")
	fs.StringVar(&c.Password, "password", "",
		"Basic auth password for the cluster")
	fs.DurationVar(&c.Timeout, "timeout", 60*time.Second,
		"Request timeout against the cluster")
	fs.IntVar(&c.MaxRetries, "max-retries", 3,
		"Transport retries per request")
	fs.BoolVar(&c.RetryOnTimeout, "retry-on-timeout", true,
		"Retry requests that timed out")

	fs.BoolVar(&c.Testing, "testing", false,
		"Single-shard test mode")

	fs.IntVar(&c.IndexerConcurrency, "indexer-concurrency", 8,
		"Bulk indexer worker count")
	fs.IntVar(&c.IndexerChunkSize, "indexer-chunk-size", 1000,
		"Actions per bulk request")
	fs.IntVar(&c.IndexerMaxChunkBytes, "indexer-max-chunk-bytes", 5*1024*1024,
		"Payload bytes per bulk request")

	fs.StringVar(&c.IndexPrefix, "index-prefix", "openaleph",
		"Prefix shared by all index names")
	fs.StringVar(&c.IndexWrite, "index-write", "v1",
		"Index version receiving writes")
	fs.StringSliceVar(&c.IndexRead, "index-read", []string{"v1"},
		"Index versions served to queries")
	fs.IntVar(&c.IndexShards, "index-shards", 10,
		"Shard count before bucket scaling")
	fs.IntVar(&c.IndexReplicas, "index-replicas", 0,
		"Replica count per index")
	fs.BoolVar(&c.IndexNamespaceIDs, "index-namespace-ids", true,
		"Namespace document ids by dataset")
	fs.StringVar(&c.IndexRefreshInterval, "index-refresh-interval", "1s",
		"Index refresh interval")
	fs.IntVar(&c.IndexExpandClauseLimit, "index-expand-clause-limit", 10,
		"Schema expansion limit for read index lists")
	fs.IntVar(&c.IndexDeleteByQueryBatch, "index-delete-by-query-batchsize", 100,
		"Scroll batch size for delete-by-query")

	fs.Float64Var(&c.IndexBoostThings, "index-boost-things", 1,
		"Score boost for the things bucket")
	fs.Float64Var(&c.IndexBoostIntervals, "index-boost-intervals", 1,
		"Score boost for the intervals bucket")
	fs.Float64Var(&c.IndexBoostDocuments, "index-boost-documents", 1,
		"Score boost for the documents bucket")
	fs.Float64Var(&c.IndexBoostPages, "index-boost-pages", 1,
		"Score boost for the pages bucket")

	fs.BoolVar(&c.ContentTermVectors, "content-term-vectors", true,
		"Store term vectors with offsets on the content field")
	fs.BoolVar(&c.QueryFunctionScore, "query-function-score", true,
		"Wrap entity queries in a function_score")

	fs.BoolVar(&c.SearchAuth, "search-auth", false,
		"Require authorization context on queries")
	fs.StringVar(&c.SearchAuthField, "search-auth-field", "dataset",
		"Field carrying the authorization scope")

	fs.BoolVar(&c.HighlighterFVHEnabled, "highlighter-fvh-enabled", true,
		"Use the fast vector highlighter on content")
	fs.IntVar(&c.HighlighterFragmentSize, "highlighter-fragment-size", 200,
		"Highlight fragment size")
	fs.IntVar(&c.HighlighterNumberOfFragments, "highlighter-number-of-fragments", 3,
		"Highlight fragments per field, 0 for full text")
	fs.IntVar(&c.HighlighterPhraseLimit, "highlighter-phrase-limit", 64,
		"Phrases considered by the highlighter")
	fs.IntVar(&c.HighlighterBoundaryMaxScan, "highlighter-boundary-max-scan", 100,
		"Boundary scanner range")
	fs.IntVar(&c.HighlighterNoMatchSize, "highlighter-no-match-size", 300,
		"Leading text returned when nothing matches")
	fs.IntVar(&c.HighlighterMaxAnalyzedOffset, "highlighter-max-analyzed-offset", 999999,
		"Analyzed offset cap per field")

	fs.IntVar(&c.SignificantSamplerSize, "significant-terms-sampler-size", 10000,
		"Sampler shard size for significant terms")
	fs.IntVar(&c.SignificantMinDocCount, "significant-terms-min-doc-count", 3,
		"Minimum document count for significant terms")
	fs.IntVar(&c.SignificantShardMinDocCount, "significant-terms-shard-min-doc-count", 1,
		"Per-shard minimum document count for significant terms")
	fs.BoolVar(&c.SignificantRandomSampler, "significant-terms-random-sampler", false,
		"Use a random sampler for significant terms")
	fs.IntVar(&c.SignificantRandomTarget, "significant-terms-random-sampler-target", 50000,
		"Document target for the random sampler probability")
}

// RegisterCompletions registers shell completions for flags whose values
// come from a fixed set.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc("search-auth-field",
		cobra.FixedCompletions([]string{"dataset", "collection_id"}, cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering search-auth-field completion: %w", err)
	}

	err = cmd.RegisterFlagCompletionFunc("index-refresh-interval",
		cobra.FixedCompletions([]string{"1s", "30s", "-1"}, cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering index-refresh-interval completion: %w", err)
	}

	return nil
}

// FromEnv builds a Config from defaults overridden by environment
// variables.
func FromEnv() (*Config, error) {
	return Load("")
}

// Load builds a Config from defaults, an optional YAML file, and the
// environment, in increasing precedence.
func Load(file string) (*Config, error) {
	fs := pflag.NewFlagSet("settings", pflag.ContinueOnError)
	(&Config{}).RegisterFlags(fs)

	return LoadFlags(file, fs)
}

// LoadFlags builds a Config from defaults, an optional YAML file, the
// environment, and explicitly set flags, in increasing precedence. fs
// must carry the flags added by [Config.RegisterFlags]; flags left at
// their defaults yield to file and environment values.
func LoadFlags(file string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if file != "" {
		v.SetConfigFile(file)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the rest of the system cannot run on.
func (c *Config) Validate() error {
	switch {
	case c.URI == "":
		return fmt.Errorf("%w: empty cluster URI", ErrInvalidConfig)
	case c.IndexPrefix == "":
		return fmt.Errorf("%w: empty index prefix", ErrInvalidConfig)
	case c.IndexWrite == "":
		return fmt.Errorf("%w: empty write version", ErrInvalidConfig)
	case len(c.IndexRead) == 0:
		return fmt.Errorf("%w: no read versions", ErrInvalidConfig)
	case c.IndexShards < 1:
		return fmt.Errorf("%w: index shards must be positive", ErrInvalidConfig)
	case c.IndexerConcurrency < 1:
		return fmt.Errorf("%w: indexer concurrency must be positive", ErrInvalidConfig)
	case c.IndexerChunkSize < 1:
		return fmt.Errorf("%w: indexer chunk size must be positive", ErrInvalidConfig)
	case c.IndexerMaxChunkBytes < 1:
		return fmt.Errorf("%w: indexer chunk bytes must be positive", ErrInvalidConfig)
	}

	return nil
}

// Addresses splits the configured URI into cluster node addresses.
func (c *Config) Addresses() []string {
	parts := strings.Split(c.URI, ",")

	addresses := make([]string, 0, len(parts))

	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			addresses = append(addresses, part)
		}
	}

	return addresses
}

// BoostFor returns the configured score boost for an index bucket name.
func (c *Config) BoostFor(bucket string) float64 {
	switch bucket {
	case "things":
		return c.IndexBoostThings
	case "intervals":
		return c.IndexBoostIntervals
	case "documents":
		return c.IndexBoostDocuments
	case "pages":
		return c.IndexBoostPages
	}

	return 1
}
