// Package config is for the command line settings that are unmarshalled
// from viper (see: cmd/metal). Values come from flags, METAL_ environment
// variables and an optional config file, in that order of precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/hupe1980/metal/blobstore"
	"github.com/hupe1980/metal/blobstore/minio"
	"github.com/hupe1980/metal/blobstore/s3"
	"github.com/hupe1980/metal/index"
	"github.com/hupe1980/metal/persistence"
	"github.com/hupe1980/metal/reads"
	"github.com/hupe1980/metal/resource"
)

// EnvPrefix prefixes every environment variable, e.g. METAL_INDEX_KMER_LEN.
const EnvPrefix = "METAL"

// IndexConfig are the settings of the index command.
type IndexConfig struct {
	// FASTA reference to index
	Ref string `mapstructure:"ref"`

	// index file, or blob name when a store is configured
	Out string `mapstructure:"out"`

	KmerLen    int  `mapstructure:"kmer-len"`
	ReadLen    int  `mapstructure:"read-len"`
	Mismatches int  `mapstructure:"mismatches"`
	Cutoff     int  `mapstructure:"cutoff"`
	HashBits   int  `mapstructure:"hash-bits"`
	Lossless   bool `mapstructure:"lossless"`

	// none, lz4 or zstd
	Compression string `mapstructure:"compression"`

	Threads int `mapstructure:"threads"`
}

// AlignConfig are the settings of the align command.
type AlignConfig struct {
	// index file, or blob name when a store is configured
	Index string `mapstructure:"index"`

	// FASTQ or FASTA reads
	Reads string `mapstructure:"reads"`

	// output TSV, "-" for stdout
	Out string `mapstructure:"out"`

	// optional per-read statistics TSV
	Stats string `mapstructure:"stats"`

	Threads   int `mapstructure:"threads"`
	BatchSize int `mapstructure:"batch-size"`

	// report every candidate instead of the best one
	All bool `mapstructure:"all"`
}

// StoreConfig selects where indexes are kept.
type StoreConfig struct {
	// "" or "local" for files, "s3" or "minio"
	Kind string `mapstructure:"kind"`

	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path-style"`
	AccessKey string `mapstructure:"access-key"`
	SecretKey string `mapstructure:"secret-key"`
	TLS       bool   `mapstructure:"tls"`
}

// ResourceConfig bounds what a run may use. All zero means unlimited.
type ResourceConfig struct {
	MemoryLimit     int64 `mapstructure:"memory-limit"`
	InflightBatches int64 `mapstructure:"inflight-batches"`
	IOLimit         int64 `mapstructure:"io-limit"`
}

// Config is the root-level settings struct.
type Config struct {
	// debug, info, warn or error
	LogLevel string `mapstructure:"log-level"`

	// text or json
	LogFormat string `mapstructure:"log-format"`

	Index     IndexConfig
	Align     AlignConfig
	Store     StoreConfig
	Resources ResourceConfig
}

// New returns a viper instance with the defaults and environment binding
// set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	p := index.DefaultParams()
	threads := runtime.GOMAXPROCS(0)

	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")

	v.SetDefault("index.ref", "")
	v.SetDefault("index.out", "")
	v.SetDefault("index.kmer-len", p.KmerLen)
	v.SetDefault("index.read-len", p.ReadLen)
	v.SetDefault("index.mismatches", p.Mismatches)
	v.SetDefault("index.cutoff", p.KmerCutoff)
	v.SetDefault("index.hash-bits", p.HashBits)
	v.SetDefault("index.lossless", p.Lossless)
	v.SetDefault("index.compression", persistence.CompressionLZ4.String())
	v.SetDefault("index.threads", threads)

	v.SetDefault("align.index", "")
	v.SetDefault("align.reads", "")
	v.SetDefault("align.out", "-")
	v.SetDefault("align.stats", "")
	v.SetDefault("align.threads", threads)
	v.SetDefault("align.batch-size", reads.DefaultBatchSize)
	v.SetDefault("align.all", false)

	for _, key := range []string{"kind", "bucket", "prefix", "region", "endpoint", "access-key", "secret-key"} {
		v.SetDefault("store."+key, "")
	}
	v.SetDefault("store.path-style", false)
	v.SetDefault("store.tls", false)

	v.SetDefault("resources.memory-limit", 0)
	v.SetDefault("resources.inflight-batches", 0)
	v.SetDefault("resources.io-limit", 0)
	return v
}

// ReadFile merges the config file at path (yaml, toml or json) into v.
func ReadFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return nil
}

// Load unmarshals the settings of v.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("config: unable to decode: %w", err)
	}
	return c, nil
}

// Params returns the index parameters.
func (c IndexConfig) Params() index.Params {
	return index.Params{
		KmerLen:    c.KmerLen,
		ReadLen:    c.ReadLen,
		Mismatches: c.Mismatches,
		KmerCutoff: c.Cutoff,
		HashBits:   c.HashBits,
		Lossless:   c.Lossless,
	}
}

// Codec returns the configured index compression.
func (c IndexConfig) Codec() (persistence.Compression, error) {
	comp, err := persistence.ParseCompression(c.Compression)
	if err != nil {
		return comp, fmt.Errorf("config: %w", err)
	}
	return comp, nil
}

// Level parses the log level.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("config: log-level: %w", err)
	}
	return l, nil
}

// Controller returns a resource controller, or nil if no limit is set.
func (c ResourceConfig) Controller() *resource.Controller {
	if c == (ResourceConfig{}) {
		return nil
	}
	return resource.NewController(resource.Config{
		MemoryLimitBytes:   c.MemoryLimit,
		MaxInflightBatches: c.InflightBatches,
		IOLimitBytesPerSec: c.IOLimit,
	})
}

// ErrNoBucket is returned for a remote store without a bucket.
var ErrNoBucket = errors.New("config: store bucket is required")

// Open connects to the configured store. It returns nil for local files.
func (c StoreConfig) Open(ctx context.Context) (blobstore.Store, error) {
	kind := strings.ToLower(c.Kind)
	if kind == "" || kind == "local" {
		return nil, nil
	}
	if c.Bucket == "" {
		return nil, ErrNoBucket
	}

	switch kind {
	case "s3":
		opts := []s3.Option{s3.WithPrefix(c.Prefix)}
		if c.Region != "" {
			opts = append(opts, s3.WithRegion(c.Region))
		}
		if c.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(c.Endpoint, c.PathStyle))
		}
		store, err := s3.New(ctx, c.Bucket, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "minio":
		if c.Endpoint == "" {
			return nil, errors.New("config: minio store requires an endpoint")
		}
		opts := []minio.DialOption{minio.WithPrefix(c.Prefix)}
		if c.AccessKey != "" {
			opts = append(opts, minio.WithCredentials(c.AccessKey, c.SecretKey))
		}
		if c.Region != "" {
			opts = append(opts, minio.WithRegion(c.Region))
		}
		if c.TLS {
			opts = append(opts, minio.WithTLS())
		}
		store, err := minio.Dial(c.Endpoint, c.Bucket, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("config: unknown store %q", c.Kind)
	}
}
