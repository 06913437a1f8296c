package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hupe1980/metal"
	"github.com/hupe1980/metal/internal/config"
	"github.com/hupe1980/metal/persistence"
)

const version = "0.1.0"

// app carries the state shared by the subcommands.
type app struct {
	v   *viper.Viper
	cfg config.Config
	log *metal.Logger
}

// newRootCmd represents the base command when called without any subcommands.
func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "metal",
		Short: "Seed bisulfite sequencing reads against a meta-CpG index",
		Long: `Build an index of the k-mers around the CpGs of a reference genome and
match bisulfite converted reads against it.

Every flag can also be set with a METAL_ environment variable, e.g.
METAL_INDEX_KMER_LEN or METAL_STORE_BUCKET, or in a config file.`,
		Version:           version + " " + persistence.PlatformInfo(),
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}

	f := root.PersistentFlags()
	f.String("config", "", "config file (yaml, toml or json)")
	f.String("log-level", "info", "log level: debug, info, warn or error")
	f.String("log-format", "text", "log format: text or json")
	f.String("store", "", "index store: local, s3 or minio (default local files)")
	f.String("bucket", "", "bucket of the s3 or minio store")
	f.String("prefix", "", "key prefix within the bucket")
	f.String("region", "", "store region")
	f.String("endpoint", "", "store endpoint, required for minio")
	f.Int64("memory-limit", 0, "memory limit in bytes for the index and in-flight batches (0: unlimited)")
	f.Int64("inflight-batches", 0, "read batches held in memory at once (0: 1)")
	f.Int64("io-limit", 0, "index transfer limit in bytes per second (0: unlimited)")

	a.bind(f, map[string]string{
		"log-level":        "log-level",
		"log-format":       "log-format",
		"store":            "store.kind",
		"bucket":           "store.bucket",
		"prefix":           "store.prefix",
		"region":           "store.region",
		"endpoint":         "store.endpoint",
		"memory-limit":     "resources.memory-limit",
		"inflight-batches": "resources.inflight-batches",
		"io-limit":         "resources.io-limit",
	})

	root.AddCommand(newIndexCmd(a), newAlignCmd(a))
	return root
}

// bind ties flags to viper keys so that flags take precedence over the
// environment and the config file.
func (a *app) bind(f *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := a.v.BindPFlag(key, f.Lookup(name)); err != nil {
			panic(err) // flag and key tables are static
		}
	}
}

// bindAll binds every flag of f under section, e.g. "index.kmer-len".
func (a *app) bindAll(f *pflag.FlagSet, section string) {
	keys := make(map[string]string)
	f.VisitAll(func(fl *pflag.Flag) {
		keys[fl.Name] = section + "." + fl.Name
	})
	a.bind(f, keys)
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := config.ReadFile(a.v, path); err != nil {
			return err
		}
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.log, err = newLogger(cmd.ErrOrStderr(), cfg)
	return err
}

func newLogger(w io.Writer, cfg config.Config) (*metal.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return metal.NewLogger(slog.NewJSONHandler(w, opts)), nil
	}
	return metal.NewLogger(slog.NewTextHandler(w, opts)), nil
}

// options returns the metal options shared by the subcommands.
func (a *app) options(cmd *cobra.Command, workers int) ([]metal.Option, error) {
	opts := []metal.Option{
		metal.WithLogger(a.log),
		metal.WithWorkers(workers),
	}
	store, err := a.cfg.Store.Open(cmd.Context())
	if err != nil {
		return nil, err
	}
	if store != nil {
		opts = append(opts, metal.WithStore(store))
	}
	if rc := a.cfg.Resources.Controller(); rc != nil {
		opts = append(opts, metal.WithResourceController(rc))
	}
	return opts, nil
}
