package main

import (
	"fmt"
	"strings"

	"github.com/EchoTools/resedit/pkg/archive"
	"github.com/EchoTools/resedit/pkg/resource"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "RESEDIT"

// Config keys.
const (
	cfgLogLevel     = "log.level"
	cfgArchiveCodec = "archive.codec"
	cfgArchiveLevel = "archive.level"
	cfgFormat       = "format"
)

// app carries state shared by the subcommands of one invocation.
type app struct {
	v      *viper.Viper
	log    *zap.Logger
	loader *resource.Loader
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	var configFile string

	root := &cobra.Command{
		Use:           "resedit",
		Short:         "Binary game resource editor",
		Long:          `resedit parses game resource files into structure trees, shows them and edits them while keeping every offset, count and size consistent.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(configFile)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Config file (yaml, json or toml)")
	flags.String("log-level", "warn", "Log level: debug, info, warn, error")
	flags.String("codec", "zstd", "Archive codec for packed output: zstd, lz4")
	flags.Int("level", archive.DefaultCompressionLevel, "Archive compression level")
	flags.String("format", "", "Resource format: item, manifest (detected when empty)")

	_ = a.v.BindPFlag(cfgLogLevel, flags.Lookup("log-level"))
	_ = a.v.BindPFlag(cfgArchiveCodec, flags.Lookup("codec"))
	_ = a.v.BindPFlag(cfgArchiveLevel, flags.Lookup("level"))
	_ = a.v.BindPFlag(cfgFormat, flags.Lookup("format"))

	root.AddCommand(
		newDumpCommand(a),
		newFindCommand(a),
		newAddEffectCommand(a),
		newRemoveCommand(a),
		newPackCommand(a),
		newUnpackCommand(a),
	)
	return root
}

func (a *app) init(configFile string) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if configFile != "" {
		a.v.SetConfigFile(configFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	log, err := newLogger(a.v.GetString(cfgLogLevel))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	a.log = log
	a.loader = resource.NewLoader(
		resource.WithLogger(log),
		resource.WithCompressionLevel(a.v.GetInt(cfgArchiveLevel)),
	)
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	c := zap.NewProductionConfig()
	c.Level = zap.NewAtomicLevelAt(lvl)
	c.Encoding = "console"
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	c.OutputPaths = []string{"stderr"}
	c.ErrorOutputPaths = []string{"stderr"}
	c.Sampling = nil
	return c.Build()
}

func (a *app) format() (resource.Format, error) {
	return resource.ParseFormat(a.v.GetString(cfgFormat))
}

func (a *app) codec() (archive.Codec, error) {
	return archive.ParseCodec(a.v.GetString(cfgArchiveCodec))
}

func (a *app) load(path string) (*resource.Resource, error) {
	format, err := a.format()
	if err != nil {
		return nil, err
	}
	return a.loader.Load(path, format)
}
