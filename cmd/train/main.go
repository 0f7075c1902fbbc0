// Command train runs the training pipeline outside the HTTP server.
//
//	$ train run -source data/laptop_data.csv -publish always
//	$ train check -config lapprice.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gonuts/commander"

	app "github.com/okian/lapprice/internal/app"
	"github.com/okian/lapprice/internal/config"
	"github.com/okian/lapprice/internal/domain/estimator"
	"github.com/okian/lapprice/internal/schema"
	"github.com/okian/lapprice/pkg/logger"
)

const defaultTimeout = 30 * time.Minute

type options struct {
	configPath string
	sourcePath string
	publish    string
	output     string
	timeout    time.Duration
}

func main() {
	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd(os.Stdout).Dispatch(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootCmd builds the command tree. Reports and summaries go to stdout.
func rootCmd(stdout io.Writer) *commander.Command {
	root := &commander.Command{
		UsageLine:   "train <command> [options]",
		Short:       "laptop price model training",
		Subcommands: []*commander.Command{runCmd(), checkCmd()},
		Flag:        *flag.NewFlagSet("train", flag.ContinueOnError),
		Stdout:      stdout,
	}
	for _, sub := range root.Subcommands {
		sub.Stdout = stdout
	}
	return root
}

func bindCommon(fs *flag.FlagSet, o *options) {
	fs.StringVar(&o.configPath, "config", "", "YAML config file (overrides LAPPRICE_CONFIG)")
	fs.StringVar(&o.sourcePath, "source", "", "CSV dataset path (forces source_kind=csv)")
	fs.StringVar(&o.publish, "publish", "", "Publish policy: on_accept or always")
}

func runCmd() *commander.Command {
	o := &options{}
	cmd := &commander.Command{
		UsageLine: "run [-config file] [-source csv] [-publish policy] [-output file]",
		Short:     "runs the pipeline once and prints the run report",
		Long: `
runs ingestion, validation, transformation, training, evaluation and
publishing once. The JSON run report is written even when a stage fails.
`,
		Flag: *flag.NewFlagSet("run", flag.ContinueOnError),
	}
	bindCommon(&cmd.Flag, o)
	cmd.Flag.StringVar(&o.output, "output", "", "Write the report to this file instead of stdout")
	cmd.Flag.DurationVar(&o.timeout, "timeout", defaultTimeout, "Upper bound for the whole run")
	cmd.Run = func(c *commander.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(c.Context(), o.timeout)
		defer cancel()

		cfg, err := loadConfig(ctx, o)
		if err != nil {
			return err
		}
		w := c.Stdout
		if o.output != "" {
			f, err := os.Create(o.output)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		return train(ctx, cfg, w)
	}
	return cmd
}

func checkCmd() *commander.Command {
	o := &options{}
	cmd := &commander.Command{
		UsageLine: "check [-config file] [-source csv] [-publish policy]",
		Short:     "validates the configuration, schema and model parameters",
		Flag:      *flag.NewFlagSet("check", flag.ContinueOnError),
	}
	bindCommon(&cmd.Flag, o)
	cmd.Run = func(c *commander.Command, _ []string) error {
		ctx := c.Context()
		cfg, err := loadConfig(ctx, o)
		if err != nil {
			return err
		}
		return check(ctx, cfg, c.Stdout)
	}
	return cmd
}

// loadConfig layers the flags over the usual config sources.
func loadConfig(ctx context.Context, o *options) (*config.Config, error) {
	if o.configPath != "" {
		if err := os.Setenv("LAPPRICE_CONFIG", o.configPath); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if o.sourcePath != "" {
		cfg.SourceKind, cfg.SourcePath = config.SourceCSV, o.sourcePath
	}
	if o.publish != "" {
		cfg.PublishPolicy = o.publish
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

// check loads both documents and builds the configured estimator without
// touching any store.
func check(ctx context.Context, cfg *config.Config, w io.Writer) error {
	s, err := schema.Load(ctx, cfg.SchemaPath)
	if err != nil {
		return err
	}
	m, err := schema.LoadModel(ctx, cfg.ModelSchemaPath)
	if err != nil {
		return err
	}
	est, err := estimator.New(m.Name, m.Params)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "ok: %d raw columns, %d features, target %s, model %s\n",
		len(s.Columns()), len(s.PredictColumns()), s.Target(), est.Name())
	return err
}

// train runs the pipeline once and writes the report to w.
func train(ctx context.Context, cfg *config.Config, w io.Writer) error {
	log := logger.Get().Named("train")

	wiring, err := app.FromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = wiring.Close(context.Background()) }()

	svc := app.New(append(wiring.Options, app.WithLogger(log))...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	rep, runErr := svc.Train(ctx)
	if rep != nil {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	}
	return runErr
}
