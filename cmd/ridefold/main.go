// Command ridefold runs one ride analysis task as a pipeline over
// stdin (or an input file) and writes one result row per group. Each
// task is its own subcommand; --phase splits the run into map/reduce
// halves for use under an external shuffle.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ridelab/ridefold/config"
	"github.com/ridelab/ridefold/pipeline"
	"github.com/ridelab/ridefold/shuffle/amqp_shuffle"
	"github.com/ridelab/ridefold/sink/mysql_sink"
	"github.com/ridelab/ridefold/tasks"
)

func main() {
	var (
		configPath string
		inputPath  string
		phase      string
		partitions int
	)

	rootCmd := &cobra.Command{
		Use:   "ridefold",
		Short: "Streaming grouped-fold analytics over ride records",
		Long: `ridefold extracts aggregate statistics from a stream of ride records.
Each subcommand runs one analysis: records are mapped to (key, value)
pairs, brought into contiguous runs per key, and folded into one output
row per group.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (yaml)")
	rootCmd.PersistentFlags().StringVarP(&inputPath, "input", "i", "", "Input file (default stdin)")
	rootCmd.PersistentFlags().StringVar(&phase, "phase", "local", "Pipeline phase: local|map|reduce")
	rootCmd.PersistentFlags().IntVarP(&partitions, "partitions", "r", 0, "Reducer partitions (overrides config)")

	for _, name := range tasks.Names() {
		task, _ := tasks.Lookup(name)
		t := task
		rootCmd.AddCommand(&cobra.Command{
			Use:   t.Name(),
			Short: fmt.Sprintf("Run the %s analysis", t.Name()),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd.Context(), t, configPath, inputPath, phase, partitions)
			},
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, task tasks.Task, configPath, inputPath, phase string, partitions int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if partitions > 0 {
		cfg.Partitions = partitions
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	in, closeIn, err := openInput(inputPath)
	if err != nil {
		return err
	}
	defer closeIn()

	if phase == "map" {
		_, err := pipeline.RunMap(ctx, task, in, os.Stdout)
		return err
	}

	sink, closeSink, err := openSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	switch phase {
	case "reduce":
		_, err = pipeline.RunReduce(ctx, task, in, sink)
	case "local":
		if cfg.Shuffle.Transport == "amqp" {
			_, err = pipeline.RunAMQP(ctx, task, in, sink, amqp_shuffle.Config{
				URL:        cfg.Shuffle.AMQP.URL,
				QueueName:  cfg.Shuffle.AMQP.Queue,
				Partitions: cfg.Partitions,
			})
		} else {
			_, err = pipeline.Run(ctx, task, in, sink, pipeline.Options{Partitions: cfg.Partitions})
		}
	default:
		return fmt.Errorf("unknown phase %q (local, map or reduce)", phase)
	}
	return err
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func openSink(ctx context.Context, cfg *config.Config) (pipeline.Sink, func(), error) {
	if cfg.Sink.Type == "mysql" {
		s, err := mysql_sink.Open(ctx, mysql_sink.Config{
			DSN:       cfg.Sink.MySQL.DSN,
			Table:     cfg.Sink.MySQL.Table,
			Truncate:  cfg.Sink.MySQL.Truncate,
			BatchSize: cfg.Sink.MySQL.BatchSize,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
	return pipeline.LineSink{W: os.Stdout}, func() {}, nil
}
