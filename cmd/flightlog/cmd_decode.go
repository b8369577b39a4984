package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mendikup/flightlog"
	"github.com/mendikup/flightlog/record"
)

// newDecodeCmd creates the "flightlog decode" subcommand.
func newDecodeCmd() *cobra.Command {
	var (
		configPath  string
		workers     int
		mode        string
		roundFloats bool
		filter      []string
		noWarnings  bool
		spillDir    string
	)

	cmd := &cobra.Command{
		Use:   "decode <file.bin>",
		Short: "Decode a log and print records as JSON lines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			var opts []flightlog.Option
			if configPath != "" {
				cfg, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				if path == "" {
					path = cfg.FilePath
				}
				opts = append(opts, configOptions(cfg)...)
			}
			if path == "" {
				return fmt.Errorf("decode: no input file (argument or file_path in config)")
			}

			// Flags override the config file.
			flags := cmd.Flags()
			if flags.Changed("workers") {
				opts = append(opts, flightlog.WithWorkers(workers))
			}
			if flags.Changed("mode") {
				opts = append(opts, flightlog.WithMode(flightlog.Mode(mode)))
			}
			if flags.Changed("round-floats") {
				opts = append(opts, flightlog.WithRoundFloats(roundFloats))
			}
			if flags.Changed("filter") {
				opts = append(opts, flightlog.WithFilter(filter...))
			}
			if flags.Changed("no-warnings") {
				opts = append(opts, flightlog.WithCollectWarnings(!noWarnings))
			}
			if flags.Changed("spill-dir") {
				opts = append(opts, flightlog.WithSpillDir(spillDir))
			}

			result, err := flightlog.New(path, opts...).Run(cmd.Context())
			if err != nil {
				return err
			}
			defer result.Close()

			out := bufio.NewWriter(cmd.OutOrStdout())
			defer out.Flush()
			enc := json.NewEncoder(out)

			count := 0
			for rec := range result.Records {
				if err := enc.Encode(jsonRecord(rec)); err != nil {
					return err
				}
				count++
			}

			for _, w := range result.Warnings {
				fmt.Fprintln(os.Stderr, "warning:", w)
			}
			fmt.Fprintf(os.Stderr, "decoded %d records (%d warnings)\n", count, len(result.Warnings))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "worker count (default: CPU count)")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(flightlog.ModeThread), "worker strategy: thread or process")
	cmd.Flags().BoolVar(&roundFloats, "round-floats", false, "round float fields to 4 decimals")
	cmd.Flags().StringSliceVarP(&filter, "filter", "f", nil, "only decode these message types")
	cmd.Flags().BoolVar(&noWarnings, "no-warnings", false, "log warnings instead of collecting them")
	cmd.Flags().StringVar(&spillDir, "spill-dir", "", "directory for spill files (default: temp dir)")
	return cmd
}

func configOptions(cfg *fileConfig) []flightlog.Option {
	var opts []flightlog.Option
	if cfg.NumWorkers > 0 {
		opts = append(opts, flightlog.WithWorkers(cfg.NumWorkers))
	}
	if cfg.RunningMode != "" {
		opts = append(opts, flightlog.WithMode(flightlog.Mode(cfg.RunningMode)))
	}
	if cfg.RoundFloats {
		opts = append(opts, flightlog.WithRoundFloats(true))
	}
	if len(cfg.MessageFilter) > 0 {
		opts = append(opts, flightlog.WithFilter(cfg.MessageFilter...))
	}
	if cfg.CollectWarnings != nil {
		opts = append(opts, flightlog.WithCollectWarnings(*cfg.CollectWarnings))
	}
	if cfg.SpillDir != "" {
		opts = append(opts, flightlog.WithSpillDir(cfg.SpillDir))
	}
	return opts
}

// jsonRecord shapes a record for the JSON-lines output.
func jsonRecord(rec record.Record) map[string]any {
	return map[string]any{
		"type":   rec.Type,
		"offset": rec.Offset,
		"fields": rec.Fields,
	}
}
