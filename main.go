package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	cfg "github.com/maastricht-university/vocal-eval/config"
	"github.com/maastricht-university/vocal-eval/metrics"
	"github.com/maastricht-university/vocal-eval/orchestrator"
	"github.com/maastricht-university/vocal-eval/pitch"
)

var configPath string

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}

	root := &cobra.Command{
		Use:           "vocal-eval",
		Short:         "Score singing performances for pitch, breath support and diction",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: config/$CONFIG_ENV/config.yaml or ./config.yaml)")
	root.AddCommand(analyzeCmd(), calibrationCmd(), notesCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		logrus.Fatal(err)
	}
}

func newLogger(c *cfg.Root) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if lvl, err := logrus.ParseLevel(c.Pipeline.LogLvl); err == nil {
		log.SetLevel(lvl)
	}
	if c.Pipeline.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

func analyzeCmd() *cobra.Command {
	var (
		notes, sheet, align, out string
		debug                    bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <audio>...",
		Short: "Analyze one or more recordings and write JSON reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if align != "" && align != pitch.AlignInterpolate && align != pitch.AlignDTW {
				return fmt.Errorf("--align must be %s or %s", pitch.AlignInterpolate, pitch.AlignDTW)
			}
			if out != "" && len(args) > 1 {
				return errors.New("--out takes a single recording; use paths.outputs for batches")
			}
			conf, err := cfg.Load(configPath)
			if err != nil {
				return err
			}
			log := newLogger(conf)
			cal, err := cfg.LoadCalibration(conf.Scoring.CalibrationFile)
			if err != nil {
				return err
			}
			m := metrics.New(log)
			p, err := orchestrator.NewPipeline(conf, cal, log, m)
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"pipeline": conf.Pipeline.Name,
				"version":  conf.Pipeline.Version,
				"files":    len(args),
			}).Info("vocal-eval starting")

			var mu sync.Mutex
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(conf.Analysis.Workers, 1))
			for _, path := range args {
				path := path
				g.Go(func() error {
					rep, err := p.Run(ctx, orchestrator.Request{
						AudioPath: path,
						Notes:     pitch.ParseNoteList(notes),
						SheetPath: sheet,
						Alignment: align,
						Debug:     debug,
					})
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					written, err := p.Persist(rep, out)
					if err != nil {
						return fmt.Errorf("%s: persist: %w", path, err)
					}
					if written != "" {
						log.WithField("report", written).Info("report written")
						return nil
					}
					mu.Lock()
					defer mu.Unlock()
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(rep)
				})
			}
			err = g.Wait()
			if werr := m.WriteTextfile(conf.Metrics.Textfile); werr != nil {
				log.WithError(werr).Warn("metrics textfile not written")
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&notes, "notes", "", `reference notes, comma separated ("C4,E4,G4")`)
	f.StringVar(&sheet, "sheet", "", "sheet-music image to read reference notes from")
	f.StringVar(&align, "align", "", "accuracy alignment: interpolate or dtw (default from config)")
	f.StringVar(&out, "out", "", "write the report to this file")
	f.BoolVar(&debug, "debug", false, "include DTW alignment details")
	return cmd
}

func calibrationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calibration",
		Short: "Print the total-score regression and its residuals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := cfg.Load(configPath)
			if err != nil {
				return err
			}
			cal, err := cfg.LoadCalibration(conf.Scoring.CalibrationFile)
			if err != nil {
				return err
			}
			agg, _, _, err := cal.Scoring(conf.Scoring.Coefficients)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			c := agg.Coefficients()
			source := "fitted"
			if conf.Scoring.Coefficients != nil {
				source = "configured"
			}
			fmt.Fprintf(w, "coefficients (%s): intercept=%.5f pitch=%.5f breath=%.5f diction=%.5f\n",
				source, c.Intercept, c.Pitch, c.Breath, c.Diction)
			fmt.Fprintln(w, "pitch\tbreath\tdiction\ttarget\ttotal\tresidual")
			for i, res := range agg.Residuals(cal.Rows) {
				r := cal.Rows[i]
				fmt.Fprintf(w, "%.1f\t%.1f\t%.1f\t%.1f\t%.2f\t%+.3f\n",
					r.Pitch, r.Breath, r.Diction, r.Target, agg.Total(r.Pitch, r.Breath, r.Diction), res)
			}
			return nil
		},
	}
}

func notesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notes <name>...",
		Short: "Print equal-tempered frequencies for note names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := pitch.ParseNoteList(strings.Join(args, ","))
			for _, n := range names {
				hz, err := pitch.NoteFrequency(n)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.3f Hz\n", n, hz)
			}
			return nil
		},
	}
}
