package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/forest-guardian/eds-change-cli/internal/delivery"
	"github.com/forest-guardian/eds-change-cli/internal/log"
	"github.com/forest-guardian/eds-change-cli/internal/notification"
	"github.com/forest-guardian/eds-change-cli/internal/properties"
	"github.com/forest-guardian/eds-change-cli/internal/ui"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func printBanner() {
	figure1 := figure.NewFigure("EDS", "isometric1", true)
	figure2 := figure.NewFigure("Change", "isometric1", true)
	bannercolor.Cyan(figure1.String())
	bannercolor.Cyan(figure2.String())
	fmt.Println()
}

func recoverPanic() {
	r := recover()
	if r == nil {
		return
	}
	pc, file, line, ok := runtime.Caller(3)
	location := "Unknown location"
	if ok {
		location = fmt.Sprintf("%s:%d in %s", file, line, runtime.FuncForPC(pc).Name())
	}
	bannercolor.Red("\nPANIC: %v", r)
	bannercolor.Red("Location: %s", location)

	errMessage := fmt.Sprintf("EDS change CLI panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, debug.Stack())
	if err := notification.SendDiscordErrorNotification(errMessage); err != nil {
		bannercolor.Red("Failed to send notification: %s", err.Error())
	}
	log.Sync()
	os.Exit(2)
}

func runCmd() *cobra.Command {
	var job properties.Job
	var outputDir string
	var force bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Detect woody vegetation clearing for one scene and date pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := delivery.RequestFromJob(job)
			if err != nil {
				return err
			}
			if outputDir != "" {
				req.OutputDir = outputDir
			}
			req.Force = force

			record, err := delivery.RunChangeDetection(cmd.Context(), req)
			if err != nil {
				notification.SendDiscordErrorNotification(fmt.Sprintf("EDS change CLI\n\nScene %s failed: %s", job.Scene, err.Error()))
				return err
			}
			if record.Cached {
				ui.PrintSuccess("Outputs are up to date: " + record.Outputs.DLL)
				return nil
			}
			ui.PrintSuccess(fmt.Sprintf("Change classes written to %s\nInterpretation written to %s", record.Outputs.DLL, record.Outputs.DLJ))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&job.Scene, "scene", "", "scene name, e.g. p090r079")
	f.StringVar(&job.StartDate, "start", "", "start date YYYYMMDD")
	f.StringVar(&job.EndDate, "end", "", "end date YYYYMMDD")
	f.StringVar(&job.WindowStart, "window-start", "", "seasonal window start MMDD (default: start date)")
	f.StringVar(&job.WindowEnd, "window-end", "", "seasonal window end MMDD (default: end date)")
	f.IntVar(&job.Lookback, "lookback", properties.DefaultLookback, "baseline lookback in years")
	f.BoolVar(&job.OmitStartThreshold, "omit-start-threshold", false, "do not force no-clearing where normalized start cover is below 108")
	f.StringVar(&job.IndexKind, "index", "fpc", "index kind: fpc or ndvi")
	f.StringVar(&job.Dc4Glob, "dc4-glob", "", "glob for the index images (default: scene folder)")
	f.StringVar(&job.StartDb8, "start-db8", "", "start reflectance stack (default: scene folder)")
	f.StringVar(&job.EndDb8, "end-db8", "", "end reflectance stack (default: scene folder)")
	f.StringVar(&job.Footprint, "footprint", "", "GeoJSON polygon or mask raster limiting the processed area")
	f.BoolVar(&job.Preview, "preview", false, "also write a PNG preview of the change classes")
	f.StringVar(&outputDir, "output", properties.OutputPath(), "output folder (default: next to the start stack)")
	f.BoolVar(&force, "force", false, "rerun even if outputs are up to date")
	for _, name := range []string{"scene", "start", "end"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func batchCmd() *cobra.Command {
	var opts delivery.BatchOptions
	cmd := &cobra.Command{
		Use:   "batch <jobs.yaml>",
		Short: "Run every job of a YAML job file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := delivery.RunBatch(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			failed := 0
			for _, r := range rows {
				if r.Error != "" {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d jobs failed", failed, len(rows))
			}
			ui.PrintSuccess(fmt.Sprintf("%d jobs finished", len(rows)))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.OutputDir, "output", properties.OutputPath(), "output folder for results and the batch report")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "rerun jobs whose outputs are up to date")
	return cmd
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		_ = godotenv.Load("../.env")
	}
	log.Init(properties.Debug(), properties.LogFile())
	defer log.Sync()
	defer recoverPanic()

	root := &cobra.Command{
		Use:           "eds-change",
		Short:         "Seasonal window woody vegetation clearing detection",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			printBanner()
			ui.ShowMenu()
		},
	}
	root.AddCommand(runCmd(), batchCmd(),
		&cobra.Command{
			Use:   "menu",
			Short: "Start the interactive menu",
			Run: func(cmd *cobra.Command, args []string) {
				printBanner()
				ui.ShowMenu()
			},
		},
		&cobra.Command{
			Use:   "scenes",
			Short: "List the scenes found under the data folder",
			Run: func(cmd *cobra.Command, args []string) {
				ui.ListScenes()
			},
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		log.Sync()
		os.Exit(1)
	}
}
