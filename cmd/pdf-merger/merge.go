package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/pdf-merger/internal/config"
	"github.com/aliskhannn/pdf-merger/internal/merge"
	"github.com/aliskhannn/pdf-merger/internal/model"
	"github.com/aliskhannn/pdf-merger/internal/pagesource"
	"github.com/aliskhannn/pdf-merger/internal/pipeline"
	"github.com/aliskhannn/pdf-merger/internal/progress"
)

var errJobFailed = errors.New("job did not succeed")

func newMergeCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		output     string
		width      int
		dpi        int
		quality    int
		noCompress bool
	)

	cmd := &cobra.Command{
		Use:   "merge -o OUTPUT FILE...",
		Short: "Merge the given images and PDFs into OUTPUT",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			jobCfg := cfg.Job.JobConfig(output)
			if cmd.Flags().Changed("width") {
				jobCfg.Width = width
			}
			if cmd.Flags().Changed("dpi") {
				jobCfg.DPI = dpi
			}
			if cmd.Flags().Changed("quality") {
				jobCfg.Quality = quality
			}
			if noCompress {
				jobCfg.Compress = false
			}

			job := model.NewJob(args, jobCfg)
			coord := newCoordinator(cfg, progress.NewBar(cmd.ErrOrStderr()))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				<-ctx.Done()
				coord.Cancel()
			}()

			result, err := coord.Run(ctx, job)
			if err != nil {
				return err
			}

			zlog.Logger.Debug().
				Str("job_id", job.ID.String()).
				Str("status", string(result.Status)).
				Msg(result.Message)

			if !result.Success() {
				return fmt.Errorf("%w: %s", errJobFailed, result.Message)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output PDF path")
	cmd.Flags().IntVar(&width, "width", model.DefaultWidth, "target page width in pixels")
	cmd.Flags().IntVar(&dpi, "dpi", model.RenderDPI, "PDF rasterisation DPI")
	cmd.Flags().IntVar(&quality, "quality", model.DefaultQuality, "JPEG quality used when compressing")
	cmd.Flags().BoolVar(&noCompress, "no-compress", false, "skip structural compression")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// newCoordinator wires the fitz-backed page source and the pdfcpu merge stage.
func newCoordinator(cfg *config.Config, p pipeline.Progress) *pipeline.Coordinator {
	source := pagesource.New(pagesource.FitzRasterizer{})
	stage := merge.NewStage(cfg.Scratch.Dir, merge.NewPDFCPUCompressor())

	opts := []pipeline.Option{pipeline.WithReleaseEvery(cfg.Job.ReleaseEvery)}
	if cfg.Job.Parallelism > 0 {
		opts = append(opts, pipeline.WithParallelism(cfg.Job.Parallelism))
	}

	return pipeline.New(source, stage, p, opts...)
}
