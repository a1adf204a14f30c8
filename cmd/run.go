package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/careerwatch/internal/api"
	"github.com/JakeFAU/careerwatch/internal/scheduler"
)

func newRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run crawl passes on a schedule and serve the health endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.run(ctx)
		},
	}
}

func (c *cli) run(ctx context.Context) error {
	p, err := buildPipeline(ctx, c.cfg, c.logger, true)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := p.close(); cerr != nil {
			c.logger.Warn("shutdown cleanup failed", zap.Error(cerr))
		}
	}()

	sched, err := scheduler.New(scheduler.Config{
		Interval: c.cfg.Crawler.Interval,
		Schedule: c.cfg.Crawler.Schedule,
	}, func(ctx context.Context) error {
		_, err := p.dispatcher.RunPass(ctx)
		return err
	}, c.logger.Named("scheduler"))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})

	if c.cfg.Server.Port > 0 {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", c.cfg.Server.Port),
			Handler:           api.NewServer(p.dispatcher, sched, c.logger.Named("api")).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			c.logger.Info("health server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("health server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	c.logger.Info("careerwatch started",
		zap.String("seeds", c.cfg.Seeds.Path),
		zap.String("store", c.cfg.Store.Driver),
		zap.String("notify", c.cfg.Notify.Driver),
		zap.Bool("headless", c.cfg.Headless.Enabled),
	)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	c.logger.Info("careerwatch stopped")
	return nil
}
