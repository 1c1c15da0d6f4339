package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rpggio/seedsort/internal/client"
)

type simulateOptions struct {
	url         string
	sorters     int
	images      int
	concurrency int
	settle      time.Duration
	timeout     time.Duration
	drain       time.Duration
	poll        time.Duration
}

func newSimulateCmd() *cobra.Command {
	opts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a running server with concurrent simulated sorters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			c := client.New(opts.url, opts.timeout, logger)
			report, err := runSimulation(cmd.Context(), c, opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sorters=%d failed=%d images=%d processed=%d sampled=%d\n",
				report.Sorters, report.Failed, report.Submitted, report.Processed, report.Sampled)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "http://localhost:8000", "server base URL")
	cmd.Flags().IntVar(&opts.sorters, "sorters", 100, "number of simulated sorters")
	cmd.Flags().IntVar(&opts.images, "images", 20, "images per sorter")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 20, "sorters running at once")
	cmd.Flags().DurationVar(&opts.settle, "settle", 200*time.Millisecond, "wait between last image and stop")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")
	cmd.Flags().DurationVar(&opts.drain, "drain-timeout", 10*time.Second, "how long to wait for a stopped session to close")
	cmd.Flags().DurationVar(&opts.poll, "poll", 50*time.Millisecond, "stats polling interval while a session drains")

	return cmd
}

type simulationReport struct {
	Sorters   int
	Failed    int64
	Submitted int64
	Processed int64
	Sampled   int64
}

// runSimulation runs each sorter through start, submit, settle, stop and a
// wait for the closed stats. A failing sorter is reported and does not stop
// the others.
func runSimulation(ctx context.Context, c *client.Client, opts *simulateOptions, out io.Writer) (simulationReport, error) {
	report := simulationReport{Sorters: opts.sorters}
	var failed, submitted, processed, sampled atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.concurrency, 1))

	for i := range opts.sorters {
		seedLot := fmt.Sprintf("Lot_%d", i+1)
		g.Go(func() error {
			n, stats, err := simulateSorter(ctx, c, seedLot, opts)
			submitted.Add(int64(n))
			if err != nil {
				failed.Add(1)
				fmt.Fprintf(out, "[%s] error: %v\n", seedLot, err)
				return nil
			}
			processed.Add(stats.Processed())
			sampled.Add(stats.Sampled)
			fmt.Fprintf(out, "[%s] accepted=%d rejected=%d sampled=%d\n", seedLot, stats.Accepted, stats.Rejected, stats.Sampled)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	report.Failed = failed.Load()
	report.Submitted = submitted.Load()
	report.Processed = processed.Load()
	report.Sampled = sampled.Load()
	return report, nil
}

func simulateSorter(ctx context.Context, c *client.Client, seedLot string, opts *simulateOptions) (int, *client.Stats, error) {
	sessionID, err := c.StartSession(ctx, seedLot)
	if err != nil {
		return 0, nil, fmt.Errorf("start session: %w", err)
	}

	sent := 0
	for i := range opts.images {
		imageID := fmt.Sprintf("%s_img_%d_%s", seedLot, i, uuid.NewString()[:6])
		if err := c.SendImage(ctx, sessionID, imageID); err != nil {
			return sent, nil, fmt.Errorf("send image: %w", err)
		}
		sent++
	}

	select {
	case <-ctx.Done():
		return sent, nil, ctx.Err()
	case <-time.After(opts.settle):
	}

	if err := c.StopSession(ctx, sessionID); err != nil {
		return sent, nil, fmt.Errorf("stop session: %w", err)
	}
	stats, err := waitClosed(ctx, c, sessionID, opts.drain, opts.poll)
	if err != nil {
		return sent, nil, err
	}
	return sent, stats, nil
}

// waitClosed polls stats until the session's terminal flush has been recorded.
func waitClosed(ctx context.Context, c *client.Client, sessionID string, timeout, interval time.Duration) (*client.Stats, error) {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		stats, err := c.Stats(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("fetch stats: %w", err)
		}
		if stats.Status == "closed" {
			return stats, nil
		}
		select {
		case <-ctx.Done():
			return stats, fmt.Errorf("session %s still %s: %w", sessionID, stats.Status, ctx.Err())
		case <-ticker.C:
		}
	}
}
