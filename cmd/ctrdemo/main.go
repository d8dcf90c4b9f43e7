// Copyright 2025 The shmetrics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Ctrdemo publishes the demo key-counter group and drives it with a
// synthetic keystroke workload, so ctrview (or any other observer on
// the host) has something to watch. With --listen it also serves the
// raw counters to Prometheus.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shmetrics/shmetrics"
	"github.com/shmetrics/shmetrics/promexport"
)

func main() {
	cmd := &cli.Command{
		Name:  "ctrdemo",
		Usage: "publish a demo counter group and keep it busy",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "name",
				Value: "keys",
				Usage: "four-byte metrics group name",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Value: 20 * time.Millisecond,
				Usage: "delay between synthetic keystrokes",
			},
			&cli.StringFlag{
				Name:  "listen",
				Usage: "address to serve Prometheus metrics on (empty: no server)",
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	id, err := shmetrics.ParseMetricsID(cmd.String("name"))
	if err != nil {
		return err
	}
	group := shmetrics.NewMetricsDefinition(id, 1)
	if err := defineKeyCounters(group); err != nil {
		return err
	}
	if err := group.Initialize(); err != nil {
		return fmt.Errorf("cannot publish group %s: %w", group.Name(), err)
	}
	defer group.Close()

	inst, err := group.GetInstance()
	if err != nil {
		return err
	}
	logger.Info("group published",
		zap.String("group", group.Name()),
		zap.Int("counters", len(group.CounterDefinitions())),
		zap.Int("instance_size", group.InstanceSize()))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pound(ctx, inst, cmd.Duration("interval"))
	})
	if addr := cmd.String("listen"); addr != "" {
		g.Go(func() error {
			return serveMetrics(ctx, logger, group, addr)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// pound simulates the keystroke loop of the original demo: every tick
// one random letter is "typed" and the per-letter, vowel, and total
// counters advance, with the render time accumulated for the timer
// counter.
func pound(ctx context.Context, inst *shmetrics.MetricsInstance, interval time.Duration) error {
	chra, err := inst.Int32CounterByID(shmetrics.MustCounterID("chra"))
	if err != nil {
		return err
	}
	chrb, err := inst.Int32CounterByID(shmetrics.MustCounterID("chrb"))
	if err != nil {
		return err
	}
	chrc, err := inst.Int32CounterByID(shmetrics.MustCounterID("chrc"))
	if err != nil {
		return err
	}
	vowl, err := inst.Int32CounterByID(shmetrics.MustCounterID("vowl"))
	if err != nil {
		return err
	}
	kcnt, err := inst.Int32CounterByID(shmetrics.MustCounterID("kcnt"))
	if err != nil {
		return err
	}
	ptim, err := inst.Int64CounterByID(shmetrics.MustCounterID("ptim"))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		c := byte('a' + rand.Intn(26))
		switch c {
		case 'a':
			chra.Inc()
		case 'b':
			chrb.Inc()
		case 'c':
			chrc.Inc()
		}
		if strings.IndexByte("aeiou", c) >= 0 {
			vowl.Inc()
		}
		kcnt.Inc()

		t := shmetrics.StartTimer(ptim)
		render(c)
		t.Stop()
	}
}

// render stands in for the original's curses redraw; it just burns a
// little wall time so the ptmr timer counter has something to show.
func render(byte) {
	time.Sleep(2 * time.Millisecond)
}

func serveMetrics(ctx context.Context, logger *zap.Logger, group *shmetrics.MetricsDefinition, addr string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(promexport.NewCollector(group))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// defineKeyCounters declares the demo schema: per-letter counts, vowel
// ratios and rates, and a percent-time figure for the render scope.
func defineKeyCounters(group *shmetrics.MetricsDefinition) error {
	counters := []struct {
		name, description string
		flags             uint32
		related           string
	}{
		{"chra", "Number of A Keys", shmetrics.TypeInt32 | shmetrics.FormatCount, ""},
		{"chrb", "Number of B Keys", shmetrics.TypeInt32 | shmetrics.FormatCount, ""},
		{"chrc", "Number of C Keys", shmetrics.TypeInt32 | shmetrics.FormatCount, ""},
		{"vowl", "Vowel Keys Pressed", shmetrics.TypeInt32 | shmetrics.FormatCount, ""},
		{"pvwl", "Pct. Vowel Keys", shmetrics.TypeInt32 | shmetrics.FormatRatio | shmetrics.FlagUsePriorValue | shmetrics.FlagPct, "kcnt"},
		{"dvwl", "Delta Vowel Keys Pressed", shmetrics.TypeInt32 | shmetrics.FormatDelta, "vowl"},
		{"vwlr", "Vowel Keys Pressed /sec", shmetrics.TypeInt32 | shmetrics.FormatRate, "vowl"},
		{"kcnt", "Keys Pressed", shmetrics.TypeInt32 | shmetrics.FormatCount, ""},
		{"keyr", "Keys Pressed /sec", shmetrics.TypeInt32 | shmetrics.FormatRate, "kcnt"},
		{"keya", "Keys Pressed /sec /sec", shmetrics.TypeInt32 | shmetrics.FormatRate, "keyr"},
		{"ptim", "Print Time", shmetrics.TypeInt64 | shmetrics.FormatCount | shmetrics.FlagMonotonic, ""},
		{"ptmd", "Delta Print Time", shmetrics.TypeInt64 | shmetrics.FormatDelta, "ptim"},
		{"ptmr", "Pct Print Time", shmetrics.TypeInt64 | shmetrics.FormatTimer | shmetrics.FlagPct, "ptim"},
	}
	for _, c := range counters {
		if _, err := group.DefineCounterName(c.name, c.description, c.flags, c.related); err != nil {
			return err
		}
	}
	return nil
}
