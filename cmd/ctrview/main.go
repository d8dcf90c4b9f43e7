// Copyright 2025 The shmetrics Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Ctrview attaches to a metrics group by name and prints a formatted
// sample once per interval, one "name = value" line per counter. It
// declares no schema of its own; everything is recovered from the
// region's self-describing header.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/shmetrics/shmetrics"
)

func main() {
	cmd := &cli.Command{
		Name:      "ctrview",
		Usage:     "watch a shared-memory counter group",
		ArgsUsage: "NAME",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Value: time.Second,
				Usage: "delay between samples",
			},
			&cli.IntFlag{
				Name:  "count",
				Usage: "number of samples to print (0: until interrupted)",
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
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("usage: ctrview NAME")
	}
	id, err := shmetrics.ParseMetricsID(cmd.Args().First())
	if err != nil {
		return err
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, err := attach(ctx, logger, id)
	if err != nil {
		return err
	}
	defer group.Close()

	for _, def := range group.CounterDefinitions() {
		fmt.Printf("%s  %s\n", def.Name(), def.Description())
	}

	return watch(ctx, group, cmd.Duration("interval"), int(cmd.Int("count")))
}

// attach retries once per second until the producer has published the
// group, as the original viewer did.
func attach(ctx context.Context, logger *zap.Logger, id shmetrics.MetricsID) (*shmetrics.MetricsDefinition, error) {
	for {
		group := shmetrics.NewMetricsDefinition(id, 1)
		err := group.Initialize()
		if err == nil {
			return group, nil
		}
		logger.Warn("cannot attach", zap.String("group", group.Name()), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func watch(ctx context.Context, group *shmetrics.MetricsDefinition, interval time.Duration, count int) error {
	// One previous sample per slot, so each instance derives against
	// its own history.
	prev := make(map[int]*shmetrics.Sample)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for n := 0; count == 0 || n < count; n++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if group.MaxInstances() == 1 {
			inst, err := group.GetInstance()
			if err != nil {
				return err
			}
			printInstance(group, inst, prev, 0)
			continue
		}
		for i := 0; i < group.MaxInstances(); i++ {
			inst, err := group.GetInstanceByIndex(i)
			if err != nil {
				return err
			}
			printInstance(group, inst, prev, i)
		}
	}
	return nil
}

func printInstance(group *shmetrics.MetricsDefinition, inst *shmetrics.MetricsInstance, prev map[int]*shmetrics.Sample, slot int) {
	s := shmetrics.NewSample()
	if !inst.Sample(s) {
		return
	}
	s.Format(group, prev[slot])
	prev[slot] = s

	fmt.Printf("-- instance %d @ %d\n", uint32(inst.InstanceID()), s.Time)
	for _, def := range group.CounterDefinitions() {
		v, ok := s.Values[def.ID()]
		if !ok {
			continue
		}
		switch v := v.(type) {
		case float64:
			fmt.Printf("%s = %.2f\n", def.Name(), v)
		default:
			fmt.Printf("%s = %v\n", def.Name(), v)
		}
	}
}
