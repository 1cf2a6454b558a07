package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/eventloom/eventloom"
	"github.com/eventloom/eventloom/internal/config"
	"github.com/eventloom/eventloom/internal/dispatch"
	"github.com/eventloom/eventloom/internal/event"
	"github.com/eventloom/eventloom/internal/pool"
	"github.com/eventloom/eventloom/internal/schedule"
	"github.com/eventloom/eventloom/internal/source"
	"github.com/eventloom/eventloom/internal/store"
	"github.com/eventloom/eventloom/internal/telemetry"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <config>",
		Short: "Start the orchestrator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrchestrator(cmd.Context(), args[0])
		},
	}
}

// runOrchestrator assembles the run from the document and blocks until
// the context is cancelled or a component fails fatally.
func runOrchestrator(ctx context.Context, cfgPath string) error {
	log := slog.Default()

	if err := telemetry.Init(ctx, "loom", eventloom.Version); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer telemetry.Shutdown(context.Background())

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	cat, err := cfg.Catalog()
	if err != nil {
		return err
	}
	if err := cfg.Validate(cat); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	restore := cfg.Restore
	if v := viper.GetString("restore_dir"); v != "" {
		restore = v
	}
	var st store.Store = store.Null{}
	if restore != "" {
		dirStore, err := store.Open(restore, log)
		if err != nil {
			return err
		}
		st = dirStore
	}
	st = telemetry.WrapStore(st)

	pools := pool.New()
	defer pools.Close()
	for _, m := range cfg.Mqtt {
		client, err := pool.DialMqtt(ctx, pool.MqttOptions{
			ID:       m.ID,
			Host:     m.Host,
			Port:     m.Port,
			User:     m.User,
			Password: m.Pass,
			ClientID: m.ClientID,
		}, log)
		if err != nil {
			return err
		}
		pools.Mqtt.Add(m.ID, client)
	}
	for _, a := range cfg.API {
		pools.HTTP.Add(a.ID, pool.NewHTTPClient(pool.HTTPOptions{ID: a.ID, DefaultHeaders: a.DefaultHeaders}))
	}
	for _, h := range cfg.HTTP {
		pools.Listeners.Add(h.ID, pool.NewListeners())
	}

	queue := make(chan *event.Event, dispatch.QueueSize)
	sched := schedule.New(cat, st, queue, log)

	watcher, err := source.NewFileWatcher(cat, queue, log)
	if err != nil {
		return err
	}
	defer watcher.Close()
	mqttSrc := source.NewMqtt(cat, queue, log)

	disp := dispatch.New(dispatch.Options{
		Catalog:      cat,
		Pools:        pools,
		Queue:        queue,
		Scheduler:    sched.In(),
		Watcher:      watcher,
		MqttMessages: mqttSrc.HandleMessage,
		Log:          log,
	})

	seed, fresh := schedule.Restore(ctx, st, cat, cfg.StartWith, log)
	sched.Seed(seed)
	for _, ev := range fresh {
		queue <- ev
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return disp.Run(gctx) })
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error { return watcher.Run(gctx) })
	for _, h := range cfg.HTTP {
		set, _ := pools.Listeners.Get(h.ID)
		srv := source.NewHTTPServer(h.ID, h.Addr, cat, set, queue, log)
		g.Go(func() error { return srv.Run(gctx) })
	}
	if cfg.Input != "" {
		scan, err := source.NewScanCodes(cfg.Input, cat, queue, log)
		if err != nil {
			return err
		}
		g.Go(func() error { return scan.Run(gctx) })
	}

	log.Info("loom running",
		"events", cat.Len(),
		"start_with", len(cfg.StartWith),
		"mqtt_pools", pools.Mqtt.Len(),
		"http_endpoints", len(cfg.HTTP),
		"restore", restore != "",
	)
	return g.Wait()
}
