package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/config"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/ports"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/infrastructure/egress"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/infrastructure/repository/postgres"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/observability/logging"
)

func main() {
	cfg := config.Load()

	region := flag.String("region", "", "region key whose proxies are probed (required)")
	target := flag.String("target", cfg.ProxyProbeTarget, "URL requested through each proxy")
	timeout := flag.Duration("timeout", cfg.ProxyProbeTimeout, "per-proxy probe timeout")
	concurrency := flag.Int("concurrency", 4, "proxies probed at once")
	apply := flag.Bool("apply", false, "mark unreachable proxies unavailable and reachable ones available")
	flag.Parse()

	logger := logging.NewJSONLogger("proxyprobe", cfg.LogLevel)
	slog.SetDefault(logger)

	if *region == "" {
		fmt.Fprintln(os.Stderr, "proxyprobe: -region is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		logger.Error("open_postgres_failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	prober := egress.NewProber(*target, *timeout, *concurrency)
	unreachable, err := run(ctx, postgres.NewProxyRepository(db), prober, *region, *apply)
	if err != nil {
		logger.Error("proxy_probe_failed", "region", *region, "error", err)
		os.Exit(1)
	}
	if unreachable > 0 {
		os.Exit(3)
	}
}

func run(ctx context.Context, proxies ports.ProxyStore, prober *egress.Prober, region string, apply bool) (int, error) {
	resources, err := proxies.ListByRegion(ctx, region)
	if err != nil {
		return 0, fmt.Errorf("list proxies: %w", err)
	}
	if len(resources) == 0 {
		return 0, fmt.Errorf("no proxies provisioned for region %s", region)
	}

	results, err := prober.CheckAll(ctx, resources)
	if err != nil {
		return 0, err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROXY\tREGION\tREACHABLE\tLATENCY\tERROR")
	unreachable := 0
	for i, res := range results {
		errText := ""
		if res.Err != nil {
			errText = res.Err.Error()
			unreachable++
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", res.ProxyID, res.RegionKey, res.Reachable, res.Latency.Round(time.Millisecond), errText)

		if apply && resources[i].Available != res.Reachable {
			if err := proxies.SetAvailability(ctx, res.ProxyID, res.Reachable); err != nil {
				return unreachable, fmt.Errorf("set availability of %s: %w", res.ProxyID, err)
			}
			slog.Info("proxy_availability_changed", "proxy_id", res.ProxyID, "available", res.Reachable)
		}
	}
	if err := w.Flush(); err != nil {
		return unreachable, err
	}
	return unreachable, nil
}
