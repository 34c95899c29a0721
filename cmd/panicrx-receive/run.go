package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/panicnic/panicrx/app/rxconfig"
	"github.com/panicnic/panicrx/app/rxdp"
	"github.com/panicnic/panicrx/app/rxreport"
	"github.com/panicnic/panicrx/core/lcore"
	"github.com/panicnic/panicrx/nic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Exit codes.
const (
	exitOK         = 0
	exitBadConfig  = 2
	exitDeviceInit = 3
	exitProvision  = 4
	exitLaunch     = 5
)

type runOptions struct {
	ConfigFile    string
	Driver        string
	Netif         string
	PcapFile      string
	MetricsListen string
	Stdout        io.Writer // console report destination, nil disables
	Notify        bool      // send systemd notifications
	Allocator     *lcore.Allocator
	Pinner        lcore.Pinner
}

func (opts runOptions) loadConfig() (*rxconfig.Config, error) {
	cfg, e := rxconfig.Load(opts.ConfigFile)
	if e != nil {
		return nil, e
	}

	overridden := false
	override := func(field *string, value string) {
		if value != "" {
			*field, overridden = value, true
		}
	}
	override(&cfg.Driver.Driver, opts.Driver)
	override(&cfg.Driver.Netif, opts.Netif)
	override(&cfg.Driver.PcapFile, opts.PcapFile)
	if overridden {
		if e = cfg.Validate(); e != nil {
			return nil, &rxconfig.ConfigError{Path: opts.ConfigFile, Err: e}
		}
	}
	return cfg, nil
}

// run executes the receive application until ctx is cancelled or a poller exits.
func run(ctx context.Context, opts runOptions) (code int, e error) {
	cfg, e := opts.loadConfig()
	if e != nil {
		logger.Error("config error", zap.Error(e))
		return exitBadConfig, e
	}

	dev, e := nic.Open(cfg.NicConfig())
	if e != nil {
		logger.Error("device init error", zap.Error(e))
		return exitDeviceInit, e
	}
	defer dev.Close()
	logger.Info("user space driver started")

	if settle := cfg.Driver.Settle.Duration(); settle > 0 {
		logger.Info("waiting for device to settle", zap.Duration("settle", settle))
		select {
		case <-time.After(settle):
		case <-ctx.Done():
			return exitOK, nil
		}
	}

	var sinks []rxreport.Sink
	if opts.Stdout != nil {
		sinks = append(sinks, rxreport.ConsoleSink{W: opts.Stdout})
	}
	var metrics *http.Server
	if opts.MetricsListen != "" {
		promSink := rxreport.NewPrometheusSink()
		sinks = append(sinks, promSink)
		metrics = startMetrics(opts.MetricsListen, promSink)
		defer metrics.Close()
	}

	logger.Info("loading config into NIC", zap.Int("tenants", cfg.Tenants.Len()))
	dp, e := rxdp.New(cfg, dev, rxdp.Options{
		Allocator: opts.Allocator,
		Pinner:    opts.Pinner,
		Sinks:     sinks,
	})
	if e != nil {
		var de *nic.DeviceError
		if errors.As(e, &de) {
			logger.Error("provisioning error", zap.Error(e))
			return exitProvision, e
		}
		logger.Error("data plane error", zap.Error(e))
		return exitLaunch, e
	}

	if e = dp.Launch(); e != nil {
		logger.Error("launch error", zap.Error(e))
		return exitLaunch, multierr.Append(e, dp.Close())
	}

	if opts.Notify {
		go systemdNotify(ctx)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case <-dp.Done():
		logger.Warn("a thread exited, shutting down")
	}
	if opts.Notify {
		daemon.SdNotify(false, daemon.SdNotifyStopping)
	}

	if e = dp.Close(); e != nil {
		return exitLaunch, fmt.Errorf("shutdown: %w", e)
	}
	return exitOK, nil
}

func startMetrics(listen string, collector prometheus.Collector) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collector, collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: listen, Handler: mux}
	go func() {
		logger.Info("metrics server starting", zap.String("listen", listen))
		if e := srv.ListenAndServe(); e != nil && !errors.Is(e, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(e))
		}
	}()
	return srv
}

func systemdNotify(ctx context.Context) {
	daemon.SdNotify(false, daemon.SdNotifyReady)

	d, e := daemon.SdWatchdogEnabled(false)
	if d == 0 || e != nil {
		logger.Debug("systemd watchdog not configured", zap.Error(e))
		return
	}

	d /= 2
	logger.Debug("systemd watchdog enabled", zap.Duration("duration", d))
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
