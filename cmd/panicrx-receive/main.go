// Command panicrx-receive provisions tenant offload chains on a NIC and runs busy-poll receivers.
package main

import (
	"bytes"
	"context"
	"os"
	"os/signal"

	"github.com/panicnic/panicrx/core/hwinfo"
	"github.com/panicnic/panicrx/core/logging"
	"github.com/panicnic/panicrx/core/version"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	_ "github.com/panicnic/panicrx/nic/afpnic"
	_ "github.com/panicnic/panicrx/nic/memnic"
	_ "github.com/panicnic/panicrx/nic/pcapnic"
)

var logger = logging.New("main")

var app = &cli.App{
	Version: version.V.String(),
	Usage:   "Receive multi-tenant traffic with busy-poll pinned pollers.",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    "configuration `FILE`",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "driver",
			Usage: "override driverconfig.driver (sim, pcap, afpacket)",
		},
		&cli.StringFlag{
			Name:  "netif",
			Usage: "override driverconfig.netif",
		},
		&cli.StringFlag{
			Name:  "pcapfile",
			Usage: "override driverconfig.pcapfile",
		},
		&cli.StringFlag{
			Name:  "metrics",
			Usage: "Prometheus metrics listen `ADDRESS`, such as 127.0.0.1:9464",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "do not print throughput lines to stdout",
		},
	},
	Action: func(c *cli.Context) error {
		ctx, stop := signal.NotifyContext(c.Context, unix.SIGINT, unix.SIGTERM)
		defer stop()

		opts := runOptions{
			ConfigFile:    c.String("config"),
			Driver:        c.String("driver"),
			Netif:         c.String("netif"),
			PcapFile:      c.String("pcapfile"),
			MetricsListen: c.String("metrics"),
			Notify:        true,
		}
		if !c.Bool("quiet") {
			opts.Stdout = os.Stdout
		}

		if code, e := run(ctx, opts); e != nil {
			return cli.Exit(e, code)
		}
		return nil
	},
}

func main() {
	var uname unix.Utsname
	unix.Uname(&uname)
	cores := hwinfo.Default.Cores()
	logger.Info("panicrx-receive starting",
		append(version.V.ZapFields(),
			zap.Int("uid", os.Getuid()),
			zap.ByteString("linux", bytes.TrimRight(uname.Release[:], string([]byte{0}))),
			zap.Ints("allowed-cores", cores.IDs()),
			zap.Int("numa-sockets", cores.MaxNumaSocket()+1),
		)...,
	)

	app.RunContext(context.Background(), os.Args)
}
