// main.go - routesim command-line entry point.
// Copyright (C) 2017  David Anthony Stainton
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package main provides the routesim command-line driver: it loads a
// topology directory and optional histograms, wires up the simulation
// and runs it to completion.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"unsafe"

	"github.com/op/go-logging"
	"github.com/spf13/cobra"

	"github.com/frochet/routesim/config"
	"github.com/frochet/routesim/driver"
	"github.com/frochet/routesim/histogram"
	"github.com/frochet/routesim/metrics"
	"github.com/frochet/routesim/output"
	"github.com/frochet/routesim/topofile"
)

var log = logging.MustGetLogger("routesim")

var logFormat = logging.MustStringFormatter(
	"%{level:.4s} %{id:03x} %{message}",
)
var ttyFormat = logging.MustStringFormatter(
	"%{color}%{time:15:04:05} ▶ %{level:.4s} %{id:03x}%{color:reset} %{message}",
)

const ioctlReadTermios = 0x5401

func isTerminal(fd int) bool {
	var termios syscall.Termios
	_, _, err := syscall.Syscall6(syscall.SYS_IOCTL, uintptr(fd), ioctlReadTermios, uintptr(unsafe.Pointer(&termios)), 0, 0, 0)
	return err == 0
}

func stringToLogLevel(level string) (logging.Level, error) {
	switch level {
	case "DEBUG":
		return logging.DEBUG, nil
	case "INFO":
		return logging.INFO, nil
	case "NOTICE":
		return logging.NOTICE, nil
	case "WARNING":
		return logging.WARNING, nil
	case "ERROR":
		return logging.ERROR, nil
	case "CRITICAL":
		return logging.CRITICAL, nil
	}
	return -1, fmt.Errorf("invalid logging level %s", level)
}

func setupLoggerBackend(level logging.Level) logging.LeveledBackend {
	format := logFormat
	if isTerminal(int(os.Stderr.Fd())) {
		format = ttyFormat
	}
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatter := logging.NewBackendFormatter(backend, format)
	leveler := logging.AddModuleLevel(formatter)
	leveler.SetLevel(level, "routesim")
	return leveler
}

func main() {
	var (
		configPath  string
		cfg         = config.Default()
		outFilePath string
	)

	root := &cobra.Command{
		Use:   "routesim",
		Short: "Monte-Carlo simulator of de-anonymization risk in a layered mix network",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				loaded, err := config.FromFile(configPath)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("in-dir") {
					cfg.InDir = loaded.InDir
				}
				if !cmd.Flags().Changed("days") {
					cfg.Days = loaded.Days
				}
				if !cmd.Flags().Changed("usermod") {
					cfg.UserModel = loaded.UserModel
				}
				if !cmd.Flags().Changed("users") {
					cfg.Users = loaded.Users
				}
				if !cmd.Flags().Changed("epoch") {
					cfg.Epoch = loaded.Epoch
				}
				if !cmd.Flags().Changed("contacts") {
					cfg.Contacts = loaded.Contacts
				}
				if !cmd.Flags().Changed("disable-guards") {
					cfg.UseGuards = loaded.UseGuards
				}
				if !cmd.Flags().Changed("to-console") {
					cfg.ToConsole = loaded.ToConsole
				}
				if !cmd.Flags().Changed("timestamps-h") {
					cfg.TimestampsHistPath = loaded.TimestampsHistPath
				}
				if !cmd.Flags().Changed("sizes-h") {
					cfg.SizesHistPath = loaded.SizesHistPath
				}
				if !cmd.Flags().Changed("metrics-addr") {
					cfg.MetricsAddr = loaded.MetricsAddr
				}
				if !cmd.Flags().Changed("log-level") {
					cfg.LogLevel = loaded.LogLevel
				}
			}

			level, err := stringToLogLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			log.SetBackend(setupLoggerBackend(level))

			return run(cfg, outFilePath)
		},
	}

	flags := root.Flags()
	flags.StringVar(&configPath, "config", "", "optional TOML file supplying defaults")
	flags.StringVar(&cfg.InDir, "in-dir", "", "directory of topology CSV files (required)")
	flags.StringVar(&cfg.TimestampsHistPath, "timestamps-h", cfg.TimestampsHistPath, "timestamp histogram JSON file")
	flags.StringVar(&cfg.SizesHistPath, "sizes-h", cfg.SizesHistPath, "size histogram JSON file")
	flags.IntVar(&cfg.Days, "days", cfg.Days, "number of simulated days")
	flags.StringVar(&cfg.UserModel, "usermod", cfg.UserModel, "user model: simple or email")
	flags.Uint32Var(&cfg.Users, "users", cfg.Users, "number of simulated users")
	flags.Uint32Var(&cfg.Epoch, "epoch", cfg.Epoch, "topology epoch length in seconds")
	flags.IntVar(&cfg.Contacts, "contacts", cfg.Contacts, "number of contacts per user")
	flags.BoolVar(&cfg.ToConsole, "to-console", cfg.ToConsole, "write output records to stdout instead of a file")
	disableGuards := false
	flags.BoolVar(&disableGuards, "disable-guards", false, "disable persistent guard selection")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "optional address to serve Prometheus metrics on")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "DEBUG, INFO, NOTICE, WARNING, ERROR or CRITICAL")
	flags.StringVar(&outFilePath, "out", "routesim.out", "output file path, used when --to-console is not set")

	root.PreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("disable-guards") {
			cfg.UseGuards = !disableGuards
		}
		return nil
	}

	if err := root.Execute(); err != nil {
		log.Criticalf("%s", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, outFilePath string) error {
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))

	configs, err := topofile.LoadDir(cfg.InDir, cfg.Users, rng)
	if err != nil {
		return fmt.Errorf("loading topologies: %w", err)
	}

	if err := cfg.Validate(len(configs)); err != nil {
		return err
	}

	var model driver.ModelKind
	var tsHist, szHist *histogram.Histogram
	switch cfg.UserModel {
	case "simple":
		model = driver.Simple
	case "email":
		model = driver.Email
		tsHist, err = histogram.LoadFile(cfg.TimestampsHistPath, 60)
		if err != nil {
			return fmt.Errorf("loading timestamp histogram: %w", err)
		}
		szHist, err = histogram.LoadFile(cfg.SizesHistPath, 2048)
		if err != nil {
			return fmt.Errorf("loading size histogram: %w", err)
		}
	default:
		return fmt.Errorf("unknown user model %q", cfg.UserModel)
	}

	var sinkWriter = os.Stdout
	var outFile *os.File
	if !cfg.ToConsole {
		outFile, err = os.Create(outFilePath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer outFile.Close()
	}
	var sink *output.Sink
	if cfg.ToConsole {
		sink = output.NewSink(sinkWriter, true)
	} else {
		sink = output.NewSink(outFile, false)
	}

	var collector *metrics.Collector
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.MetricsAddr != "" {
		collector = metrics.New()
		go func() {
			if err := collector.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Warningf("metrics server stopped: %s", err)
			}
		}()
	}

	r, err := driver.Init(driver.Config{
		Users:         cfg.Users,
		Configs:       configs,
		Days:          cfg.Days,
		Epoch:         uint64(cfg.Epoch),
		Contacts:      cfg.Contacts,
		UseGuards:     cfg.UseGuards,
		Model:         model,
		TimestampHist: tsHist,
		SizeHist:      szHist,
		Sink:          sink,
		Metrics:       collector,
	})
	if err != nil {
		return fmt.Errorf("initializing run: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	runCtx, runCancel := context.WithCancel(ctx)
	go func() {
		<-sigCh
		log.Notice("routesim: interrupted, shutting down")
		runCancel()
	}()
	defer runCancel()

	log.Notice("routesim: starting run")
	if err := r.Run(runCtx); err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	log.Notice("routesim: run complete")
	return nil
}
