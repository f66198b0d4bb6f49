package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/katalix/go-ax25ipd/ax25ipd"
	"github.com/katalix/go-ax25ipd/config"
	"github.com/katalix/go-ax25ipd/route"
)

const defaultConfigPath = "/etc/ax25/ax25ipd.toml"

type options struct {
	configPath string
	device     string
	ptySymlink string
	logLevel   int
}

type application struct {
	opts   options
	stats  *ax25ipd.Stats
	routes *route.Store

	// Guards the fields below, which the signal handler reads.
	mu       sync.Mutex
	logger   log.Logger
	cfg      *config.Config
	disp     *ax25ipd.Dispatcher
	stopping bool

	sigChan chan os.Signal
	out     io.Writer
}

func newLogger(w io.Writer, lvl int) log.Logger {
	logger := log.NewLogfmtLogger(w)
	switch {
	case lvl <= 0:
		return level.NewFilter(logger, level.AllowError())
	case lvl == 1:
		return level.NewFilter(logger, level.AllowWarn())
	case lvl == 2:
		return level.NewFilter(logger, level.AllowInfo())
	}
	return level.NewFilter(logger, level.AllowDebug())
}

func newApplication(opts options) *application {
	sigChan := make(chan os.Signal, 4)
	signal.Notify(sigChan, unix.SIGINT, unix.SIGTERM, unix.SIGHUP, unix.SIGUSR1)

	lvl := opts.logLevel
	if lvl < 0 {
		lvl = config.DefaultLogLevel
	}
	return &application{
		opts:    opts,
		logger:  newLogger(os.Stderr, lvl),
		stats:   &ax25ipd.Stats{},
		routes:  route.NewStore(nil),
		sigChan: sigChan,
		out:     os.Stdout,
	}
}

// loadConfig reads the configuration file and applies the command line
// overrides.
func (app *application) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(app.opts.configPath)
	if err != nil {
		return nil, err
	}
	if app.opts.device != "" {
		cfg.Station.Device = app.opts.device
	}
	if app.opts.ptySymlink != "" {
		cfg.Station.PtySymlink = app.opts.ptySymlink
	}
	if app.opts.logLevel >= 0 {
		cfg.LogLevel = app.opts.logLevel
	}
	if err := cfg.Station.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (app *application) handleSignals(done <-chan struct{}) {
	for {
		select {
		case sig := <-app.sigChan:
			app.mu.Lock()
			d, logger := app.disp, app.logger
			if sig != unix.SIGHUP && sig != unix.SIGUSR1 {
				app.stopping = true
			}
			app.mu.Unlock()

			switch sig {
			case unix.SIGHUP:
				level.Info(logger).Log("message", "received SIGHUP, reloading")
				if d != nil {
					d.Reload()
				}
			case unix.SIGUSR1:
				app.writeReport(app.out)
			default:
				level.Info(logger).Log("message", "received signal, shutting down", "signal", sig)
				if d != nil {
					d.Stop()
				}
			}
		case <-done:
			return
		}
	}
}

// runOnce loads configuration, opens the gateway and runs it until it
// stops, fails, or a reload is requested.
func (app *application) runOnce() error {
	cfg, err := app.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %v", err)
	}
	logger := newLogger(os.Stderr, cfg.LogLevel)
	app.mu.Lock()
	app.logger = logger
	app.mu.Unlock()
	app.routes.Swap(cfg.Table())

	d, err := ax25ipd.NewDispatcher(&cfg.Station, app.routes, app.stats, logger)
	if err != nil {
		return err
	}
	if err := d.Open(); err != nil {
		return fmt.Errorf("failed to open gateway: %v", err)
	}
	defer d.Close()

	if name := d.PtyName(); name != "" {
		fmt.Fprintf(app.out, "%s\n", name)
	}

	app.mu.Lock()
	app.cfg = cfg
	app.disp = d
	if app.stopping {
		// A stop arrived while the gateway was being rebuilt.
		d.Stop()
	}
	app.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.DNSSDName != "" && cfg.Station.Sockets&ax25ipd.SocketUDP != 0 {
		if err := announce(ctx, cfg.DNSSDName, int(cfg.Station.UDPPort), logger); err != nil {
			level.Warn(logger).Log(
				"message", "failed to announce service",
				"error", err)
		}
	}

	err = d.Run()

	app.mu.Lock()
	app.disp = nil
	app.mu.Unlock()
	return err
}

func (app *application) run() int {
	done := make(chan struct{})
	defer close(done)
	go app.handleSignals(done)

	level.Info(app.logger).Log(
		"message", "starting",
		"version", ax25ipd.Version,
		"config", app.opts.configPath)

	for {
		err := app.runOnce()
		if errors.Is(err, ax25ipd.ErrReload) {
			level.Info(app.logger).Log("message", "configuration reloaded")
			continue
		}
		app.writeStats(os.Stderr)
		if err != nil {
			level.Error(app.logger).Log(
				"message", "gateway failed",
				"error", err)
			return 1
		}
		level.Info(app.logger).Log("message", "graceful shutdown complete")
		return 0
	}
}

func main() {
	opts := options{}
	pflag.StringVarP(&opts.configPath, "configfile", "c", defaultConfigPath, "specify configuration file path")
	pflag.StringVarP(&opts.device, "ttydevice", "d", "", "override the radio device from the configuration")
	pflag.StringVarP(&opts.ptySymlink, "symlink-pty", "s", "", "symlink to create to the pseudo terminal slave")
	pflag.IntVarP(&opts.logLevel, "loglevel", "l", -1, "log level: 0 errors, 1 warnings, 2 info, 3 debug")
	showVersion := pflag.BoolP("version", "v", false, "print the version and exit")
	help := pflag.BoolP("help", "h", false, "display help text")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		fmt.Printf("ax25ipd %s\n", ax25ipd.Version)
		os.Exit(0)
	}
	if pflag.NArg() != 0 {
		pflag.Usage()
		os.Exit(2)
	}

	app := newApplication(opts)
	os.Exit(app.run())
}
