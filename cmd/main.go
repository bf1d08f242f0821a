// Package main is the edge-gateway binary.
//
// Usage: edge-gateway [OPTIONS]
//
// The gateway listens on --port, forwards page requests to --origin and
// rewrites HTML responses on the way back.
package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/lunalift/edge-gateway/internal/config"
	"github.com/lunalift/edge-gateway/internal/gateway"
	"github.com/lunalift/edge-gateway/internal/monitoring"
	"github.com/lunalift/edge-gateway/internal/utils"
)

// errHelp is returned by parseArgs when usage was requested.
var errHelp = errors.New("help requested")

// options are the command-line overrides applied on top of the config file.
type options struct {
	configPath string
	debug      bool
	port       int
	origin     string
	version    bool
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if errors.Is(err, errHelp) {
		printHelp()
		return
	}
	if err != nil {
		printError(err.Error())
		fmt.Fprintln(os.Stderr, "Run 'edge-gateway --help' for usage.")
		os.Exit(2)
	}
	if opts.version {
		fmt.Println(gateway.Version)
		return
	}

	if err := run(opts); err != nil {
		printError(err.Error())
		os.Exit(1)
	}
}

func parseArgs(args []string) (options, error) {
	var opts options

	value := func(i int) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", args[i])
		}
		return args[i+1], nil
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-h", "--help":
			return opts, errHelp
		case "-v", "--version":
			opts.version = true
		case "-d", "--debug":
			opts.debug = true
		case "-c", "--config":
			v, err := value(i)
			if err != nil {
				return opts, err
			}
			opts.configPath = v
			i++
		case "-p", "--port":
			v, err := value(i)
			if err != nil {
				return opts, err
			}
			port, err := strconv.Atoi(v)
			if err != nil || port <= 0 || port > 65535 {
				return opts, fmt.Errorf("invalid port '%s'", v)
			}
			opts.port = port
			i++
		case "--origin":
			v, err := value(i)
			if err != nil {
				return opts, err
			}
			opts.origin = v
			i++
		default:
			return opts, fmt.Errorf("unknown option: %s", args[i])
		}
	}
	return opts, nil
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.port != 0 {
		cfg.Server.Port = opts.port
	}
	cfg.Origin.URL = utils.FirstNonEmpty(opts.origin, cfg.Origin.URL)
	if opts.debug {
		cfg.Monitoring.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

func run(opts options) error {
	loadEnvFiles()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	monitoring.SetupLogging(cfg.Monitoring.LogLevel, os.Stderr)
	// net/http server errors go through the standard logger.
	stdlog.SetOutput(log.Logger)
	stdlog.SetFlags(0)

	origin, err := gateway.NewOriginProxy(cfg.Origin)
	if err != nil {
		return err
	}
	gw := gateway.New(cfg, origin)

	errCh := make(chan error, 1)
	go func() {
		errCh <- gw.Start()
	}()
	printSuccess(fmt.Sprintf("Gateway listening on :%d -> %s (%s mode)", cfg.Server.Port, cfg.Origin.URL, cfg.Rewrite.Mode))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		printInfo(fmt.Sprintf("Received %s, shutting down", sig))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := gw.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	printSuccess("Gateway stopped")
	return nil
}

// loadEnvFiles loads .env from the working directory and the user config dir.
// Variables already set in the environment win.
func loadEnvFiles() {
	files := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".config", "edge-gateway", ".env"))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}
