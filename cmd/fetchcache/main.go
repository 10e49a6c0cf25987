package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/iTrooz/fetch-cache/internal/cache"
	"github.com/iTrooz/fetch-cache/internal/config"
	"github.com/iTrooz/fetch-cache/internal/fetch"
	"github.com/iTrooz/fetch-cache/internal/logging"
	"github.com/iTrooz/fetch-cache/internal/proxy"
)

const usage = `usage: fetchcache [-config file] <command> [args]

commands:
  get|head|delete URL        perform one request
  post|put|patch URL BODY    perform one request with a body (JSON bodies are sent as application/json)
  load [-invalidate] URL     GET through the disk cache
  serve                      run the caching proxy
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fetchcache", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", os.Getenv("FETCHCACHE_CONFIG"), "path to the YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.Init(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to set up logging: %v\n", err)
		return 1
	}

	if cfg.Monitor {
		fetch.Monitor()
		defer func() {
			logger.WithField("fetches", fetch.Fetches()).Infof("Issued %d requests", fetch.FetchesCount())
		}()
	}

	opts, err := cfg.RequestOptions()
	if err != nil {
		fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	executor := fetch.NewExecutor(fetch.WithLogger(logger))
	ctx := context.Background()
	command, rest := fs.Arg(0), fs.Args()[1:]

	switch command {
	case "get", "head", "delete":
		if len(rest) != 1 {
			fs.Usage()
			return 2
		}
		resp, err := request(ctx, executor, command, rest[0], nil, opts)
		return report(stdout, stderr, "", resp, err)

	case "post", "put", "patch":
		if len(rest) != 2 {
			fs.Usage()
			return 2
		}
		resp, err := request(ctx, executor, command, rest[0], parseBody(rest[1]), opts)
		return report(stdout, stderr, "", resp, err)

	case "load":
		loadFlags := flag.NewFlagSet("load", flag.ContinueOnError)
		loadFlags.SetOutput(stderr)
		invalidate := loadFlags.Bool("invalidate", false, "re-fetch even when the URL is cached")
		if err := loadFlags.Parse(rest); err != nil || loadFlags.NArg() != 1 {
			fs.Usage()
			return 2
		}
		opts.Invalidate = *invalidate

		manager := cache.New(cfg.Cache.Folder, cache.WithFetcher(executor), cache.WithLogger(logger))
		resp, source, err := manager.LoadSource(ctx, loadFlags.Arg(0), opts)
		if stats := manager.Stats(); stats.PersistFailures > 0 {
			logger.Warnf("Response was not cached (%d persist failures)", stats.PersistFailures)
		}
		return report(stdout, stderr, source.String(), resp, err)

	case "serve":
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
			return 1
		}
		manager := cache.New(cfg.Cache.Folder, cache.WithFetcher(executor), cache.WithLogger(logger))
		server, err := proxy.New(cfg, manager, logger)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to create proxy server: %v\n", err)
			return 1
		}
		if err := server.Start(); err != nil {
			logger.Errorf("Server failed: %v", err)
			return 1
		}
		return 0

	default:
		fmt.Fprintf(stderr, "unknown command %q\n", command)
		fs.Usage()
		return 2
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func request(ctx context.Context, e *fetch.Executor, command, url string, body any, opts fetch.Options) (*fetch.Response, error) {
	switch command {
	case "head":
		return e.Head(ctx, url, opts)
	case "delete":
		return e.Delete(ctx, url, body, opts)
	case "post":
		return e.Post(ctx, url, body, opts)
	case "put":
		return e.Put(ctx, url, body, opts)
	case "patch":
		return e.Patch(ctx, url, body, opts)
	default:
		return e.Get(ctx, url, opts)
	}
}

// parseBody sends valid JSON objects and arrays as structured data, anything else as raw text
func parseBody(raw string) any {
	var structured any
	if err := json.Unmarshal([]byte(raw), &structured); err == nil {
		switch structured.(type) {
		case map[string]any, []any:
			return structured
		}
	}
	return raw
}

// report prints the response and maps the outcome to an exit code
func report(stdout, stderr io.Writer, source string, resp *fetch.Response, err error) int {
	var httpErr *fetch.HTTPError
	switch {
	case errors.As(err, &httpErr):
		resp = httpErr.Response
	case err != nil:
		fmt.Fprintf(stderr, "Request failed: %v\n", err)
		return 1
	}

	if source != "" {
		fmt.Fprintf(stdout, "%s %d %s\n", source, resp.Status, resp.URL)
	} else {
		fmt.Fprintf(stdout, "%d %s\n", resp.Status, resp.URL)
	}
	if _, writeErr := stdout.Write(resp.Body); writeErr != nil {
		logrus.Errorf("Failed to write response body: %v", writeErr)
	}
	if len(resp.Body) > 0 && resp.Body[len(resp.Body)-1] != '\n' {
		fmt.Fprintln(stdout)
	}

	if httpErr != nil {
		return 1
	}
	return 0
}
