package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/vk/loom/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments on top of the LOOM_* environment.
// It returns a populated Config, a boolean indicating if the program should
// exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	return ParseWithEnv(args, output, nil)
}

// ParseWithEnv is Parse with an explicit environment; nil reads the process
// environment.
func ParseWithEnv(args []string, output io.Writer, environ map[string]string) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	base, err := app.ConfigFromEnv(environ)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	flagSet := flag.NewFlagSet("loom", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
Loom - bootstraps the visualizations of a rendered page.

Usage:
  loom [options] [PAGE]

Arguments:
  PAGE
    Path to an HTML page, or "-" to read it from stdin.

Options:
`)
		flagSet.PrintDefaults()
	}

	pageFlag := flagSet.String("page", "", "Path to the HTML page.")
	pFlag := flagSet.String("p", "", "Path to the HTML page (shorthand).")
	outFlag := flagSet.String("o", base.OutputPath, "Write the resulting page here instead of stdout.")
	manifestsFlag := flagSet.String("manifests", strings.Join(base.ManifestPaths, ","), "Comma-separated manifest files, directories or globs.")
	skipCatalogFlag := flagSet.Bool("skip-catalog", base.SkipCatalog, "Do not load the built-in adapter catalog.")
	contentFlag := flagSet.String("content-selector", base.ContentSelector, "Selector of the content root used by detection.")
	fetchFlag := flagSet.Bool("fetch-assets", base.FetchAssets, "Download every inserted stylesheet and script.")
	fetchTimeoutFlag := flagSet.Duration("fetch-timeout", base.FetchTimeout, "Timeout of one asset download.")
	stepsFlag := flagSet.String("steps", joinInts(base.Steps), "Comma-separated story step indices to replay, e.g. 0,1,2.")
	sourceFlag := flagSet.String("step-source", base.StepSourceURL, "socket.io URL streaming story steps.")
	eventFlag := flagSet.String("step-event", base.StepEvent, "socket.io event carrying story steps.")
	insecureFlag := flagSet.Bool("insecure-skip-verify", base.InsecureSkipVerify, "Skip TLS verification of the step source.")
	tokenFlag := flagSet.String("mapbox-token", base.MapboxToken, "Site-wide Mapbox access token.")
	healthPortFlag := flagSet.Int("healthcheck-port", base.HealthcheckPort, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", base.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", base.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *pageFlag != "" {
		path = *pageFlag
	} else if *pFlag != "" {
		path = *pFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Page path determined.", "path", path)

	if path == "" {
		slog.Debug("No page path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	steps, err := parseInts(*stepsFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid steps: %v", err)}
	}

	cfg := base
	cfg.PagePath = path
	cfg.OutputPath = *outFlag
	cfg.ManifestPaths = splitList(*manifestsFlag)
	cfg.SkipCatalog = *skipCatalogFlag
	cfg.ContentSelector = *contentFlag
	cfg.FetchAssets = *fetchFlag
	cfg.FetchTimeout = *fetchTimeoutFlag
	cfg.Steps = steps
	cfg.StepSourceURL = *sourceFlag
	cfg.StepEvent = *eventFlag
	cfg.InsecureSkipVerify = *insecureFlag
	cfg.MapboxToken = *tokenFlag
	cfg.HealthcheckPort = *healthPortFlag
	cfg.LogFormat = strings.ToLower(*logFormatFlag)
	cfg.LogLevel = strings.ToLower(*logLevelFlag)

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "page", config.PagePath)
	return config, false, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range splitList(s) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
