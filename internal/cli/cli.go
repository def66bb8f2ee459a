package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/flowgrid/internal/app"
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

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("flowgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
Flowgrid - runs a dataflow graph of timed nodes once, to completion.

Usage:
  flowgrid [options] [GRAPH_PATH]

Arguments:
  GRAPH_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	graphFlag := flagSet.String("graph", "", "Path to the graph file or directory.")
	gFlag := flagSet.String("g", "", "Path to the graph file or directory (shorthand).")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health, run-state and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	speedFlag := flagSet.Float64("speed", 1, "Simulation speed factor. 2 runs delays twice as fast.")
	tickFlag := flagSet.Duration("tick", 0, "Tick interval of the executor loop. 0 uses the default.")
	transitFlag := flagSet.Duration("transit", 0, "Visual travel time of a message along a connection.")
	timeoutFlag := flagSet.Duration("timeout", 0, "Abort the run if it has not completed after this long. 0 waits forever.")
	multipleEndsFlag := flagSet.Bool("multiple-ends", false, "Accept graphs with more than one end node.")
	seedFlag := flagSet.Uint64("seed", 0, "Seed for random splitters and constants. 0 picks one per run.")
	strictTimersFlag := flagSet.Bool("strict-timers", true, "Reject graphs where a delay follows an equal or shorter delay.")
	socketURLFlag := flagSet.String("socket-url", "", "Socket.IO server to stream execution events to.")
	socketNSFlag := flagSet.String("socket-namespace", "", "Socket.IO namespace for the event stream.")
	socketInsecureFlag := flagSet.Bool("socket-insecure", false, "Skip TLS verification for the event stream.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *graphFlag != "" {
		path = *graphFlag
	} else if *gFlag != "" {
		path = *gFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Graph path determined.", "path", path)

	if path == "" {
		slog.Debug("No graph path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if *speedFlag <= 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid speed: must be greater than zero"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		GraphPath:       path,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		Speed:           *speedFlag,
		TickInterval:    *tickFlag,
		TransitDelay:    *transitFlag,
		Timeout:         *timeoutFlag,
		StrictTimers:    *strictTimersFlag,
		Seed:            *seedFlag,
		MultipleEnds:    *multipleEndsFlag,
		SocketURL:       *socketURLFlag,
		SocketNamespace: *socketNSFlag,
		SocketInsecure:  *socketInsecureFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
