// Command echoes is the terminal front-end of the anonymous echo board.
//
//	echoes feed
//	echoes post <text>
//	echoes reply <echo-id> <text>
//	echoes thread <echo-id>
//	echoes notifications
//	echoes watch [-precise]
//	echoes signature [reset]
//
// Configuration comes from the environment, optionally through a .env file.
package main

import (
	"context"
	"echoes/internal"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the calling shell.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run(os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "echoes: %v\n", err)
	}
	os.Exit(code)
}

// run loads the configuration, wires the store behind the services and dispatches one command.
// Deferred closes run before main exits.
func run(args []string, out io.Writer) (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if len(args) == 0 {
		return exitConfig, errUsage
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Stores & Services
	app, err := newApp(ctx, config, log)
	if err != nil {
		return exitRuntime, err
	}
	defer app.Close()

	// 4. Command
	if err := app.dispatch(ctx, args, newRenderer(out, config.Colours)); err != nil {
		if stderrors.Is(err, errUsage) {
			return exitConfig, err
		}
		return exitRuntime, err
	}
	return exitOK, nil
}
