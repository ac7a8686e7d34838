// Package main is the companion terminal client.
//
//	companion login -email lumine@mail.com
//	companion builds add -character Xiangling -weapon "The Catch"
//	companion explain Xiangling
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sakif/teyvat-companion/internal/cli"
	"github.com/sakif/teyvat-companion/internal/client"
	"github.com/sakif/teyvat-companion/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.NewClientConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	path := cfg.SessionFile
	if path == "" {
		if path, err = client.DefaultSessionPath(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	session, err := client.LoadSession(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	api := client.NewAPI(cfg.APIURL, session, nil)
	chars := client.NewCharacterSource(cfg.CharactersURL, nil)
	store := client.NewStore(api, chars, session)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp(store, os.Stdin, os.Stdout)
	if err := app.Run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		fmt.Fprintln(os.Stderr, "error:", client.Message(err))
		return 1
	}
	return 0
}
