package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/xplit/internal/buildinfo"
	"github.com/dmitrijs2005/xplit/internal/client/cli"
	"github.com/dmitrijs2005/xplit/internal/client/config"
	"github.com/dmitrijs2005/xplit/internal/flagx"
	"github.com/dmitrijs2005/xplit/internal/logging"
)

// launchURL returns the -open deep link, i.e. the URL the app was started by.
func launchURL(args []string) string {
	var u string
	fs := flag.NewFlagSet("launch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&u, "open", "", "deep link to process at startup")
	_ = fs.Parse(flagx.FilterArgs(args, []string{"-open", "--open"}))
	return u
}

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	app, err := cli.NewApp(ctx, cfg, logger, launchURL(os.Args[1:]))
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "client stopped", "error", err)
		os.Exit(1)
	}
}
