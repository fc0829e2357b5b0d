package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"inkwell/internal/build"
	"inkwell/internal/domain/config"
	"inkwell/internal/serve"
)

const indexPath = ".inkwell/index.db"

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"site.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Output string `short:"o" help:"Output directory, overrides build.public_dir"`
		Drafts bool   `help:"Include draft documents in the build"`
	} `cmd:"" help:"Build the static site"`

	Serve struct {
		Addr string `help:"Listen address" default:":8080"`
	} `cmd:"" help:"Preview the site locally with live reload (drafts included)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		// 配置坏了没得渲染，直接退
		fmt.Fprintln(os.Stderr, "configuration error:", err.Error())
		os.Exit(2)
	}

	switch kctx.Command() {
	case "build":
		if CLI.Build.Output != "" {
			cfg.Build.PublicDir = CLI.Build.Output
		}
		if CLI.Build.Drafts {
			cfg.Build.IncludeDrafts = true
		}

		b := &build.Builder{Cfg: cfg, IndexPath: indexPath, Log: logger}
		res, err := b.Run(context.Background())
		if err != nil {
			logger.Error("build failed", "error", err)
			os.Exit(1)
		}
		if res.ParseErrors.HasAny() {
			// 能渲染的都渲染了，但有文档被排除，退出码要反映出来
			logger.Error("build finished with errors",
				"documents", res.Documents,
				"failed", len(res.ParseErrors),
			)
			os.Exit(1)
		}

	case "serve":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := serve.New(cfg, indexPath, logger)
		if err != nil {
			logger.Error("serve init failed", "error", err)
			os.Exit(1)
		}
		defer s.Close()

		if err := s.ListenAndServe(ctx, CLI.Serve.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve failed", "error", err)
			os.Exit(1)
		}

	default:
		kctx.Fatalf("unknown command")
	}
}
