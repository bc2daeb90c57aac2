package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ytget/ytfetch"
	"github.com/ytget/ytfetch/internal/config"
	"github.com/ytget/ytfetch/internal/jscheck"
	"github.com/ytget/ytfetch/internal/logger"
	"github.com/ytget/ytfetch/internal/ui"
	"github.com/ytget/ytfetch/youtube/formats"
)

func main() {
	var (
		flagList    bool
		flagTitle   string
		flagFormat  string
		flagCipher  bool
		flagHelp    bool
		flagConfig  string
		flagBackend string
		flagOutput  string
		flagVerify  bool
		flagEngine  string
		flagVerbose bool
		flagTrace   bool
	)

	flag.BoolVar(&flagList, "l", false, "List available formats and exit")
	flag.StringVar(&flagTitle, "t", "", "Output file name without extension (default <title>_<id>)")
	flag.StringVar(&flagFormat, "f", "", "Format itag (default highest quality)")
	flag.BoolVar(&flagCipher, "c", false, "Print the signature cipher program; the URL is optional")
	flag.BoolVar(&flagHelp, "h", false, "Show help")
	flag.StringVar(&flagConfig, "config", "", "Config file (default: search $YTFETCH_CONFIG, ./ytfetch.yaml, user config dir)")
	flag.StringVar(&flagBackend, "backend", "", "Transport backend: socket or client")
	flag.StringVar(&flagOutput, "o", "", "Output directory")
	flag.BoolVar(&flagVerify, "verify", false, "With -c, check the program against the player script in a JS engine")
	flag.StringVar(&flagEngine, "engine", jscheck.EngineGoja, "JS engine for -verify: goja or otto")
	flag.BoolVar(&flagVerbose, "v", false, "Debug logging for every component")
	flag.BoolVar(&flagTrace, "vv", false, "Trace logging for every component, including each HTTP response")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <watch_url>\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flagHelp {
		flag.Usage()
		return
	}

	cfg, err := loadConfig(flagConfig)
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.Error(err))
		os.Exit(2)
	}
	if flagBackend != "" {
		cfg.Transport.Backend = flagBackend
	}
	if flagOutput != "" {
		cfg.Output.Directory = flagOutput
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Error(err))
		os.Exit(2)
	}

	lg, err := logger.CreateLoggerFromConfig(&cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.Error(err))
		os.Exit(2)
	}
	if flagVerbose || flagTrace {
		level := logger.DEBUG
		if flagTrace {
			level = logger.TRACE
		}
		lg.SetLevel(level)
		for _, c := range logger.Components {
			lg.EnableComponent(c)
		}
	}
	logger.SetGlobalLogger(lg)
	log := logger.WithComponent(logger.ComponentApp)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	videoURL := strings.TrimSpace(flag.Arg(0))
	if videoURL != "" {
		if err := ytfetch.ValidateURL(videoURL); err != nil {
			fmt.Fprintln(os.Stderr, ui.Error(err))
			os.Exit(2)
		}
	}

	d := ytfetch.New().WithConfig(cfg).WithFormat(flagFormat).WithFileName(flagTitle)

	switch {
	case flagCipher:
		err = printCipher(ctx, d, videoURL, flagVerify, flagEngine)
	case videoURL == "":
		flag.Usage()
		os.Exit(2)
	case flagList:
		err = listFormats(ctx, d, videoURL)
	default:
		err = download(ctx, d, videoURL, cfg.Output.ProgressStyle)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.Error(err))
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		log.Fatal("run failed", map[string]interface{}{"error": err.Error(), "state": d.State().String()})
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	cfg := config.DefaultConfig()
	if err := cfg.LoadFile(path); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func printCipher(ctx context.Context, d *ytfetch.Downloader, videoURL string, verify bool, engine string) error {
	info, err := d.Cipher(ctx, videoURL)
	if err != nil {
		return err
	}
	fmt.Printf("video:  %s\nplayer: %s\n", info.VideoURL, info.PlayerURL)
	fmt.Println(info.Program.String())
	if !verify {
		return nil
	}

	e, err := jscheck.New(engine)
	if err != nil {
		return err
	}
	if err := jscheck.Verify(ctx, e, info.Script, info.Program, jscheck.Samples(8)); err != nil {
		return err
	}
	fmt.Println(ui.Success("program matches the player script (" + e.Name() + ")"))
	return nil
}

func listFormats(ctx context.Context, d *ytfetch.Downloader, videoURL string) error {
	info, err := d.Formats(ctx, videoURL)
	if err != nil {
		return err
	}
	if info.Title != "" {
		fmt.Println(info.Title)
	}
	fmt.Print(ui.FormatTable(formats.List(info.Formats)))
	return nil
}

func download(ctx context.Context, d *ytfetch.Downloader, videoURL, style string) error {
	bar := ui.NewProgress(os.Stdout, style, "downloading")
	d.WithProgress(func(p ytfetch.Progress) {
		bar.Update(p.DownloadedSize, p.TotalSize)
	})

	res, err := d.Download(ctx, videoURL)
	if err != nil {
		return err
	}
	fmt.Println(ui.Saved(res.Path, res.Size))
	return nil
}
