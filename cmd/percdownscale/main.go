package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"golang.org/x/exp/slog"

	"perc-downscale/internal/batch"
	"perc-downscale/internal/colormodel"
	"perc-downscale/internal/config"
	"perc-downscale/internal/downscale"
	"perc-downscale/internal/imageio"
	"perc-downscale/internal/logger"
)

var (
	configFile = flag.String("config", "", "Path to config.json file")
	inPath     = flag.String("in", "", "Input image (default: stdin)")
	outPath    = flag.String("out", "", "Output image (default: stdout)")
	dir        = flag.String("dir", "", "Downscale every image in this directory (batch mode)")
	outputDir  = flag.String("output", "", "Output directory for batch mode")
	factor     = flag.Int("factor", 0, "Downscaling factor, an integer >= 2 (or pass it as the only argument)")
	gamma      = flag.Bool("gamma", true, "Convert colors in linear light")
	tile       = flag.Bool("tile", false, "Treat the image as a tileable texture (wrap patch borders)")
	method     = flag.String("method", "", "perceptual (default), box, bilinear or catmullrom")
	format     = flag.String("format", "", "Output format: png, webp or tga (default: from -out extension, else png)")
	workers    = flag.Int("workers", 0, "Batch worker goroutines (default: NumCPU)")
	parallel   = flag.Bool("parallel", false, "Resample the four channels of an image concurrently")
	verbose    = flag.Bool("v", false, "Log debug messages")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <downscaling_factor> < in.png > out.png\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if code := run(); code != 0 {
		os.Exit(code)
	}
}

func run() int {
	log := logger.New(os.Stderr, *verbose)
	ctx, stop := signal.NotifyContext(logger.SetContext(context.Background(), log), os.Interrupt)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		log.Error("Invalid arguments", "err", err)
		flag.Usage()
		return 1
	}

	var table *colormodel.Table
	if cfg.Gamma() {
		table = colormodel.NewTable()
	}
	ds, err := downscale.New(cfg.Options(), table)
	if err != nil {
		log.Error("Invalid arguments", "err", err)
		return 1
	}

	if *dir != "" {
		return runBatch(ctx, cfg, ds)
	}
	if err := runSingle(ctx, cfg, ds); err != nil {
		log.Error("Failed to downscale image", "err", err)
		return 1
	}
	return 0
}

func loadConfig() (config.Config, error) {
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			return cfg, err
		}
	}

	flags := config.Flags{
		Factor:     *factor,
		Method:     *method,
		Format:     *format,
		OutputDir:  *outputDir,
		Workers:    *workers,
		OutputPath: *outPath,
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "gamma":
			flags.GammaCorrect = gamma
		case "tile":
			flags.Tileable = tile
		case "parallel":
			flags.Parallel = parallel
		}
	})

	switch flag.NArg() {
	case 0:
	case 1:
		s, err := strconv.Atoi(flag.Arg(0))
		if err != nil {
			return cfg, fmt.Errorf("invalid downscaling factor %q", flag.Arg(0))
		}
		flags.Factor = s
	default:
		return cfg, errors.New("too many arguments")
	}

	cfg.Resolve(flags)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if *dir != "" && cfg.OutputDir == "" {
		return cfg, errors.New("batch mode needs -output or output_dir")
	}
	return cfg, nil
}

func runSingle(ctx context.Context, cfg config.Config, ds *downscale.Downscaler) error {
	var r io.Reader = os.Stdin
	if *inPath != "" && *inPath != "-" {
		f, err := os.Open(*inPath)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	img, _, err := imageio.Decode(r)
	if err != nil {
		return err
	}

	out, _, err := batch.Apply(ctx, ds, cfg.MethodValue(), img)
	if err != nil {
		return err
	}

	if *outPath != "" && *outPath != "-" {
		return imageio.EncodeFile(*outPath, out, cfg.FormatValue())
	}
	return imageio.Encode(os.Stdout, out, cfg.FormatValue())
}

func runBatch(ctx context.Context, cfg config.Config, ds *downscale.Downscaler) int {
	log := logger.For(ctx)

	jobs, err := batch.Collect(*dir, cfg.OutputDir, cfg.FormatValue())
	if err != nil {
		log.Error("Failed to list input directory", "err", err, "dir", *dir)
		return 1
	}
	if len(jobs) == 0 {
		log.Info("No images to downscale", "dir", *dir)
		return 0
	}

	log.Info("Downscaling",
		"images", len(jobs),
		"factor", cfg.Factor,
		"method", cfg.Method,
		"gamma_correct", cfg.Gamma(),
		"tileable", cfg.Tileable,
		"workers", cfg.Workers,
		"output", cfg.OutputDir,
	)

	start := time.Now()
	results := batch.Run(ctx, batch.Config{
		Downscaler: ds,
		Method:     cfg.MethodValue(),
		Format:     cfg.FormatValue(),
		Workers:    cfg.Workers,
	}, jobs)

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	log.Info("Done",
		"elapsed", time.Since(start).Round(time.Millisecond),
		"ok", len(results)-failed,
		"failed", failed,
	)

	if err := batch.WriteManifest(cfg.Manifest, results); err != nil {
		log.Warn("Manifest write failed", "err", err, "path", cfg.Manifest)
	} else {
		log.Info("Manifest written", slog.String("path", cfg.Manifest))
	}

	if failed > 0 {
		return 1
	}
	return 0
}
