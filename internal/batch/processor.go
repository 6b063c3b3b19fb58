package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"perc-downscale/internal/downscale"
	"perc-downscale/internal/imageio"
	"perc-downscale/internal/logger"
	"perc-downscale/internal/postprocess"
)

// Config holds all shared resources for a batch run.
type Config struct {
	Downscaler *downscale.Downscaler
	Method     postprocess.Method
	Format     imageio.Format
	Workers    int

	// ProgressInterval defaults to two seconds.
	ProgressInterval time.Duration
}

// Job is one input file and where its result goes.
type Job struct {
	Input  string
	Output string
}

// Result holds the outcome of processing one job.
type Result struct {
	Input   string
	Output  string
	Success bool
	Error   string
	Report  downscale.Report
}

// Collect lists the decodable images directly inside dir, sorted by name,
// with outputs named after them in outputDir.
func Collect(dir, outputDir string, f imageio.Format) ([]Job, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	var jobs []Job
	for _, e := range entries {
		if e.IsDir() || !imageio.IsImagePath(e.Name()) {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		jobs = append(jobs, Job{
			Input:  filepath.Join(dir, e.Name()),
			Output: filepath.Join(outputDir, stem+f.Ext()),
		})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Input < jobs[j].Input })
	return jobs, nil
}

// Run processes all jobs using a worker pool. Jobs not started before ctx is
// done are reported as failed with ctx.Err() and never touch the disk.
func Run(ctx context.Context, cfg Config, jobs []Job) []Result {
	total := len(jobs)
	results := make([]Result, total)
	var processed atomic.Int64

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	interval := cfg.ProgressInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	start := time.Now()
	log := logger.For(ctx)

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					log.Info("Progress",
						"done", p,
						"total", total,
						"images_per_sec", fmt.Sprintf("%.1f", float64(p)/elapsed),
					)
				}
			}
		}
	}()

	// Worker pool
	jobChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				if err := ctx.Err(); err != nil {
					results[idx] = canceled(jobs[idx], err)
					continue
				}
				results[idx] = processJob(ctx, cfg, jobs[idx])
				processed.Add(1)
			}
		}()
	}

	// Send work
	sent := 0
send:
	for ; sent < total; sent++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break send
		case jobChan <- sent:
		}
	}
	close(jobChan)

	wg.Wait()
	close(done)

	for i := sent; i < total; i++ {
		results[i] = canceled(jobs[i], ctx.Err())
	}
	return results
}

func canceled(job Job, err error) Result {
	return Result{
		Input:  job.Input,
		Output: job.Output,
		Error:  err.Error(),
	}
}

func processJob(ctx context.Context, cfg Config, job Job) Result {
	ctx = logger.SetContext(ctx, logger.For(ctx).With("input", job.Input))
	fail := func(err error) Result {
		logger.For(ctx).Error("Failed to process image", "err", err)
		return Result{
			Input:  job.Input,
			Output: job.Output,
			Error:  err.Error(),
		}
	}

	img, _, err := imageio.DecodeFile(job.Input)
	if err != nil {
		return fail(err)
	}

	out, rep, err := Apply(ctx, cfg.Downscaler, cfg.Method, img)
	if err != nil {
		return fail(err)
	}

	if err := imageio.EncodeFile(job.Output, out, cfg.Format); err != nil {
		return fail(err)
	}

	return Result{
		Input:   job.Input,
		Output:  job.Output,
		Success: true,
		Report:  rep,
	}
}
