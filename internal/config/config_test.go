package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"perc-downscale/internal/imageio"
	"perc-downscale/internal/postprocess"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
		"factor": 3,
		"gamma_correct": false,
		"tileable": true,
		"method": "box",
		"format": "webp",
		"output_dir": "out",
		"workers": 2,
		"parallel_channels": true
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Factor != 3 || cfg.Gamma() || !cfg.Tileable || cfg.Method != "box" ||
		cfg.Format != "webp" || cfg.OutputDir != "out" || cfg.Workers != 2 || !cfg.Parallel {
		t.Errorf("Load = %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil || !strings.HasPrefix(err.Error(), "config: read") {
		t.Errorf("missing file error = %v", err)
	}
	if _, err := Load(writeConfig(t, "{not json")); err == nil || !strings.HasPrefix(err.Error(), "config: parse") {
		t.Errorf("bad json error = %v", err)
	}
}

func TestResolveDefaults(t *testing.T) {
	var cfg Config
	cfg.Resolve(Flags{Factor: 2})
	if !cfg.Gamma() {
		t.Error("gamma correction off by default")
	}
	if cfg.Tileable {
		t.Error("tileable on by default")
	}
	if cfg.MethodValue() != postprocess.Perceptual {
		t.Errorf("method = %q", cfg.Method)
	}
	if cfg.FormatValue() != imageio.FormatPNG {
		t.Errorf("format = %q", cfg.Format)
	}
	if cfg.Workers != runtime.NumCPU() {
		t.Errorf("workers = %d", cfg.Workers)
	}
	if cfg.Manifest != "" {
		t.Errorf("manifest = %q without output dir", cfg.Manifest)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	opts := cfg.Options()
	if opts.Factor != 2 || !opts.GammaCorrect || opts.Tileable || opts.Parallel {
		t.Errorf("Options() = %+v", opts)
	}
}

func TestResolveFlagsOverrideFile(t *testing.T) {
	off := false
	on := true
	cfg := Config{Factor: 4, Tileable: true, Method: "box", Workers: 3, OutputDir: "file-out", Manifest: "m.json"}
	cfg.Resolve(Flags{
		Factor:       5,
		GammaCorrect: &off,
		Tileable:     &off,
		Method:       "catmullrom",
		Workers:      7,
		Parallel:     &on,
		OutputDir:    "flag-out",
		OutputPath:   "x.webp",
	})
	if cfg.Factor != 5 || cfg.Gamma() || cfg.Tileable || cfg.Method != "catmullrom" || cfg.Workers != 7 || !cfg.Parallel {
		t.Errorf("Resolve = %+v", cfg)
	}
	if cfg.OutputDir != "flag-out" {
		t.Errorf("output dir = %q", cfg.OutputDir)
	}
	if want := filepath.Join("flag-out", "m.json"); cfg.Manifest != want {
		t.Errorf("manifest = %q, want %q", cfg.Manifest, want)
	}
	if cfg.FormatValue() != imageio.FormatWebP {
		t.Errorf("format = %q, want inferred webp", cfg.Format)
	}
}

func TestResolveManifestDefault(t *testing.T) {
	var cfg Config
	cfg.Resolve(Flags{Factor: 2, OutputDir: "out"})
	if want := filepath.Join("out", "manifest.json"); cfg.Manifest != want {
		t.Errorf("manifest = %q, want %q", cfg.Manifest, want)
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		cfg  Config
		want []string
	}{
		{name: "factor_one", cfg: Config{Factor: 1, Method: "box", Format: "png"}, want: []string{"factor 1"}},
		{name: "bad_method", cfg: Config{Factor: 2, Method: "lanczos", Format: "png"}, want: []string{"lanczos"}},
		{name: "all_bad", cfg: Config{Factor: 0, Method: "x", Format: "gif"}, want: []string{"factor 0", `"x"`, `"gif"`}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if err == nil {
				t.Fatal("Validate succeeded")
			}
			for _, w := range tc.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("error %q missing %q", err, w)
				}
			}
		})
	}
}
