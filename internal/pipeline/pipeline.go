package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/forPelevin/danmaku2ass/internal/domain/filter"
	"github.com/forPelevin/danmaku2ass/internal/domain/geometry"
	"github.com/forPelevin/danmaku2ass/internal/ports"
	"github.com/forPelevin/danmaku2ass/internal/ports/adapters/ffprobe"
	"github.com/forPelevin/danmaku2ass/internal/types"
	"github.com/forPelevin/danmaku2ass/internal/usecase"
)

// ErrNoStageSize is returned when neither a size nor a video to probe is given.
var ErrNoStageSize = errors.New("stage size is required (set --size or --video)")

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

type Config struct {
	Inputs []string
	Format string
	// OutPath defaults to the first input with an .ass extension.
	OutPath    string
	ReportPath string
	NoBOM      bool

	Width  int
	Height int
	// VideoPath is probed for the stage size when Width or Height is zero.
	VideoPath   string
	FFprobePath string
	Probe       ports.VideoProbe

	DisplayRegionRatio float64
	FontFace           string
	FontSize           float64
	Opacity            float64
	DurationMarquee    float64
	DurationStill      float64

	Patterns       []string
	Block          filter.Options
	BlockRulesPath string
	Reduce         bool

	Logger   *zap.Logger
	Logf     func(format string, args ...any)
	Progress func(done, total int)
	// Zooms is shared between runs of the same process.
	Zooms *geometry.ZoomCache
}

func (c Config) Validate() error {
	if len(c.Inputs) == 0 {
		return errors.New("no input files")
	}
	for _, in := range c.Inputs {
		if _, err := os.Stat(in); err != nil {
			return errors.Wrap(err, "stat input")
		}
	}
	switch usecase.Format(c.Format) {
	case usecase.FormatXML, usecase.FormatProtobuf:
	default:
		return errors.Newf("unknown format %q (want xml or protobuf)", c.Format)
	}
	if c.Width < 0 || c.Height < 0 {
		return errors.Newf("invalid stage size %dx%d", c.Width, c.Height)
	}
	if (c.Width == 0 || c.Height == 0) && c.VideoPath == "" {
		return ErrNoStageSize
	}
	if c.DisplayRegionRatio <= 0 || c.DisplayRegionRatio > 1 {
		return errors.New("display region ratio must be in (0, 1]")
	}
	if c.FontSize <= 0 {
		return errors.New("font size must be > 0")
	}
	if c.Opacity < 0 || c.Opacity > 1 {
		return errors.New("text opacity must be in [0, 1]")
	}
	if c.DurationMarquee <= 0 || c.DurationStill <= 0 {
		return errors.New("durations must be > 0")
	}
	if c.BlockRulesPath != "" {
		if _, err := os.Stat(c.BlockRulesPath); err != nil {
			return errors.Wrap(err, "stat block rules")
		}
	}
	_, err := filter.New(c.Block.Merge(filter.Options{Keywords: c.Patterns}))
	return err
}

func Run(ctx context.Context, cfg Config) error {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	block := cfg.Block
	if cfg.BlockRulesPath != "" {
		rules, err := filter.LoadRules(cfg.BlockRulesPath)
		if err != nil {
			return err
		}
		block = block.Merge(rules)
		logf("block rules: %s", cfg.BlockRulesPath)
	}

	width, height := cfg.Width, cfg.Height
	if width == 0 || height == 0 {
		probe := cfg.Probe
		if probe == nil {
			probe = ffprobe.New(cfg.FFprobePath)
		}
		w, h, err := probe.ProbeResolution(ctx, cfg.VideoPath)
		if err != nil {
			return errors.Wrap(err, "probe stage size")
		}
		width, height = w, h
		logf("stage size from %s: %dx%d", cfg.VideoPath, width, height)
	}

	sources := make([][]byte, 0, len(cfg.Inputs))
	for _, in := range cfg.Inputs {
		b, err := os.ReadFile(in)
		if err != nil {
			return errors.Wrap(err, "read input")
		}
		sources = append(sources, b)
	}
	logf("read %d input(s) as %s", len(sources), cfg.Format)

	uc := usecase.New(usecase.Deps{Logger: cfg.Logger, Zooms: cfg.Zooms})
	res, err := uc.Convert(ctx, usecase.Input{
		Sources:            sources,
		Format:             usecase.Format(cfg.Format),
		Width:              width,
		Height:             height,
		DisplayRegionRatio: cfg.DisplayRegionRatio,
		FontFace:           cfg.FontFace,
		FontSize:           cfg.FontSize,
		Opacity:            cfg.Opacity,
		DurationMarquee:    cfg.DurationMarquee,
		DurationStill:      cfg.DurationStill,
		Patterns:           cfg.Patterns,
		Block:              block,
		Reduce:             cfg.Reduce,
		Progress:           cfg.Progress,
	})
	if err != nil {
		return err
	}

	outPath := cfg.OutPath
	if outPath == "" {
		outPath = defaultOutPath(cfg.Inputs[0])
	}
	doc := []byte(res.Document)
	if !cfg.NoBOM {
		doc = append(append([]byte(nil), utf8BOM...), doc...)
	}
	if err := writeFile(outPath, doc); err != nil {
		return err
	}
	s := res.Stats
	logf("subtitles written: %s", outPath)
	logf("comments: %d decoded, %d invalid, %d blocked, %d placed (%d forced), %d reduced, %d positioned",
		s.Decoded, s.Invalid, s.Blocked, s.Placed, s.Forced, s.Reduced, s.Positioned)

	if cfg.ReportPath == "" {
		return nil
	}
	b, err := yaml.Marshal(types.Report{
		Inputs:  cfg.Inputs,
		Output:  outPath,
		Width:   width,
		Height:  height,
		StyleID: res.StyleID,
		Stats:   res.Stats,
	})
	if err != nil {
		return errors.Wrap(err, "marshal report")
	}
	if err := writeFile(cfg.ReportPath, b); err != nil {
		return err
	}
	logf("report written: %s", cfg.ReportPath)
	return nil
}

func defaultOutPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".ass"
}

func writeFile(path string, b []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create output dir")
		}
	}
	return errors.Wrap(os.WriteFile(path, b, 0o644), "write output")
}

// ensure adapters implement ports
var _ ports.VideoProbe = (*ffprobe.Adapter)(nil)
