package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/forPelevin/danmaku2ass/internal/domain/filter"
	"github.com/forPelevin/danmaku2ass/internal/pipeline"
)

func run(cmd *cobra.Command, v *viper.Viper, inputs []string) error {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrap(err, "read config")
		}
	}

	width, height, err := parseSize(v.GetString("size"))
	if err != nil {
		return err
	}

	verbose := v.GetBool("verbose")
	logger := newLogger(verbose, cmd.ErrOrStderr())
	defer func() { _ = logger.Sync() }()

	cfg := pipeline.Config{
		Inputs:      inputs,
		Format:      v.GetString("format"),
		OutPath:     v.GetString("out"),
		ReportPath:  v.GetString("report"),
		NoBOM:       v.GetBool("no-bom"),
		Width:       width,
		Height:      height,
		VideoPath:   v.GetString("video"),
		FFprobePath: v.GetString("ffprobe"),

		DisplayRegionRatio: v.GetFloat64("display-region-ratio"),
		FontFace:           v.GetString("font"),
		FontSize:           v.GetFloat64("fontsize"),
		Opacity:            v.GetFloat64("alpha"),
		DurationMarquee:    v.GetFloat64("duration-marquee"),
		DurationStill:      v.GetFloat64("duration-still"),

		Patterns: stringList(cmd, v, "filter"),
		Block: filter.Options{
			Top:      v.GetBool("block-top"),
			Bottom:   v.GetBool("block-bottom"),
			Scroll:   v.GetBool("block-scroll"),
			Reverse:  v.GetBool("block-reverse"),
			Special:  v.GetBool("block-special"),
			Colorful: v.GetBool("block-colorful"),
			Keywords: stringList(cmd, v, "block-keyword"),
		},
		BlockRulesPath: v.GetString("block-rules"),
		Reduce:         v.GetBool("reduce"),

		Logger: logger,
		Logf:   logger.Sugar().Infof,
	}
	if !verbose {
		if f, ok := cmd.ErrOrStderr().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			cfg.Progress = progressBar(f)
		}
	}

	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	return pipeline.Run(ctx, cfg)
}

// parseSize reads WIDTHxHEIGHT. An empty string means unknown.
func parseSize(s string) (int, int, error) {
	if s == "" {
		return 0, 0, nil
	}
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, errors.Newf("invalid size %q (want WIDTHxHEIGHT)", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(ws))
	if err != nil {
		return 0, 0, errors.Wrapf(err, "invalid size %q", s)
	}
	h, err := strconv.Atoi(strings.TrimSpace(hs))
	if err != nil {
		return 0, 0, errors.Wrapf(err, "invalid size %q", s)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, errors.Newf("invalid size %q", s)
	}
	return w, h, nil
}

// stringList prefers repeated flags, whose values may contain commas, over
// env and config values.
func stringList(cmd *cobra.Command, v *viper.Viper, name string) []string {
	if cmd.Flags().Changed(name) {
		out, _ := cmd.Flags().GetStringArray(name)
		return out
	}
	return v.GetStringSlice(name)
}

func newLogger(verbose bool, w io.Writer) *zap.Logger {
	level := zap.WarnLevel
	if verbose {
		level = zap.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core)
}

func progressBar(w io.Writer) func(done, total int) {
	const width = 30
	return func(done, total int) {
		if total == 0 {
			return
		}
		n := done * width / total
		fmt.Fprintf(w, "\r[%s%s] %d/%d", strings.Repeat("=", n), strings.Repeat(" ", width-n), done, total)
		if done == total {
			fmt.Fprintln(w)
		}
	}
}
