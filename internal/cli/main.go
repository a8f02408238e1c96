package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:          "danmaku2ass [flags] <input>...",
		Short:        "Convert danmaku comment files into ASS subtitles",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, args)
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	f := root.Flags()
	f.StringP("size", "s", "", "Stage size, WIDTHxHEIGHT")
	f.String("video", "", "Video to probe for the stage size when --size is omitted")
	f.String("ffprobe", "ffprobe", "ffprobe binary used with --video")
	f.StringP("format", "f", "xml", "Input format: xml or protobuf")
	f.StringP("out", "o", "", "Output file (default: first input with .ass extension)")
	f.String("font", "sans-serif", "Font face")
	f.Float64("fontsize", 25, "Font size")
	f.Float64("alpha", 1, "Text opacity, 0 to 1")
	f.Float64("duration-marquee", 5, "Seconds a scrolling comment stays on screen")
	f.Float64("duration-still", 5, "Seconds a top or bottom comment stays on screen")
	f.StringArray("filter", nil, "Drop comments matching this regular expression (repeatable)")
	f.Float64("display-region-ratio", 1, "Share of the stage height comments may use")
	f.Bool("reduce", false, "Drop comments when the screen is full instead of overlapping")
	f.Bool("block-top", false, "Drop top comments")
	f.Bool("block-bottom", false, "Drop bottom comments")
	f.Bool("block-scroll", false, "Drop scrolling comments")
	f.Bool("block-reverse", false, "Drop reverse scrolling comments")
	f.Bool("block-special", false, "Drop positioned comments")
	f.Bool("block-colorful", false, "Drop comments that are not white or black")
	f.StringArray("block-keyword", nil, "Drop comments matching this keyword pattern (repeatable)")
	f.String("block-rules", "", "YAML file with block options")
	f.Bool("no-bom", false, "Do not write a UTF-8 byte order mark")
	f.String("report", "", "Write run statistics as YAML to this file")
	f.BoolP("verbose", "v", false, "Verbose logging")
	f.String("config", "", "Config file with defaults for any flag")

	_ = v.BindPFlags(f)
	v.SetEnvPrefix("DANMAKU2ASS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return root
}
