//go:build integration

package itest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/forPelevin/danmaku2ass/internal/pipeline"
	"github.com/forPelevin/danmaku2ass/internal/types"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<i>
<chatserver>chat.example.com</chatserver>
<d p="1.5,1,25,16777215,1600000000,0,0,0">hello</d>
<d p="1.5,1,25,16777215,1600000001,0,0,0">hello again</d>
<d p="2,4,25,16711680,1600000002,0,0,0">red top</d>
<d p="3,5,25,0,1600000003,0,0,0">black bottom</d>
<d p="4,6,25,16777215,1600000004,0,0,0">reversed</d>
<d p="5,7,25,16777215,1600000005,0,0,0">[0.5,0.5,"1-0",3,"fading",0,0]</d>
<d p="6,8,25,16777215,1600000006,0,0,0">script()</d>
<d p="7,1">broken</d>
</i>`

func TestE2E_CLI(t *testing.T) {
	repoRoot := mustRepoRoot(t)
	in := writeFixture(t, "comments.xml", sampleXML)
	report := filepath.Join(filepath.Dir(in), "report.yaml")

	res := runCLI(t, repoRoot, []string{"-s", "1920x1080", "--report", report, in}, nil)
	if res.exitCode != 0 {
		t.Fatalf("cli failed (%d):\n%s", res.exitCode, res.output)
	}

	b, err := os.ReadFile(filepath.Join(filepath.Dir(in), "comments.ass"))
	if err != nil {
		t.Fatalf("missing subtitles: %v", err)
	}
	if !bytes.HasPrefix(b, []byte{0xef, 0xbb, 0xbf}) {
		t.Fatalf("subtitles missing BOM")
	}
	doc := string(b)
	for _, want := range []string{
		"PlayResX: 1920\n",
		`{\move(1920, 0, -125, 0)}hello`,
		`{\an8\pos(960, 0)\c&H0000FF&}red top`,
		`{\an2\pos(960, 1080)\c&H000000&\3c&HFFFFFF&}black bottom`,
		`{\move(-200, 0, 1920, 0)}reversed`,
		`\fad(0, 3000)}fading`,
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("missing %q in:\n%s", want, doc)
		}
	}
	if strings.Contains(doc, "script()") || strings.Contains(doc, "broken") {
		t.Fatalf("dropped comments leaked into output:\n%s", doc)
	}

	rb, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("missing report: %v", err)
	}
	var r types.Report
	if err := yaml.Unmarshal(rb, &r); err != nil {
		t.Fatalf("parse report: %v", err)
	}
	want := types.Stats{Decoded: 6, Invalid: 1, Placed: 5, Positioned: 1}
	if r.Stats != want {
		t.Fatalf("stats = %+v, want %+v", r.Stats, want)
	}
}

func TestE2E_ProbedStageSize(t *testing.T) {
	tmp := t.TempDir()
	video := filepath.Join(tmp, "input.mp4")

	ff := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", "color=c=black:s=1280x720:d=2",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		video,
	)
	if b, err := ff.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
	w, h, err := probeVideoSize(video)
	if err != nil {
		t.Fatalf("probe fixture: %v", err)
	}

	in := writeFixture(t, "comments.xml", sampleXML)
	out := filepath.Join(tmp, "out", "comments.ass")
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg := pipeline.Config{
		Inputs:             []string{in},
		Format:             "xml",
		OutPath:            out,
		VideoPath:          video,
		FFprobePath:        "ffprobe",
		DisplayRegionRatio: 1,
		FontFace:           "sans-serif",
		FontSize:           25,
		Opacity:            1,
		DurationMarquee:    5,
		DurationStill:      5,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	if err := pipeline.Run(ctx, cfg); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("missing subtitles: %v", err)
	}
	header := fmt.Sprintf("PlayResX: %d\nPlayResY: %d\n", w, h)
	if !strings.Contains(string(b), header) {
		t.Fatalf("expected %q in header:\n%s", header, string(b))
	}
}
