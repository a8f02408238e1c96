package ffprobe

import (
	"context"

	"github.com/cockroachdb/errors"
	goffprobe "gopkg.in/vansante/go-ffprobe.v2"
)

type Adapter struct {
	ffprobe string
}

// New uses the ffprobe binary at ffprobePath, or the one on PATH when empty.
// The binary path is process wide in the underlying library.
func New(ffprobePath string) *Adapter {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	goffprobe.SetFFProbeBinPath(ffprobePath)
	return &Adapter{ffprobe: ffprobePath}
}

func (a *Adapter) ProbeResolution(ctx context.Context, path string) (int, int, error) {
	data, err := goffprobe.ProbeURL(ctx, path)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "%s probe %s", a.ffprobe, path)
	}
	return resolution(data)
}

func resolution(data *goffprobe.ProbeData) (int, int, error) {
	if data == nil {
		return 0, 0, errors.New("ffprobe returned no data")
	}
	s := data.FirstVideoStream()
	if s == nil {
		return 0, 0, errors.New("no video stream")
	}
	if s.Width <= 0 || s.Height <= 0 {
		return 0, 0, errors.Newf("invalid video size %dx%d", s.Width, s.Height)
	}
	return s.Width, s.Height, nil
}
