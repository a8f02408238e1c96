package ports

import "context"

// VideoProbe reports the frame size of a media file.
type VideoProbe interface {
	ProbeResolution(ctx context.Context, path string) (width, height int, err error)
}
