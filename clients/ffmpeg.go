package clients

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/maastricht-university/vocal-eval/audio"
)

// FFmpeg decodes audio files to mono float PCM at audio.SampleRate by
// running the ffmpeg binary.
type FFmpeg struct {
	Bin        string
	MaxSeconds int
}

func (f *FFmpeg) args(path string) []string {
	args := []string{
		"-hide_banner", "-v", "error",
		"-i", path,
		"-ac", "1",
		"-ar", strconv.Itoa(audio.SampleRate),
	}
	if f.MaxSeconds > 0 {
		args = append(args, "-t", strconv.Itoa(f.MaxSeconds))
	}
	return append(args, "-f", "f32le", "pipe:1")
}

func (f *FFmpeg) Decode(ctx context.Context, path string) ([]float64, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	bin := f.Bin
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin, f.args(path)...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return readF32LE(&out)
}
