// Package media renders videos by driving the ffmpeg command-line tool.
package media

import (
	"context"
	"strconv"
)

// Output frame geometry for every rendered video (vertical 9:16).
const (
	FrameWidth  = 1080
	FrameHeight = 1920
)

// zoomFrames is the zoompan duration, in output frames, for each input frame.
const zoomFrames = 125

// Encoder turns a still image and an audio track into a video file.
type Encoder interface {
	// Encode renders params.OutputPath from params.ImagePath and params.AudioPath.
	// It blocks until the encoder exits.
	Encode(ctx context.Context, params EncodeParams) error
}

// EncodeParams describes a single render.
type EncodeParams struct {
	// ImagePath is the still image looped as the video track.
	ImagePath string
	// AudioPath is the audio track muxed into the output.
	AudioPath string
	// OutputPath is where the MP4 is written. An existing file is overwritten.
	OutputPath string
	// Duration is how long, in seconds, the image is looped.
	Duration float64
}

// Validate reports whether the params can be handed to the encoder.
func (p EncodeParams) Validate() error {
	if p.ImagePath == "" || p.AudioPath == "" || p.OutputPath == "" {
		return ErrMissingPath
	}
	if p.Duration <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

// VideoFilter returns the filter chain applied to the image: fit inside the
// frame, pad to exactly the frame centered, then zoom in slowly to 1.5x.
func VideoFilter() string {
	w := strconv.Itoa(FrameWidth)
	h := strconv.Itoa(FrameHeight)
	return "scale=" + w + ":" + h + ":force_original_aspect_ratio=decrease," +
		"pad=" + w + ":" + h + ":(ow-iw)/2:(oh-ih)/2," +
		"zoompan=z='min(zoom+0.0015,1.5)':d=" + strconv.Itoa(zoomFrames) + ":s=" + w + "x" + h
}

// BuildArgs returns the ffmpeg argument list for params. The result is
// deterministic for a given input.
func BuildArgs(params EncodeParams) []string {
	return []string{
		"-y",         // Overwrite the reserved output file
		"-loop", "1", // Repeat the still image
		"-t", strconv.FormatFloat(params.Duration, 'f', -1, 64),
		"-i", params.ImagePath,
		"-i", params.AudioPath,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-pix_fmt", "yuv420p",
		"-vf", VideoFilter(),
		"-shortest",               // Stop at the shorter of image loop and audio
		"-movflags", "+faststart", // moov atom first for progressive playback
		params.OutputPath,
	}
}
