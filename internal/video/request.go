// Package video orchestrates one render: fetch the image and audio, run the
// encoder, read the result back and clean up every temp file.
package video

import (
	"errors"
	"strconv"
	"strings"
)

// Defaults applied to optional request fields.
const (
	DefaultDuration    = 8.0
	DefaultCompanyName = "Company"
	DefaultDay         = 1
)

// ContentType is the media type of every rendered video.
const ContentType = "video/mp4"

// ErrInvalidRequest is returned when imageUrl or audioUrl is missing.
var ErrInvalidRequest = errors.New("video: imageUrl and audioUrl are required")

// Request describes one video to render.
type Request struct {
	// ID names the render in logs and temp files. Empty means one is generated.
	ID          string
	ImageURL    string
	AudioURL    string
	Duration    float64
	CompanyName string
	Day         int
}

// WithDefaults returns a copy of r with defaults filled in for zero values.
// A non-positive duration is treated as unset.
func (r Request) WithDefaults() Request {
	if r.Duration <= 0 {
		r.Duration = DefaultDuration
	}
	if r.CompanyName == "" {
		r.CompanyName = DefaultCompanyName
	}
	if r.Day == 0 {
		r.Day = DefaultDay
	}
	return r
}

// Validate checks that both source URLs are present.
func (r Request) Validate() error {
	if strings.TrimSpace(r.ImageURL) == "" || strings.TrimSpace(r.AudioURL) == "" {
		return ErrInvalidRequest
	}
	return nil
}

// Filename returns the download name: {companyName}_meme_day{day}.mp4.
func (r Request) Filename() string {
	return r.CompanyName + "_meme_day" + strconv.Itoa(r.Day) + ".mp4"
}
