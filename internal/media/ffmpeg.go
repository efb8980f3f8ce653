package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Static errors for media operations.
var (
	// ErrMissingPath is returned when an input or output path is empty.
	ErrMissingPath = errors.New("media: image, audio and output paths are required")
	// ErrInvalidDuration is returned when duration is not positive.
	ErrInvalidDuration = errors.New("media: duration must be positive")
)

// stderrTailBytes bounds how much ffmpeg output is kept for error reports.
const stderrTailBytes = 8 << 10

// FFmpegEncoder implements Encoder using the ffmpeg CLI.
type FFmpegEncoder struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	logger     *slog.Logger
}

// NewFFmpegEncoder creates a new FFmpegEncoder.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegEncoder(ffmpegPath string, logger *slog.Logger) *FFmpegEncoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegEncoder{ffmpegPath: ffmpegPath, logger: logger}
}

// Encode renders the video described by params.
func (e *FFmpegEncoder) Encode(ctx context.Context, params EncodeParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	args := BuildArgs(params)
	e.logger.Info("ffmpeg command",
		slog.String("path", e.ffmpegPath),
		slog.String("args", strings.Join(args, " ")),
	)

	if err := e.runFFmpeg(ctx, args); err != nil {
		return err
	}

	e.logger.Info("video generation completed", slog.String("output", params.OutputPath))
	return nil
}

// runFFmpeg executes ffmpeg with the given arguments. Output lines are
// logged at debug level; on failure the returned FFmpegError carries the
// tail of stderr.
func (e *FFmpegEncoder) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr := newLineLogger(e.logger, stderrTailBytes)
	cmd.Stderr = stderr

	err := cmd.Run()
	stderr.Flush()
	if err != nil {
		// Check if context was cancelled
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.Tail(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	msg := lastLines(e.Stderr, 3)
	if msg == "" {
		return fmt.Sprintf("ffmpeg error: %v", e.Err)
	}
	return fmt.Sprintf("ffmpeg error: %v: %s", e.Err, msg)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// lastLines returns up to n trailing non-empty lines of s joined by "; ".
func lastLines(s string, n int) string {
	var out []string
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0 && len(out) < n; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			out = append(out, line)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return strings.Join(out, "; ")
}

// lineLogger is an io.Writer that splits ffmpeg output on newlines and
// carriage returns (progress updates), logs each line and keeps a bounded
// tail for error reporting. It is only written from one goroutine.
type lineLogger struct {
	logger  *slog.Logger
	partial []byte
	tail    []byte
	limit   int
}

func newLineLogger(logger *slog.Logger, limit int) *lineLogger {
	return &lineLogger{logger: logger, limit: limit}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.partial = append(l.partial, p...)
	for {
		i := bytes.IndexAny(l.partial, "\r\n")
		if i < 0 {
			break
		}
		l.emit(l.partial[:i])
		l.partial = l.partial[i+1:]
	}
	return len(p), nil
}

// Flush emits any buffered partial line.
func (l *lineLogger) Flush() {
	if len(l.partial) > 0 {
		l.emit(l.partial)
		l.partial = nil
	}
}

// Tail returns the most recent output, at most limit bytes.
func (l *lineLogger) Tail() string {
	return string(l.tail)
}

func (l *lineLogger) emit(line []byte) {
	text := strings.TrimSpace(string(line))
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "frame=") || strings.HasPrefix(text, "size=") {
		l.logger.Debug("ffmpeg progress", slog.String("line", text))
	} else {
		l.logger.Debug("ffmpeg output", slog.String("line", text))
	}

	l.tail = append(l.tail, text...)
	l.tail = append(l.tail, '\n')
	if over := len(l.tail) - l.limit; over > 0 {
		l.tail = l.tail[over:]
	}
}
