// package capture records a fixed-length clip of system audio from an
// external capture command.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/charmbracelet/log"
	"github.com/waaaaall/snaptrack/internal/shared"
)

// DefaultDuration is the clip length used when the config leaves it unset.
const DefaultDuration = 10 * time.Second

// Source opens an encoded audio stream. The stream format is opaque to the
// rest of the program; it is forwarded to the recognition service as-is.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// CommandSource runs an external program (typically ffmpeg reading the
// system monitor device) and streams its stdout.
type CommandSource struct {
	Command string
	Args    []string
	Logger  *log.Logger
}

// NewCommandSource creates a source for the configured capture command.
func NewCommandSource(cfg shared.CaptureConfig, logger *log.Logger) *CommandSource {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CommandSource{
		Command: cfg.Command,
		Args:    cfg.Args,
		Logger:  logger,
	}
}

// Open starts the capture command. The returned stream's Close kills the
// process; the command is expected to write audio until killed.
func (s *CommandSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.Command == "" {
		return nil, fmt.Errorf("%w: no capture command configured", shared.ErrCaptureFailed)
	}

	cmd := exec.CommandContext(ctx, s.Command, s.Args...)
	cmd.Stderr = io.Discard

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCaptureFailed, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCaptureFailed, err)
	}

	s.Logger.Debug("capture command started", "command", s.Command, "pid", cmd.Process.Pid)
	return &commandStream{ReadCloser: stdout, cmd: cmd}, nil
}

// commandStream ties the stdout pipe's lifetime to the process.
type commandStream struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (c *commandStream) Close() error {
	c.ReadCloser.Close()
	if c.cmd.Process != nil {
		c.cmd.Process.Kill()
	}
	c.cmd.Wait()
	return nil
}

// Recorder reads a fixed-duration clip from a [Source].
//
// Once the stream is open the recording cannot fail: whatever bytes arrived
// by the deadline form the clip, and an empty clip is still a valid clip.
type Recorder struct {
	source   Source
	duration time.Duration
	monitor  io.Writer
	logger   *log.Logger
}

// NewRecorder creates a recorder over the given source.
//
// When monitor is non-nil every captured byte is also copied to it, so the
// user can hear or inspect what is being recorded.
func NewRecorder(source Source, duration time.Duration, monitor io.Writer, logger *log.Logger) *Recorder {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Recorder{
		source:   source,
		duration: duration,
		monitor:  monitor,
		logger:   logger,
	}
}

// NewRecorderFromConfig wires a recorder from the capture config section.
func NewRecorderFromConfig(cfg shared.CaptureConfig, logger *log.Logger) *Recorder {
	var monitor io.Writer
	if cfg.Monitor {
		monitor = os.Stdout
	}
	return NewRecorder(
		NewCommandSource(cfg, logger),
		time.Duration(cfg.DurationSeconds)*time.Second,
		monitor,
		logger,
	)
}

// Duration returns the configured clip length.
func (r *Recorder) Duration() time.Duration {
	return r.duration
}

// Record captures one clip.
//
// progress, when non-nil, is called with the remaining time once at the start
// and then after each elapsed second. The clip is returned when the duration
// elapses or ctx is cancelled, whichever comes first.
func (r *Recorder) Record(ctx context.Context, progress func(remaining time.Duration)) ([]byte, error) {
	stream, err := r.source.Open(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	var dst io.Writer = &buf
	if r.monitor != nil {
		dst = io.MultiWriter(&buf, r.monitor)
	}

	copied := make(chan struct{})
	go func() {
		defer close(copied)
		if _, err := io.Copy(dst, stream); err != nil {
			r.logger.Debug("capture stream ended", "error", err)
		}
	}()

	remaining := r.duration
	if progress != nil {
		progress(remaining)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	deadline := time.NewTimer(r.duration)
	defer deadline.Stop()

	for {
		select {
		case <-ticker.C:
			remaining -= time.Second
			if progress != nil && remaining > 0 {
				progress(remaining)
			}
		case <-ctx.Done():
			stream.Close()
			<-copied
			return buf.Bytes(), ctx.Err()
		case <-deadline.C:
			stream.Close()
			<-copied
			r.logger.Debug("clip recorded", "bytes", buf.Len(), "duration", r.duration)
			return buf.Bytes(), nil
		}
	}
}
