package plugin

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// Stash reads plugin log lines on stderr. Each line is framed with a
// one-byte level marker between SOH and STX control characters, so log
// output cannot be confused with arbitrary stderr noise.
const (
	levelStart = '\x01'
	levelEnd   = '\x02'
)

// Protocol level markers.
const (
	levelTrace    = 't'
	levelDebug    = 'd'
	levelInfo     = 'i'
	levelWarning  = 'w'
	levelError    = 'e'
	levelProgress = 'p'
)

// LogWriter frames log lines for the Stash plugin protocol. It implements
// zerolog.LevelWriter so a zerolog logger can write straight to it.
type LogWriter struct {
	// Out is the destination, os.Stderr when nil.
	Out io.Writer

	mu sync.Mutex
}

// Write implements io.Writer; lines without a known level go out as info.
func (w *LogWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.InfoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter by mapping the zerolog level to
// a protocol marker and framing the line.
func (w *LogWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if err := w.writeLine(protocolLevel(level), p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Progress reports the completed fraction of the running task to Stash.
// The value is clamped to [0, 1]. Fire-and-forget: errors are discarded.
func (w *LogWriter) Progress(fraction float64) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	_ = w.writeLine(levelProgress, []byte(strconv.FormatFloat(fraction, 'f', -1, 64)))
}

// writeLine frames one newline-terminated line under the given marker.
func (w *LogWriter) writeLine(marker byte, p []byte) error {
	out := w.Out
	if out == nil {
		out = os.Stderr
	}

	p = bytes.TrimRight(p, "\n")

	buf := make([]byte, 0, len(p)+4)
	buf = append(buf, levelStart, marker, levelEnd)
	buf = append(buf, p...)
	buf = append(buf, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := out.Write(buf)
	return err
}

// protocolLevel maps a zerolog level to its protocol marker.
func protocolLevel(level zerolog.Level) byte {
	switch level {
	case zerolog.TraceLevel:
		return levelTrace
	case zerolog.DebugLevel:
		return levelDebug
	case zerolog.InfoLevel:
		return levelInfo
	case zerolog.WarnLevel:
		return levelWarning
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return levelError
	default:
		return levelInfo
	}
}
