package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"cabwatch/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	sinkMu sync.RWMutex
	sink   io.Writer = os.Stdout
)

// Init configures the global zerolog logger. The returned closer releases the
// log file, if one was configured.
func Init(cfg config.LogConfig) (io.Closer, error) {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var out io.Writer = os.Stdout
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}
	var closer io.Closer = nopCloser{}
	raw := io.Writer(os.Stdout)
	if path := strings.TrimSpace(cfg.File); path != "" {
		fw, err := newRotatingWriter(path, cfg.MaxMB)
		if err != nil {
			return nil, err
		}
		closer = fw
		out = io.MultiWriter(out, fw)
		raw = io.MultiWriter(os.Stdout, fw)
	}
	setWriter(raw)

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(out).With().Timestamp().Str("service", cfg.Service).Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
	return closer, nil
}

// Writer is the raw JSON sink, shared with the HTTP request logger.
func Writer() io.Writer {
	sinkMu.RLock()
	defer sinkMu.RUnlock()
	return sink
}

func setWriter(w io.Writer) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	sink = w
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
