// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type SetupParams struct {
	Level    string
	FileName string
	// ToStdout also writes to stdout when FileName is set.
	ToStdout   bool
	FormatJSON bool
}

// Setup applies params to the standard logrus logger. The returned closer
// flushes the log file, if any.
func Setup(params SetupParams) io.Closer {
	if params.FormatJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetLevel(GetLevel(params.Level))

	if params.FileName == "" {
		log.SetOutput(os.Stdout)
		return nopCloser{}
	}

	if !strings.HasSuffix(params.FileName, ".log") {
		params.FileName += ".log"
	}

	lj := &lumberjack.Logger{
		Filename:   params.FileName,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		Compress:   true,
	}

	if params.ToStdout {
		log.SetOutput(io.MultiWriter(os.Stdout, lj))
	} else {
		log.SetOutput(lj)
	}
	log.Debugf("logging to %s (stdout=%v)", params.FileName, params.ToStdout)
	return lj
}

// GetLevel parses a level name, defaulting to info.
func GetLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
