// Package logging configures the shared logrus logger: a compact console
// formatter and an optional rotated log file.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gvnuland/Fluvius-API/internal/config"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var setupOnce sync.Once

// LogFormatter renders a single log entry as
// [2026-01-12 20:14:04] [info ] message.
type LogFormatter struct{}

// Format implements logrus.Formatter.
func (m *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	var buffer *bytes.Buffer
	if entry.Buffer != nil {
		buffer = entry.Buffer
	} else {
		buffer = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05")
	message := strings.TrimRight(entry.Message, "\r\n")

	level := entry.Level.String()
	if level == "warning" {
		level = "warn"
	}

	buffer.WriteString(fmt.Sprintf("[%s] [%-5s] %s\n", timestamp, level, message))
	return buffer.Bytes(), nil
}

// SetupBaseLogger installs the formatter and default level. Safe to call more
// than once.
func SetupBaseLogger() {
	setupOnce.Do(func() {
		log.SetFormatter(&LogFormatter{})
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
	})
}

// ConfigureLogOutput optionally mirrors log output into a rotated file in
// the working directory, rotating at 10 MB and keeping three old copies.
func ConfigureLogOutput(cfg *config.Config) {
	if !cfg.LoggingToFile {
		return
	}
	fileWriter := &lumberjack.Logger{
		Filename:   "fluvius.log",
		MaxSize:    10,
		MaxBackups: 3,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, fileWriter))
}
