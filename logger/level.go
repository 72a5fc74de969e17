package logger

import (
	"strings"

	"github.com/rs/zerolog"
)

// Level is a pipeline log level as seen by user code.
type Level int

const (
	LevelDebug Level = iota
	LevelVerbose
	LevelNotice
	LevelWarning
)

var levelNames = map[Level]string{
	LevelDebug:   "debug",
	LevelVerbose: "verbose",
	LevelNotice:  "notice",
	LevelWarning: "warning",
}

// String returns the lower-case level name.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "notice"
}

// ParseLevel converts a level name into a Level. Unknown names map to
// LevelNotice and ok=false.
func ParseLevel(name string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, true
	case "verbose":
		return LevelVerbose, true
	case "notice":
		return LevelNotice, true
	case "warning", "warn":
		return LevelWarning, true
	}
	return LevelNotice, false
}

// Zerolog maps the pipeline level onto the zerolog scale.
func (l Level) Zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.TraceLevel
	case LevelVerbose:
		return zerolog.DebugLevel
	case LevelWarning:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}
