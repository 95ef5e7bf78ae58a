package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/op/go-logging"
)

type Level int

// The levels that can be passed to the SetLevel function.
const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

var (
	backendLevels = [...]logging.Level{
		Debug:   logging.DEBUG,
		Info:    logging.INFO,
		Notice:  logging.NOTICE,
		Warning: logging.WARNING,
		Error:   logging.ERROR,
	}

	levelNames = [...]string{
		Debug:   "debug",
		Info:    "info",
		Notice:  "notice",
		Warning: "warning",
		Error:   "error",
	}
)

// Formats for terminal and file sinks.
var (
	colorFormat = logging.MustStringFormatter(
		`%{color}[%{time:15:04:05.000}] [%{module}] [%{level:.4s}]%{color:reset} %{message}`,
	)
	plainFormat = logging.MustStringFormatter(
		`[%{time:15:04:05.000}] [%{module}] [%{level:.4s}] %{message}`,
	)
)

// The logger interface
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// Levels survive sink changes.
var state = struct {
	sync.Mutex
	backend      logging.LeveledBackend
	level        Level
	moduleLevels map[string]Level
}{
	level:        Notice,
	moduleLevels: make(map[string]Level),
}

// Create a new named logger.
func New(name string) Logger {
	return logging.MustGetLogger(name)
}

// Override the backend output sink. Only stdout and stderr get colored
// output.
func SetSink(sink io.Writer) {
	format := plainFormat
	if sink == os.Stdout || sink == os.Stderr {
		format = colorFormat
	}

	state.Lock()
	defer state.Unlock()

	backend := logging.NewBackendFormatter(logging.NewLogBackend(sink, "", 0), format)
	state.backend = logging.AddModuleLevel(backend)
	state.backend.SetLevel(backendLevels[state.level], "")
	for module, level := range state.moduleLevels {
		state.backend.SetLevel(backendLevels[level], module)
	}
	logging.SetBackend(state.backend)
}

// Set logger verbosity for all modules without an explicit level.
func SetLevel(level Level) {
	level = clampLevel(level)

	state.Lock()
	defer state.Unlock()
	state.level = level
	state.backend.SetLevel(backendLevels[level], "")
}

// Set the verbosity of a single named logger, e.g. "bvh builder".
func SetModuleLevel(module string, level Level) {
	level = clampLevel(level)

	state.Lock()
	defer state.Unlock()
	state.moduleLevels[module] = level
	state.backend.SetLevel(backendLevels[level], module)
}

// ParseLevel maps a level name such as "debug" or "WARNING" to a Level.
func ParseLevel(name string) (Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for level, levelName := range levelNames {
		if levelName == name {
			return Level(level), nil
		}
	}
	return Error, fmt.Errorf("log: unknown level %q; expected one of %s", name, strings.Join(levelNames[:], ", "))
}

func (l Level) String() string {
	return levelNames[clampLevel(l)]
}

// Out of range levels are clamped.
func clampLevel(level Level) Level {
	if level < Debug {
		return Debug
	}
	if level > Error {
		return Error
	}
	return level
}

func init() {
	SetSink(os.Stdout)
}
