// Package bedlog is bedrockd's leveled logger: a thin wrapper over
// go-logging giving every package a module-scoped logger (raknet, mcpe,
// world, endpoint, ...) while keeping the startup banner and section
// headers the server prints as plain console art.
package bedlog

import (
	"fmt"
	"io"
	"os"

	logging "gopkg.in/op/go-logging.v1"
)

var (
	backend      logging.LeveledBackend
	root         = logging.MustGetLogger("bedrockd")
	maxLogLength int
)

func init() {
	format := logging.MustStringFormatter(
		`%{color}%{time:15:04:05.000} %{level:.4s}%{color:reset} %{module}: %{message}`,
	)
	raw := logging.NewLogBackend(truncatingWriter{os.Stderr}, "", 0)
	formatted := logging.NewBackendFormatter(raw, format)
	backend = logging.AddModuleLevel(formatted)
	backend.SetLevel(logging.INFO, "")
	logging.SetBackend(backend)
}

// truncatingWriter caps each formatted line at maxLogLength bytes before it
// reaches w, so a single oversized message (chat text, a packet dump) can't
// blow up the log file. maxLogLength <= 0 means unlimited.
type truncatingWriter struct{ w io.Writer }

func (t truncatingWriter) Write(p []byte) (int, error) {
	out := p
	if maxLogLength > 0 && len(out) > maxLogLength {
		out = append(p[:maxLogLength:maxLogLength], '\n')
	}
	if _, err := t.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// SetMaxLength caps every subsequent log line at n bytes; n <= 0 disables
// truncation. Matches config.Config's tolerant style: called once at
// startup, before any meaningful logging volume.
func SetMaxLength(n int) {
	maxLogLength = n
}

// SetLevel sets the minimum logged level by name: DEBUG, INFO, WARNING,
// ERROR, or CRITICAL. Unrecognized names are ignored and INFO stays in
// effect, matching config.Config's tolerant defaults.
func SetLevel(name string) {
	lvl, err := logging.LogLevel(name)
	if err != nil {
		return
	}
	backend.SetLevel(lvl, "")
}

// For returns a logger scoped to module, the name printed in every line
// (e.g. "raknet", "mcpe", "world").
func For(module string) *logging.Logger {
	return logging.MustGetLogger(module)
}

func Debug(format string, args ...interface{})   { root.Debugf(format, args...) }
func Info(format string, args ...interface{})    { root.Infof(format, args...) }
func Warn(format string, args ...interface{})    { root.Warningf(format, args...) }
func Error(format string, args ...interface{})   { root.Errorf(format, args...) }
func Fatal(format string, args ...interface{}) {
	root.Errorf(format, args...)
	os.Exit(1)
}

// Banner prints the startup banner. Decorative console art, not a logging
// concern, so it writes straight to stdout rather than through a logger.
func Banner(title, version string) {
	const art = `
╔═══════════════════════════════════════════════════════════╗
║                                                             ║
║   ██████╗ ███████╗██████╗ ██████╗  ██████╗  ██████╗██╗  ██╗║
║   ██╔══██╗██╔════╝██╔══██╗██╔══██╗██╔═══██╗██╔════╝██║ ██╔╝║
║   ██████╔╝█████╗  ██║  ██║██████╔╝██║   ██║██║     █████╔╝ ║
║   ██╔══██╗██╔══╝  ██║  ██║██╔══██╗██║   ██║██║     ██╔═██╗ ║
║   ██████╔╝███████╗██████╔╝██║  ██║╚██████╔╝╚██████╗██║  ██╗║
║   ╚═════╝ ╚══════╝╚═════╝ ╚═╝  ╚═╝ ╚═════╝  ╚═════╝╚═╝  ╚═╝║
║                                                             ║
║              %-45s ║
║                    version %-10s               ║
║                                                             ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Printf(art, title, version)
}

// Section prints a plain section divider to stdout.
func Section(title string) {
	border := "───────────────────────────────────────────────────────────"
	fmt.Printf("\n%s\n %s\n%s\n\n", border, title, border)
}
