package platform

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/logandonley/typecore/internal/logger"
)

const (
	opRegister   = "register"
	opUnregister = "unregister"
)

// ErrUnsupported is reported by the bridge of a platform without an
// activation implementation. It is a normal outcome, not a crash.
var ErrUnsupported = errors.New("font activation is not supported on this platform")

// BridgeError describes a rejected register/unregister call.
type BridgeError struct {
	Op   string // "register" or "unregister"
	Path string // local font file handed to the OS
	Err  error
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *BridgeError) Unwrap() error { return e.Err }

// Bridge registers and unregisters font files with the OS text-rendering
// subsystem. A nil error is the only proof the OS accepted the call; the
// bridge keeps no record of what it has registered.
type Bridge interface {
	// Name identifies the platform implementation ("windows", "linux", ...)
	Name() string

	// Register makes the font at path available to running applications
	Register(path string) error

	// Unregister releases a font previously registered from path
	Unregister(path string) error
}

// CommandRunner executes an external helper such as fc-cache.
type CommandRunner func(name string, args ...string) error

// Options customises bridge construction. Zero values select the real
// environment.
type Options struct {
	HomeDir string
	Run     CommandRunner
	Logger  logger.Logger
}

func (o Options) logger() logger.Logger {
	if o.Logger == nil {
		return logger.Nop()
	}
	return o.Logger.Named("bridge")
}

func (o Options) runner() CommandRunner {
	if o.Run == nil {
		return runCommand
	}
	return o.Run
}

func (o Options) homeDir() (string, error) {
	if o.HomeDir != "" {
		return o.HomeDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	return homeDir, nil
}

// New returns the bridge for the running platform.
func New(opts Options) (Bridge, error) {
	return NewForOS(runtime.GOOS, opts)
}

// NewForOS returns the bridge for goos. Platforms without an implementation
// get a bridge that always fails with ErrUnsupported.
func NewForOS(goos string, opts Options) (Bridge, error) {
	switch goos {
	case "windows":
		return newWindowsBridge(opts)
	case "linux":
		return newLinuxBridge(opts)
	case "darwin":
		return newDarwinBridge(opts)
	default:
		return newUnsupportedBridge(goos, opts), nil
	}
}

func runCommand(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("running %s: %s: %w", name, output, err)
	}
	return nil
}
