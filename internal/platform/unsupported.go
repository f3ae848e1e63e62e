package platform

import (
	"github.com/logandonley/typecore/internal/logger"
)

type unsupportedBridge struct {
	goos string
	log  logger.Logger
}

func newUnsupportedBridge(goos string, opts Options) Bridge {
	return &unsupportedBridge{goos: goos, log: opts.logger()}
}

func (b *unsupportedBridge) Name() string { return "unsupported" }

func (b *unsupportedBridge) Register(path string) error {
	b.log.Warn("font activation not supported on this platform", logger.String("goos", b.goos))
	return &BridgeError{Op: opRegister, Path: path, Err: ErrUnsupported}
}

func (b *unsupportedBridge) Unregister(path string) error {
	b.log.Warn("font deactivation not supported on this platform", logger.String("goos", b.goos))
	return &BridgeError{Op: opUnregister, Path: path, Err: ErrUnsupported}
}
