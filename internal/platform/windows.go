//go:build windows

package platform

import (
	"fmt"
	"unsafe"

	"github.com/logandonley/typecore/internal/logger"
	"golang.org/x/sys/windows"
)

const (
	hwndBroadcast      = 0xFFFF
	wmFontChange       = 0x001D
	smtoAbortIfHung    = 0x0002
	broadcastTimeoutMs = 1000
)

var (
	gdi32  = windows.NewLazySystemDLL("gdi32.dll")
	user32 = windows.NewLazySystemDLL("user32.dll")

	procAddFontResourceW    = gdi32.NewProc("AddFontResourceW")
	procRemoveFontResourceW = gdi32.NewProc("RemoveFontResourceW")
	procSendMessageTimeoutW = user32.NewProc("SendMessageTimeoutW")
)

// windowsBridge talks to GDI directly. Registration lasts for the session
// only; it is not written to the registry.
type windowsBridge struct {
	log logger.Logger
}

func newWindowsBridge(opts Options) (Bridge, error) {
	return &windowsBridge{log: opts.logger()}, nil
}

func (b *windowsBridge) Name() string { return "windows" }

func (b *windowsBridge) Register(path string) error {
	b.log.Info("activating font", logger.Path(path))
	return b.call(opRegister, procAddFontResourceW, path)
}

func (b *windowsBridge) Unregister(path string) error {
	b.log.Info("deactivating font", logger.Path(path))
	return b.call(opUnregister, procRemoveFontResourceW, path)
}

// call invokes a font-resource primitive. Both return the number of fonts
// affected; anything but a positive count is a rejection.
func (b *windowsBridge) call(op string, proc *windows.LazyProc, path string) error {
	if err := proc.Find(); err != nil {
		return &BridgeError{Op: op, Path: path, Err: err}
	}
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return &BridgeError{Op: op, Path: path, Err: err}
	}

	r, _, callErr := proc.Call(uintptr(unsafe.Pointer(p)))
	if int32(r) <= 0 {
		b.log.Error("os rejected font resource", logger.String("op", op), logger.Path(path))
		return &BridgeError{Op: op, Path: path, Err: fmt.Errorf("%s returned %d: %v", proc.Name, int32(r), callErr)}
	}

	b.broadcast()
	b.log.Info("font resource updated", logger.String("op", op), logger.Path(path))
	return nil
}

// broadcast tells top-level windows that the font table changed. A hung
// window must not block activation, hence the timeout variant.
func (b *windowsBridge) broadcast() {
	var result uintptr
	r, _, err := procSendMessageTimeoutW.Call(
		hwndBroadcast,
		wmFontChange,
		0,
		0,
		smtoAbortIfHung,
		broadcastTimeoutMs,
		uintptr(unsafe.Pointer(&result)),
	)
	if r == 0 {
		b.log.Warn("font change broadcast failed", logger.Error(err))
	}
}
