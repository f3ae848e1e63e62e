//go:build !windows

package platform

// GDI is only reachable from Windows builds.
func newWindowsBridge(opts Options) (Bridge, error) {
	return newUnsupportedBridge("windows", opts), nil
}
