package platform

import (
	"os"
	"path/filepath"
)

// newLinuxBridge activates fonts through fontconfig: a symlink in the user
// font directory followed by an fc-cache run, which is what fontconfig
// clients watch for changes.
func newLinuxBridge(opts Options) (Bridge, error) {
	homeDir, err := opts.homeDir()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(homeDir, ".local/share/fonts", activationDirName)
	run := opts.runner()

	return &userDirBridge{
		name:  "linux",
		dir:   dir,
		place: os.Symlink,
		refresh: func() error {
			return run("fc-cache", "-f", dir)
		},
		log: opts.logger(),
	}, nil
}
