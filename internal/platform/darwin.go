package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// newDarwinBridge activates fonts by copying them into ~/Library/Fonts.
// The font server does not follow symlinks there, so entries are copies.
func newDarwinBridge(opts Options) (Bridge, error) {
	homeDir, err := opts.homeDir()
	if err != nil {
		return nil, err
	}

	fontsDir := filepath.Join(homeDir, "Library/Fonts")

	return &userDirBridge{
		name:  "darwin",
		dir:   filepath.Join(fontsDir, activationDirName),
		place: copyFile,
		refresh: func() error {
			// touching the fonts directory makes fontd rescan it
			now := time.Now()
			if err := os.Chtimes(fontsDir, now, now); err != nil {
				return fmt.Errorf("updating directory timestamp: %w", err)
			}
			return nil
		},
		log: opts.logger(),
	}, nil
}
