package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/logandonley/typecore/internal/httpserver"
	"github.com/logandonley/typecore/pkg/fm"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath string
	logLevel   string
	current    *app
)

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if current != nil {
		current.close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "typecore",
	Short: "typecore is a font catalog and activation manager",
	Long: `Catalog the fonts on this machine and from remote directories, and
activate or deactivate them for the current session without installing them.

Examples:
  # Catalog every font below a directory
  typecore scan ~/Design/fonts

  # Pull the 50 most popular Google Fonts into the catalog
  typecore sync --api-key $KEY --limit 50

  # Activate a local font and a remote one
  typecore activate /home/me/Design/fonts/Inter.ttf "Roboto@google"

  # Activate every font listed in a file
  typecore activate -f fonts.txt`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), configPath, logLevel)
		if err != nil {
			return err
		}
		current = a
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [directory] | --system",
	Short: "Catalog the fonts below a directory",
	Args: func(cmd *cobra.Command, args []string) error {
		system, _ := cmd.Flags().GetBool("system")
		if system {
			if len(args) > 0 {
				return fmt.Errorf("when using --system, no directory should be provided")
			}
			return nil
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		system, _ := cmd.Flags().GetBool("system")

		var result fm.ScanResult
		if system {
			fmt.Println("Scanning system font directories...")
			result = current.manager.ScanSystem(cmd.Context())
		} else {
			fmt.Printf("Scanning %s...\n", args[0])
			var err error
			result, err = current.manager.ScanDirectory(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("scanning %s: %w", args[0], err)
			}
		}

		fmt.Printf("\nScan Summary:\n")
		fmt.Printf("Font files found: %d\n", result.Found)
		fmt.Printf("Cataloged: %d (%d new)\n", result.Cataloged, result.Inserted)
		if result.Failed() > 0 {
			fmt.Printf("Failed: %d\n", result.Failed())
			for _, f := range result.Failures {
				fmt.Printf("  - %s: %v\n", f.Path, f.Err)
			}
		}
		if len(result.DirErrors) > 0 {
			fmt.Printf("Unreadable directories: %d\n", len(result.DirErrors))
		}
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Add fonts from a remote directory to the catalog",
	Long: `Add fonts from a remote directory to the catalog. Nothing is
downloaded until a remote font is activated.

Directories: google (needs an API key), fontsource.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		directory, _ := cmd.Flags().GetString("directory")
		limit, _ := cmd.Flags().GetInt("limit")
		apiKey, _ := cmd.Flags().GetString("api-key")
		if limit <= 0 {
			limit = current.cfg.Sync.Limit
		}

		fmt.Printf("Syncing up to %d fonts from %s...\n", limit, directory)
		var (
			result fm.SyncResult
			err    error
		)
		if directory == "google" {
			if apiKey == "" {
				apiKey = current.cfg.Google.APIKey
			}
			result, err = current.manager.SyncGoogleFonts(cmd.Context(), apiKey, limit)
		} else {
			result, err = current.manager.Sync(cmd.Context(), directory, limit)
		}
		if err != nil {
			return fmt.Errorf("syncing %s: %w", directory, err)
		}

		fmt.Printf("Added %d new fonts (%d already cataloged, %d without files)\n",
			result.Inserted, result.Existing, result.Skipped)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cataloged fonts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		activeOnly, _ := cmd.Flags().GetBool("active")

		fonts, err := current.manager.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing fonts: %w", err)
		}

		shown := 0
		for _, font := range fonts {
			if activeOnly && !font.Activated {
				continue
			}
			if shown == 0 {
				fmt.Println("Cataloged fonts:")
			}
			state := " "
			if font.Activated {
				state = "*"
			}
			fmt.Printf("%s %s %s (%s)\n", state, font.Family, font.Subfamily, font.Identity)
			shown++
		}
		if shown == 0 {
			fmt.Println("No fonts cataloged")
		}
		return nil
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle [identity]",
	Short: "Activate an inactive font or deactivate an active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identity, err := fm.ParseFontSpec(args[0])
		if err != nil {
			return err
		}
		rec, err := current.manager.Toggle(cmd.Context(), identity)
		if err != nil {
			return fmt.Errorf("toggling %s: %w", identity, err)
		}
		if rec.Activated {
			fmt.Printf("Activated %s %s\n", rec.Family, rec.Subfamily)
		} else {
			fmt.Printf("Deactivated %s %s\n", rec.Family, rec.Subfamily)
		}
		return nil
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate [fonts...] | -f <file>",
	Short: "Activate one or more fonts",
	Long: `Activate one or more cataloged fonts. A font is named by its file
path, its identity ("google://Roboto") or as Family@directory.`,
	Args: func(cmd *cobra.Command, args []string) error {
		fileFlag, _ := cmd.Flags().GetString("file")
		if fileFlag != "" {
			if len(args) > 0 {
				return fmt.Errorf("when using -f flag, no additional arguments should be provided")
			}
			return nil
		}
		if len(args) < 1 {
			return fmt.Errorf("requires at least 1 font when not using -f flag")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		listFile, _ := cmd.Flags().GetString("file")
		if listFile != "" {
			file, err := os.Open(listFile)
			if err != nil {
				return fmt.Errorf("opening font list: %w", err)
			}
			defer file.Close()

			fmt.Printf("Activating fonts from %s...\n", listFile)
			if err := current.manager.ActivateFromList(cmd.Context(), file); err != nil {
				return fmt.Errorf("activating fonts from list: %w", err)
			}
			fmt.Println("Successfully activated fonts from list")
			return nil
		}

		return forEachFont(cmd.Context(), args, "activate", "Activated", current.manager.Activate)
	},
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate [fonts...]",
	Short: "Deactivate one or more fonts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return forEachFont(cmd.Context(), args, "deactivate", "Deactivated", current.manager.Deactivate)
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every record from the catalog",
	Long: `Remove every record from the catalog. Fonts stay active in the OS
until the session ends or they are deactivated before clearing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.manager.ClearCatalog(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Catalog cleared")
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage downloaded remote fonts",
}

var cacheDirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Print the cache directory",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(current.manager.CacheDir())
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every downloaded remote font",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.manager.ClearCache(); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Println("Cache cleared")
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local control API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen, _ := cmd.Flags().GetString("listen")
		if listen == "" {
			listen = current.cfg.Server.Listen
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := httpserver.New(listen, httpserver.Deps{
			Manager:      current.manager,
			Logger:       current.log,
			StartTime:    time.Now(),
			Version:      version,
			SyncLimit:    current.cfg.Sync.Limit,
			GoogleAPIKey: current.cfg.Google.APIKey,
		})

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("stopping server: %w", err)
		}
		return <-errCh
	},
}

// forEachFont applies op to every named font and prints a summary.
func forEachFont(ctx context.Context, names []string, verb, done string, op func(context.Context, string) (fm.FontRecord, error)) error {
	var failed []string
	successful := 0

	for _, name := range names {
		identity, err := fm.ParseFontSpec(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			failed = append(failed, name)
			continue
		}
		if identity == "" {
			continue
		}
		rec, err := op(ctx, identity)
		if err != nil {
			if errors.Is(err, fm.ErrNotFound) {
				fmt.Fprintf(os.Stderr, "%s is not cataloged; run scan or sync first\n", name)
			} else {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			failed = append(failed, name)
			continue
		}
		fmt.Printf("%s %s %s\n", done, rec.Family, rec.Subfamily)
		successful++
	}

	if len(failed) > 0 {
		fmt.Printf("\nFailed to %s: %d\n", verb, len(failed))
		for _, name := range failed {
			fmt.Printf("  - %s\n", name)
		}
		return fmt.Errorf("some fonts failed to %s", verb)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is the user config directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(deactivateCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(serveCmd)
	cacheCmd.AddCommand(cacheDirCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	scanCmd.Flags().Bool("system", false, "Scan the OS font directories")
	syncCmd.Flags().StringP("directory", "d", "google", "Remote directory to sync")
	syncCmd.Flags().String("api-key", "", "Google Fonts API key (default from config)")
	syncCmd.Flags().IntP("limit", "n", 0, "Maximum number of fonts to add (default from config)")
	listCmd.Flags().Bool("active", false, "Only list active fonts")
	activateCmd.Flags().StringP("file", "f", "", "Activate fonts listed in a file")
	serveCmd.Flags().String("listen", "", "Listen address (default from config)")
}
