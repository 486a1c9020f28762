package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/djabi/incremental-backup/internal/apperr"
	"github.com/djabi/incremental-backup/internal/backupmeta"
	"github.com/djabi/incremental-backup/internal/config"
	"github.com/djabi/incremental-backup/internal/console"
	"github.com/djabi/incremental-backup/internal/driver"
	"github.com/djabi/incremental-backup/internal/pathmatch"
	"github.com/djabi/incremental-backup/internal/pathutil"
	"github.com/djabi/incremental-backup/internal/prune"
	"github.com/djabi/incremental-backup/internal/restore"
)

const exitCodeLogicError = -1

func main() {
	defer func() {
		if r := recover(); r != nil {
			console.Error("internal error: %v", r)
			os.Exit(exitCodeLogicError)
		}
	}()

	app := &cli.App{
		Name:  "backup",
		Usage: "Incremental file-system backup tool",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a config file (defaults to .backup-config.toml at the top of the source directory)",
			},
		},
		Commands: []*cli.Command{
			backupCommand(),
			restoreCommand(),
			pruneCommand(),
			snapshotsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		console.Error("%s", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch err.(type) {
	case *apperr.ArgumentError:
		return 1
	case *apperr.RuntimeError:
		return 2
	default:
		return 1
	}
}

func loadConfig(c *cli.Context, sourceDirectory string) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		path = filepath.Join(sourceDirectory, config.DefaultFileName)
	}
	return config.Load(path)
}

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:      "backup",
		Usage:     "Run an incremental backup",
		ArgsUsage: "<source> <target>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Regular expression matching paths to exclude (may be given multiple times)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 1 {
				return apperr.Argument("missing required argument <source>")
			}
			source, err := pathutil.ExpandTilde(c.Args().Get(0))
			if err != nil {
				return apperr.Argument("could not resolve source directory: %s", err)
			}

			cfg, err := loadConfig(c, source)
			if err != nil {
				return apperr.Argument("failed to load config: %s", err)
			}

			target := config.ResolveTarget(c.Args().Get(1), cfg)
			if target == "" {
				return apperr.Argument("missing required argument <target> (and no default target configured)")
			}
			target, err = pathutil.ExpandTilde(target)
			if err != nil {
				return apperr.Argument("could not resolve target directory: %s", err)
			}

			excludePatterns := config.ResolveExclude(c.StringSlice("exclude"), cfg)
			exclude, err := pathmatch.Compile(excludePatterns)
			if err != nil {
				return apperr.Argument("%s", err)
			}

			results, err := driver.Run(source, target, exclude, driver.Callbacks{
				OnInvalidBackup:       func(name string) { console.Warning("ignoring %q: does not look like a backup", name) },
				OnReadBackupError:     func(name string, err error) { console.Warning("failed to read backup %q: %s", name, err) },
				OnExclude:             func(path string) {},
				OnListdirError:        func(directory string, err error) { console.Warning("failed to list directory %q: %s", directory, err) },
				OnMetadataError:       func(path string, err error) { console.Warning("failed to query %q: %s", path, err) },
				OnMkdirError:          func(directory string, err error) { console.Warning("failed to create directory %q: %s", directory, err) },
				OnCopyError:           func(source, destination string, err error) { console.Warning("failed to copy %q to %q: %s", source, destination, err) },
				OnCompletionInfoError: func(err error) { console.Warning("%s", err) },
			})
			if err != nil {
				return err
			}

			console.Info("Backup %q complete: %s copied, %d files removed", results.BackupName, console.Files(results.FilesCopied), results.FilesRemoved)
			if results.PathsSkipped {
				console.Warning("some paths were skipped; the backup is incomplete")
			}
			return nil
		},
	}
}

func restoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Restore files from backups",
		ArgsUsage: "<target> <destination> [<backup-name-or-ISO8601-time>]",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 2 {
				return apperr.Argument("missing required arguments <target> <destination>")
			}
			target, err := pathutil.ExpandTilde(c.Args().Get(0))
			if err != nil {
				return apperr.Argument("could not resolve target directory: %s", err)
			}
			destination, err := pathutil.ExpandTilde(c.Args().Get(1))
			if err != nil {
				return apperr.Argument("could not resolve destination directory: %s", err)
			}
			if err := os.MkdirAll(destination, 0755); err != nil {
				return apperr.Argument("could not create destination directory: %s", err)
			}

			var cutoff *time.Time
			if c.Args().Len() >= 3 {
				selector := c.Args().Get(2)
				t, err := resolveCutoff(target, selector)
				if err != nil {
					return err
				}
				cutoff = &t
			}

			results, err := restore.Run(target, destination, cutoff, restore.Callbacks{
				ReadBackups: backupmeta.ReadBackupsCallbacks{
					OnInvalidBackup: func(name string) { console.Warning("ignoring %q: does not look like a backup", name) },
					OnReadError:     func(name string, err error) { console.Warning("failed to read backup %q: %s", name, err) },
				},
				OnMkdirError: func(directory string, err error) { console.Warning("failed to create directory %q: %s", directory, err) },
				OnCopyError:  func(source, destination string, err error) { console.Warning("failed to restore %q to %q: %s", source, destination, err) },
			})
			if err != nil {
				return apperr.Runtime("restore failed", err)
			}

			console.Info("Restore complete: %s restored", console.Files(results.FilesRestored))
			return nil
		},
	}
}

// resolveCutoff parses selector as either the name of a known backup (the
// original implementation's backup-name-or-time resolution tries this
// first) or as an explicit ISO-8601 timestamp.
func resolveCutoff(target, selector string) (time.Time, error) {
	backups, err := backupmeta.ReadAllBackups(target, backupmeta.ReadBackupsCallbacks{})
	if err != nil {
		return time.Time{}, apperr.Runtime("failed to read backups", err)
	}
	if t, ok := restore.CutoffForBackup(backups, selector); ok {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, selector)
	if err != nil {
		return time.Time{}, apperr.Argument("%q is neither a known backup name nor a valid ISO-8601 timestamp", selector)
	}
	return t.UTC(), nil
}

func pruneCommand() *cli.Command {
	return &cli.Command{
		Name:      "prune",
		Usage:     "Remove backups that contribute nothing to the backup history",
		ArgsUsage: "<target>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "commit", Usage: "Actually delete prunable backups (default is a dry run)"},
			&cli.BoolFlag{Name: "empty", Usage: "Prune backups with an empty manifest and empty data directory"},
			&cli.BoolFlag{Name: "other-data", Usage: "Also prune otherwise-empty backups containing unrecognised data"},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 1 {
				return apperr.Argument("missing required argument <target>")
			}
			target, err := pathutil.ExpandTilde(c.Args().Get(0))
			if err != nil {
				return apperr.Argument("could not resolve target directory: %s", err)
			}

			options := prune.Options{
				PruneEmpty:     c.Bool("empty"),
				PruneOtherData: c.Bool("other-data"),
				DryRun:         !c.Bool("commit"),
			}

			results, err := prune.Prune(target, options, prune.Callbacks{
				ReadBackups: backupmeta.ReadBackupsCallbacks{
					OnInvalidBackup: func(name string) { console.Warning("ignoring %q: does not look like a backup", name) },
					OnReadError:     func(name string, err error) { console.Warning("failed to read backup %q: %s", name, err) },
				},
				OnDeleteError: func(name string, err error) { console.Warning("failed to delete backup %q: %s", name, err) },
			})
			if err != nil {
				return apperr.Runtime("prune failed", err)
			}

			for _, name := range results.Prunable {
				console.Info("prunable: %s", name)
			}
			if options.DryRun {
				console.Info("%d backups are prunable (dry run, pass --commit to delete)", len(results.Prunable))
			} else {
				console.Info("%d backups removed", len(results.Removed))
			}
			return nil
		},
	}
}

func snapshotsCommand() *cli.Command {
	return &cli.Command{
		Name:      "snapshots",
		Usage:     "List backups found in a target directory",
		ArgsUsage: "<target>",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 1 {
				return apperr.Argument("missing required argument <target>")
			}
			target, err := pathutil.ExpandTilde(c.Args().Get(0))
			if err != nil {
				return apperr.Argument("could not resolve target directory: %s", err)
			}

			backups, err := backupmeta.ReadAllBackups(target, backupmeta.ReadBackupsCallbacks{
				OnInvalidBackup: func(name string) { console.Warning("ignoring %q: does not look like a backup", name) },
				OnReadError:     func(name string, err error) { console.Warning("failed to read backup %q: %s", name, err) },
			})
			if err != nil {
				return apperr.Runtime("failed to read backups", err)
			}

			sort.Slice(backups, func(i, j int) bool {
				return backups[i].StartInfo.StartTime.Before(backups[j].StartInfo.StartTime)
			})
			for _, b := range backups {
				fmt.Printf("%s\t%s\n", b.Name, b.StartInfo.StartTime.Format(time.RFC3339))
			}
			console.Info("%d snapshots found", len(backups))
			return nil
		},
	}
}
