package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	appendix "github.com/integral05/word-appendix-manager"
	"github.com/integral05/word-appendix-manager/internal/backup"
)

// run executes one engine run and prints the result record.
func run(flags *cliFlags, sources []appendix.Source, logger *slog.Logger) (int, error) {
	fileCfg, err := loadConfig(flags.config)
	if err != nil {
		return ExitUsage, err
	}
	cfg, keepBackups := buildRunConfig(flags, fileCfg)

	opts := []appendix.Option{appendix.WithLogger(logger)}
	if !flags.quiet {
		opts = append(opts, appendix.WithProgress(printProgress))
	}

	eng, err := appendix.New(cfg, opts...)
	if err != nil {
		return ExitUsage, err
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	ref := appendix.DocumentRef{Path: flags.doc}
	result, runErr := eng.Run(ctx, ref, sources)
	if !flags.quiet {
		fmt.Fprintln(os.Stderr) // end the progress line
	}
	printResult(result)

	if result.Status == appendix.StatusCommitted {
		pruneBackups(cfg.BackupDir, flags.doc, keepBackups, logger)
		return ExitSuccess, nil
	}
	return exitCodeFor(runErr), runErr
}

// printProgress keeps a single status line updated on stderr.
func printProgress(p appendix.Progress) {
	fmt.Fprintf(os.Stderr, "\rappendix %s: %d/%d pages, %d/%d entries",
		p.CurrentLabel, p.CompletedPages, p.TotalPages, p.CompletedEntries, p.TotalEntries)
}

// printResult writes the structured result record to stdout.
func printResult(r *appendix.Result) {
	fmt.Printf("status: %s\n", r.Status)
	for _, e := range r.Entries {
		fmt.Printf("  appendix %-4s %-8s %3d page(s)  %s\n", e.Label, e.State, e.Pages, e.Path)
	}
	if r.BackupPath != "" {
		fmt.Printf("backup: %s\n", r.BackupPath)
	}
	for _, d := range r.Errors {
		fmt.Printf("error: %s\n", d.Error())
	}
	if r.ManualRecovery {
		fmt.Printf("RECOVERY REQUIRED: restore the document manually from %s\n", r.BackupPath)
	}
}

// pruneBackups applies the retention policy after a committed run.
func pruneBackups(dir, docPath string, keep int, logger *slog.Logger) {
	removed, err := backup.NewManager(dir).Prune(docPath, keep)
	if err != nil {
		logger.Warn("pruning old backups", "error", err)
		return
	}
	if removed > 0 {
		logger.Info("pruned old backups", "removed", removed, "kept", keep)
	}
}
