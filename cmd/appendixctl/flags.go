package main

import (
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	appendix "github.com/integral05/word-appendix-manager"
	"github.com/integral05/word-appendix-manager/internal/fileutil"
)

// Sentinel errors for CLI argument handling.
var (
	ErrNoDocument = errors.New("no target document given (use --doc)")
	ErrNoPDFs     = errors.New("no PDF files given")
	ErrNotPDF     = errors.New("source is not a .pdf file")
)

// cliFlags holds parsed command-line flags. Zero values mean "not set";
// merging with the config file checks Changed on the flag set.
type cliFlags struct {
	config      string
	doc         string
	scheme      string
	mode        string
	dpi         int
	backupDir   string
	noBackup    bool
	keepBackups int
	workers     int
	quiet       bool
	verbose     bool
	version     bool

	set *flag.FlagSet
}

const usageText = `usage: appendixctl --doc <document.docx> [flags] <file.pdf>[=LABEL] ...

Appends each PDF to the document as a numbered appendix section: a styled
heading followed by one page image per PDF page. A trailing =LABEL pins
that appendix's label instead of auto-numbering it.

Flags:
`

// parseFlags parses argv and returns the flags plus the PDF sources from
// the positional arguments.
func parseFlags(argv []string) (*cliFlags, []appendix.Source, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("appendixctl", flag.ContinueOnError)
	f.set = fs

	fs.StringVarP(&f.config, "config", "c", "", "config file path or name")
	fs.StringVarP(&f.doc, "doc", "d", "", "target Word document (.docx)")
	fs.StringVar(&f.scheme, "scheme", "", "numbering scheme: alphabetical, numeric, roman")
	fs.StringVar(&f.mode, "mode", "", "failure mode: strict, best-effort")
	fs.IntVar(&f.dpi, "dpi", 0, "page image resolution")
	fs.StringVar(&f.backupDir, "backup-dir", "", "snapshot directory (default: next to the document)")
	fs.BoolVar(&f.noBackup, "no-backup", false, "skip the pre-run snapshot (best-effort mode only)")
	fs.IntVar(&f.keepBackups, "keep-backups", 0, "snapshots to retain per document after success")
	fs.IntVar(&f.workers, "workers", 0, "parallel render workers (0 = auto)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "errors only")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug output")
	fs.BoolVar(&f.version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usageText)
		fmt.Fprintln(fs.Output(), fs.FlagUsages())
	}

	if err := fs.Parse(argv[1:]); err != nil {
		return nil, nil, err
	}
	if f.version {
		return f, nil, nil
	}
	if f.doc == "" {
		return nil, nil, ErrNoDocument
	}

	sources, err := parseSources(fs.Args())
	if err != nil {
		return nil, nil, err
	}
	return f, sources, nil
}

// parseSources turns positional arguments into sources. An argument of the
// form path=LABEL pins a manual label override.
func parseSources(args []string) ([]appendix.Source, error) {
	if len(args) == 0 {
		return nil, ErrNoPDFs
	}
	sources := make([]appendix.Source, 0, len(args))
	for _, arg := range args {
		src := appendix.Source{Path: arg}
		if at := strings.LastIndex(arg, "="); at > 0 {
			src.Path = arg[:at]
			src.LabelOverride = arg[at+1:]
		}
		if !fileutil.HasExt(src.Path, ".pdf") {
			return nil, fmt.Errorf("%w: %s", ErrNotPDF, src.Path)
		}
		sources = append(sources, src)
	}
	return sources, nil
}
