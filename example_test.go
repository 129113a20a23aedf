package appendix_test

import (
	"fmt"
	"log/slog"
	"os"

	appendix "github.com/integral05/word-appendix-manager"
)

// ExampleLabelFor demonstrates the three numbering schemes.
func ExampleLabelFor() {
	for _, scheme := range []string{
		appendix.SchemeAlphabetical,
		appendix.SchemeNumeric,
		appendix.SchemeRoman,
	} {
		fmt.Printf("%s: %s %s %s\n",
			scheme,
			appendix.LabelFor(0, scheme),
			appendix.LabelFor(3, scheme),
			appendix.LabelFor(26, scheme),
		)
	}
	// Output:
	// alphabetical: A D AA
	// numeric: 1 4 27
	// roman: I IV XXVII
}

// ExampleNew demonstrates configuring an engine. The default configuration
// uses alphabetical numbering and strict all-or-nothing failure handling.
func ExampleNew() {
	cfg := appendix.DefaultRunConfig()
	cfg.ImageDPI = 300
	cfg.BackupDir = "backups"

	eng, err := appendix.New(cfg,
		appendix.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))),
		appendix.WithProgress(func(p appendix.Progress) {
			fmt.Printf("\r%d/%d pages", p.CompletedPages, p.TotalPages)
		}),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	_ = eng // eng.Run(ctx, appendix.DocumentRef{Path: "report.docx"}, sources)

	fmt.Println("engine ready")
	// Output: engine ready
}

// ExampleRunConfig_Validate demonstrates configuration validation.
func ExampleRunConfig_Validate() {
	cfg := appendix.DefaultRunConfig()
	cfg.ImageDPI = 9000

	if err := cfg.Validate(); err != nil {
		fmt.Println("invalid:", err)
	}
	// Output: invalid: invalid image resolution: 9000 (must be between 36 and 1200)
}
