package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

var docsCmd = &cobra.Command{
	Use:    "docs [dir]",
	Short:  "Generate man pages or markdown for fdeploy",
	Hidden: true,
	Args:   cobra.MaximumNArgs(1),
	RunE:   runDocs,
}

func init() {
	docsCmd.Flags().String("format", "man", "output format (man or markdown)")
}

func runDocs(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format") //nolint:errcheck // flag name is hardcoded
	dir := "docs"
	if len(args) == 1 {
		dir = args[0]
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	root := cmd.Root()
	switch format {
	case "man":
		return doc.GenManTree(root, &doc.GenManHeader{
			Title:   "FDEPLOY",
			Section: "1",
			Source:  "fdeploy " + version,
		}, dir)
	case "markdown":
		return doc.GenMarkdownTree(root, dir)
	default:
		return fmt.Errorf("unknown format %q (use man or markdown)", format)
	}
}
