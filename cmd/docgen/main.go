// Command docgen generates CLI reference documentation from the redline
// command definitions. Output is written to docs/cli-reference.md.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	docs "github.com/urfave/cli-docs/v3"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/redline/internal/commands"
	"github.com/colonyops/redline/internal/redline"
)

func main() {
	flags := &commands.Flags{}

	root := &cli.Command{
		Name:      "redline",
		Usage:     "Stream proposed edits into markdown documents",
		UsageText: "redline [global options] command [command options]",
		Flags:     commands.GlobalFlags(flags),
	}
	// commands only touch the app when they run, so an empty one is enough
	root = commands.RegisterAll(root, flags, &redline.App{})

	md, err := docs.ToMarkdown(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating docs: %v\n", err)
		os.Exit(1)
	}

	outPath := "docs/cli-reference.md"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating %s: %v\n", filepath.Dir(outPath), err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, []byte(md), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", outPath, err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", outPath)
}
