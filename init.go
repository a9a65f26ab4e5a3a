package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/sherpa/internal/config"
)

const (
	sentinelStart = "<!-- sherpa:start -->"
	sentinelEnd   = "<!-- sherpa:end -->"
)

type initOptions struct {
	force  bool
	dryRun bool
	guide  string
}

func newInitCmd(a *app) *cobra.Command {
	var o initOptions
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default " + config.FileName,
		Long: `Write a default ` + config.FileName + ` to the repository root.

With --guide, also write a sherpa usage section to a Markdown file. The section
is wrapped in sentinel comments so later runs update it in place without
touching surrounding content.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(args, o)
		},
	}
	cmd.Flags().BoolVar(&o.force, "force", false, "overwrite an existing "+config.FileName)
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "print what would be written without modifying files")
	cmd.Flags().StringVar(&o.guide, "guide", "", "Markdown file to receive a sherpa usage section (e.g. CONTRIBUTING.md)")
	return cmd
}

func (a *app) runInit(args []string, o initOptions) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}

	data, err := config.Default().Marshal()
	if err != nil {
		return err
	}

	if o.dryRun {
		fmt.Fprintf(a.stdout, "# %s\n%s", config.FileName, data)
	} else {
		if err := writeConfig(filepath.Join(root, config.FileName), data, o.force); err != nil {
			return err
		}
		fmt.Fprintf(a.stderr, "wrote %s\n", filepath.Join(root, config.FileName))
	}

	if o.guide == "" {
		return nil
	}

	path := o.guide
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	updated := applySection(string(existing), generateSection())

	if o.dryRun {
		_, _ = fmt.Fprint(a.stdout, updated)
		return nil
	}
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(a.stderr, "wrote sherpa section to %s\n", path)
	return nil
}

func writeConfig(path string, data []byte, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// generateSection returns the full sentinel-wrapped sherpa documentation block.
func generateSection() string {
	body := `## sherpa: Repository Structure

Run ` + "`sherpa`" + ` before reading an unfamiliar part of this codebase. It reports
the entry point, file dependencies and resolved call chains from static analysis.

**Run it:**
` + "```" + `bash
sherpa summary                         # entry point, central files, leaf files
sherpa tour                            # suggested reading order
sherpa map -f toon -n 20               # compact map of the 20 most central files
sherpa map --symbol Service.run        # a function with its callers and callees
sherpa path app.main service.db.query  # shortest call chain between two symbols
sherpa analyze -o sherpa-out           # JSON, learning order and flowchart files
` + "```" + `

**Caching:** ` + "`sherpa map --cache .sherpa-cache`" + ` reuses the last map until a
source file changes. Add the cache file to ` + "`.gitignore`" + `.

**All flags:** ` + "`sherpa --help`" + `

Call edges are best-effort: a missing edge means the call could not be resolved
statically, not that it never happens.`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
