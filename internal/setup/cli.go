// Package setup implements the catalog maintenance commands and MCP client
// registration used by cmd/catalog.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medguard-inference-server/internal/catalog"
	"github.com/medguard-inference-server/internal/database"
	"github.com/medguard-inference-server/internal/domain"
	"github.com/medguard-inference-server/internal/knowledge"
)

// ErrUsage is returned when a command is called with missing or unknown
// arguments.
var ErrUsage = errors.New("invalid usage")

// CLI provides the command-line interface for catalog operations.
type CLI struct {
	config *domain.Config
	logger *logrus.Logger
	out    io.Writer
}

// NewCLI creates a new CLI bound to the loaded configuration.
func NewCLI(config *domain.Config, logger *logrus.Logger, out io.Writer) *CLI {
	if out == nil {
		out = os.Stdout
	}
	return &CLI{config: config, logger: logger, out: out}
}

// Run executes the command named by args[0].
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	switch args[0] {
	case "export":
		return c.export(args[1:])
	case "check":
		return c.check(args[1:])
	case "seed-sqlite":
		return c.seedSQLite(ctx, args[1:])
	case "seed-postgres":
		return c.seedPostgres(ctx, args[1:])
	case "show":
		return c.show(ctx)
	case "mcp-install":
		return c.mcpInstall(args[1:])
	case "help", "--help", "-h":
		return c.showHelp()
	default:
		fmt.Fprintf(c.out, "Unknown command: %s\n\n", args[0])
		c.showHelp()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
}

func (c *CLI) showHelp() error {
	help := `
MedGuard catalog tool

Usage:
  catalog <command> [options]

Commands:
  export          Write the built-in catalog to a file
  check           Validate a catalog file
  seed-sqlite     Create or replace a SQLite catalog
  seed-postgres   Migrate and seed the configured PostgreSQL catalog
  show            Print the catalog of the configured knowledge source
  mcp-install     Register the MCP server in an MCP client config file

Examples:
  catalog export --format yaml --out catalog.yaml
  catalog check catalog.yaml
  catalog seed-sqlite ~/.medguard/catalog.db --from catalog.yaml
  catalog seed-postgres --from catalog.yaml
  catalog mcp-install --binary /usr/local/bin/mcp-server
`
	fmt.Fprintln(c.out, help)
	return nil
}

// flagValues splits args into positional arguments and --name value pairs.
func flagValues(args []string, names ...string) (map[string]string, []string, error) {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}

	flags := make(map[string]string)
	var positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			positional = append(positional, arg)
			continue
		}
		name := strings.TrimPrefix(arg, "--")
		if !known[name] {
			return nil, nil, fmt.Errorf("%w: unknown flag %s", ErrUsage, arg)
		}
		if i+1 >= len(args) {
			return nil, nil, fmt.Errorf("%w: flag %s needs a value", ErrUsage, arg)
		}
		flags[name] = args[i+1]
		i++
	}
	return flags, positional, nil
}

// sourceCatalog returns the catalog in from, or the built-in one.
func sourceCatalog(from string) (*domain.Catalog, error) {
	if from == "" {
		return knowledge.Builtin(), nil
	}
	return knowledge.ReadFile(from)
}

func (c *CLI) export(args []string) error {
	flags, _, err := flagValues(args, "format", "out")
	if err != nil {
		return err
	}

	format := knowledge.FormatYAML
	if flags["format"] != "" {
		if format, err = knowledge.ParseFormat(flags["format"]); err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
	} else if flags["out"] != "" {
		format = knowledge.FormatFromPath(flags["out"])
	}

	if flags["out"] == "" {
		return knowledge.Encode(c.out, knowledge.Builtin(), format)
	}

	if err := knowledge.WriteFileAs(flags["out"], knowledge.Builtin(), format); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Wrote built-in catalog %s to %s (%s)\n", knowledge.BuiltinVersion, flags["out"], format)
	return nil
}

func (c *CLI) check(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: check takes exactly one file", ErrUsage)
	}

	kb, err := knowledge.LoadFile(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "✗ %s is not a usable catalog\n", args[0])
		return err
	}

	fmt.Fprintf(c.out, "✓ %s is valid\n", args[0])
	c.printSummary(kb)
	return nil
}

func (c *CLI) seedSQLite(ctx context.Context, args []string) error {
	flags, positional, err := flagValues(args, "from")
	if err != nil {
		return err
	}

	path := c.config.Knowledge.SQLitePath
	if len(positional) > 0 {
		path = positional[0]
	}
	if path == "" {
		return fmt.Errorf("%w: seed-sqlite needs a database path", ErrUsage)
	}

	cat, err := sourceCatalog(flags["from"])
	if err != nil {
		return err
	}

	store, err := catalog.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := catalog.Seed(ctx, store, cat); err != nil {
		return fmt.Errorf("failed to seed SQLite catalog: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"path":       path,
		"version":    cat.Version,
		"conditions": len(cat.Conditions),
		"symptoms":   len(cat.Symptoms),
	}).Info("Seeded SQLite catalog")
	fmt.Fprintf(c.out, "✓ Seeded %s with catalog %s\n", path, cat.Version)
	return nil
}

func (c *CLI) seedPostgres(ctx context.Context, args []string) error {
	flags, _, err := flagValues(args, "from")
	if err != nil {
		return err
	}

	cat, err := sourceCatalog(flags["from"])
	if err != nil {
		return err
	}

	url := database.ConfigFromDomain(c.config.Database).URL()

	runner, err := database.NewMigrationRunner(url, c.logger)
	if err != nil {
		return err
	}
	defer runner.Close()
	if err := runner.Up(ctx); err != nil {
		return err
	}

	store, err := catalog.NewPostgresStoreFromURL(url)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := catalog.Seed(ctx, store, cat); err != nil {
		return fmt.Errorf("failed to seed PostgreSQL catalog: %w", err)
	}

	fmt.Fprintf(c.out, "✓ Seeded PostgreSQL database %s with catalog %s\n", c.config.Database.Database, cat.Version)
	return nil
}

func (c *CLI) show(ctx context.Context) error {
	kb, err := catalog.LoadKnowledgeBase(ctx, c.config, c.logger)
	if err != nil {
		return err
	}

	source := c.config.Knowledge.Source
	if source == "" {
		source = domain.SourceBuiltin
	}
	fmt.Fprintf(c.out, "Source: %s\n", source)
	c.printSummary(kb)
	return nil
}

func (c *CLI) printSummary(kb *knowledge.Base) {
	fmt.Fprintf(c.out, "Version:     %s\n", kb.Version())
	fmt.Fprintf(c.out, "Fingerprint: %s\n", kb.Fingerprint())
	fmt.Fprintln(c.out)

	fmt.Fprintf(c.out, "Conditions (%d):\n", len(kb.Conditions()))
	for _, cond := range kb.ConditionSummaries() {
		fmt.Fprintf(c.out, "  %-22s %-9s %s\n", cond.Key, cond.SeverityTier, cond.DisplayName)
	}
	fmt.Fprintln(c.out)

	fmt.Fprintf(c.out, "Symptoms (%d):\n", len(kb.Symptoms()))
	for _, category := range domain.AllCategories() {
		entries := kb.SymptomsByCategory(category)
		if len(entries) == 0 {
			continue
		}
		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
		}
		fmt.Fprintf(c.out, "  %-17s %s\n", category, strings.Join(ids, ", "))
	}
}

func (c *CLI) mcpInstall(args []string) error {
	flags, _, err := flagValues(args, "binary", "config", "name")
	if err != nil {
		return err
	}

	opts := InstallOptions{
		ConfigPath: flags["config"],
		ServerName: flags["name"],
		BinaryPath: flags["binary"],
		Source:     c.config.Knowledge.Source,
		File:       c.config.Knowledge.File,
		SQLitePath: c.config.Knowledge.SQLitePath,
	}
	if opts.BinaryPath == "" {
		if opts.BinaryPath, err = FindServerBinary(); err != nil {
			return err
		}
	}

	path, err := RegisterMCPServer(opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "✓ Registered %s in %s\n", opts.name(), path)
	fmt.Fprintln(c.out, "Restart the MCP client to pick up the new server.")
	return nil
}
