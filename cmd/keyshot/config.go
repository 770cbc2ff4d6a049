package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/example/keyshot/internal/config"
	"github.com/example/keyshot/internal/theme"
)

type configCmd struct {
	*root
	fs *flag.FlagSet
}

func (c *configCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *configCmd) Program() string { return c.root.subcommand("config") }

func parseConfigCmd(args []string, r *root) (*configCmd, error) {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	c := &configCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *configCmd) Run() error {
	args := c.fs.Args()
	if len(args) < 1 {
		return &UsageError{of: c}
	}

	switch args[0] {
	case "print":
		_, err := fmt.Fprint(c.root.stdout, c.root.config.String())
		return err
	case "themes":
		for _, name := range theme.NewLoader().Names() {
			fmt.Fprintln(c.root.stdout, name)
		}
		return nil
	case "save":
		path, err := config.NewLoader(version, configPathOverride).Save(c.root.config)
		if err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Configuration saved to %s\n", path)
		return nil
	default:
		return fmt.Errorf("unknown config command: %s", args[0])
	}
}
