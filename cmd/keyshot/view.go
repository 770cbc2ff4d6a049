package main

import (
	"flag"

	"github.com/example/keyshot/internal/appstate"
	"github.com/example/keyshot/internal/export"
	"github.com/example/keyshot/internal/keyimage"
)

type viewCmd struct {
	scene sceneFlags
	*root
	fs *flag.FlagSet
}

func (c *viewCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *viewCmd) Program() string { return c.root.subcommand("view") }

func parseViewCmd(args []string, r *root) (*viewCmd, error) {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	c := &viewCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	c.scene.register(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if c.scene.image == "" {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func (c *viewCmd) Run() error {
	opts, err := c.root.config.ExportOptions()
	if err != nil {
		return err
	}
	eng, err := c.scene.load(c.root.config.AnnotationStyle())
	if err != nil {
		return err
	}
	var up keyimage.Uploader
	// Without a server the viewer still exports; U reports the error.
	if client, err := c.root.config.Uploader(); err == nil {
		up = client
	}
	sess := keyimage.New(eng, export.NewExporter(opts), up)
	w, h := c.scene.displaySize(eng.ImageSize())
	st := appstate.New(sess, eng,
		appstate.WithTheme(c.root.activeTheme),
		appstate.WithNotifier(c.root.notifier),
		appstate.WithSaveDir(c.root.config.SaveDir),
		appstate.WithSize(int(w), int(h)+appstate.StatusHeight),
	)
	st.Run()
	return nil
}
