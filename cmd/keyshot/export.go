package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/example/keyshot/internal/appstate"
	"github.com/example/keyshot/internal/clipboard"
	"github.com/example/keyshot/internal/export"
	"github.com/example/keyshot/internal/keyimage"
	"github.com/example/keyshot/internal/notify"
)

type exportCmd struct {
	scene   sceneFlags
	crop    string
	output  string
	format  string
	padding int
	upload  bool
	copy    bool
	copyRef bool
	json    bool
	*root
	fs *flag.FlagSet
}

func (c *exportCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseExportCmd(args []string, r *root) (*exportCmd, error) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	c := &exportCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	c.scene.register(fs)
	fs.StringVar(&c.crop, "crop", "", "crop rectangle x,y,w,h in display pixels")
	fs.StringVar(&c.output, "output", "", "output file (default: save_dir/keyimage-<sop>-<time>.<ext>)")
	fs.StringVar(&c.format, "format", r.config.Format, "output format: png or webp")
	fs.IntVar(&c.padding, "padding", r.config.Export.Padding, "margin in native pixels around an auto-expanded image")
	fs.BoolVar(&c.upload, "upload", false, "upload the key image after writing it")
	fs.BoolVar(&c.copy, "copy", false, "copy the key image to the clipboard")
	fs.BoolVar(&c.copyRef, "copy-path", false, "copy the written file path to the clipboard as text")
	fs.BoolVar(&c.json, "json", false, "print the key image metadata as JSON")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if c.scene.image == "" {
		return nil, &UsageError{of: c}
	}
	if c.copy && c.copyRef {
		return nil, fmt.Errorf("-copy and -copy-path cannot be combined")
	}
	if c.crop != "" {
		if _, err := parseRect(c.crop); err != nil {
			return nil, err
		}
	}
	if _, err := export.ParseFormat(c.format); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *exportCmd) Program() string { return c.root.subcommand("export") }

// options merges the command flags over the configured export settings.
func (c *exportCmd) options() (export.Options, error) {
	cfg := *c.root.config
	cfg.Format = c.format
	cfg.Export.Padding = c.padding
	return cfg.ExportOptions()
}

func (c *exportCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts, err := c.options()
	if err != nil {
		return err
	}
	eng, err := c.scene.load(c.root.config.AnnotationStyle())
	if err != nil {
		return err
	}
	var up keyimage.Uploader
	if c.upload {
		client, err := c.root.config.Uploader()
		if err != nil {
			return err
		}
		up = client
	}
	sess := keyimage.New(eng, export.NewExporter(opts), up)
	if err := sess.Resize(c.scene.displaySize(eng.ImageSize())); err != nil {
		return err
	}
	if c.crop != "" {
		r, _ := parseRect(c.crop)
		if err := sess.SetCrop(r); err != nil {
			return err
		}
	}

	res, err := sess.StartExport(ctx)
	if err != nil {
		c.root.notifier.Failed(notify.EventExport, err)
		return fmt.Errorf("export: %w", err)
	}
	if res.Warning != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", res.Warning)
	}
	path, err := c.write(res)
	if err != nil {
		return err
	}
	c.root.notifier.Export(path, nil)

	if c.json {
		enc := json.NewEncoder(c.root.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			Path string `json:"path"`
			export.Metadata
		}{path, res.Metadata}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(c.root.stdout, "wrote %s (%dx%d)\n", path, res.Window.W, res.Window.H)
	}

	if c.copy {
		if err := clipboard.Copy(res); err != nil {
			c.root.notifier.Failed(notify.EventCopy, err)
			return fmt.Errorf("copy: %w", err)
		}
		c.root.notifier.Copy("")
	}
	if c.copyRef {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if err := clipboard.WriteText(abs); err != nil {
			c.root.notifier.Failed(notify.EventCopy, err)
			return fmt.Errorf("copy: %w", err)
		}
		c.root.notifier.Copy(abs)
	}
	if c.upload {
		reply, err := sess.Upload(ctx)
		if err != nil {
			c.root.notifier.Failed(notify.EventUpload, err)
			return err
		}
		c.root.notifier.Upload(res.Metadata.ImageID)
		if len(reply) > 0 {
			fmt.Fprintf(c.root.stdout, "uploaded: %v\n", reply)
		}
	}
	return nil
}

func (c *exportCmd) write(res *export.Result) (string, error) {
	path := c.output
	if path == "" {
		dir := c.root.config.SaveDir
		if dir == "" {
			dir = "."
		}
		path = filepath.Join(dir, appstate.FileName(res.Metadata, time.Now().Format("20060102-150405"), res.Format))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(path, res.Payload, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
