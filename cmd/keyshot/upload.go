package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/example/keyshot/internal/export"
	"github.com/example/keyshot/internal/notify"
	"github.com/example/keyshot/internal/upload"
)

type uploadCmd struct {
	file    string
	study   string
	series  string
	sop     string
	url     string
	server  string
	timeout time.Duration
	*root
	fs *flag.FlagSet
}

func (c *uploadCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *uploadCmd) Program() string { return c.root.subcommand("upload") }

func parseUploadCmd(args []string, r *root) (*uploadCmd, error) {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	c := &uploadCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.file, "file", "", "key image file to upload")
	fs.StringVar(&c.study, "study", "", "study instance UID")
	fs.StringVar(&c.series, "series", "", "series instance UID")
	fs.StringVar(&c.sop, "sop", "", "SOP instance UID of the source image")
	fs.StringVar(&c.url, "url", r.config.Upload.URL, "upload endpoint, absolute or relative to -server")
	fs.StringVar(&c.server, "server", r.config.Upload.Server, "archive base URL")
	fs.DurationVar(&c.timeout, "timeout", r.config.Upload.Timeout, "request timeout")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if c.file == "" {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

// result wraps the file as an export result, reading its size from the
// image header.
func (c *uploadCmd) result() (*export.Result, error) {
	data, err := os.ReadFile(c.file)
	if err != nil {
		return nil, err
	}
	f, err := export.ParseFormat(strings.TrimPrefix(filepath.Ext(c.file), "."))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.file, err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.file, err)
	}
	b := img.Bounds()
	return &export.Result{
		Payload: data,
		Format:  f,
		Window:  export.Window{W: b.Dx(), H: b.Dy()},
		Metadata: export.Metadata{
			StudyID:  c.study,
			SeriesID: c.series,
			ImageID:  c.sop,
			Width:    b.Dx(),
			Height:   b.Dy(),
		},
	}, nil
}

func (c *uploadCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := c.result()
	if err != nil {
		return err
	}
	client, err := upload.New(c.server, c.url, c.timeout)
	if err != nil {
		return err
	}
	reply, err := client.Upload(ctx, res)
	if err != nil {
		c.root.notifier.Failed(notify.EventUpload, err)
		return err
	}
	c.root.notifier.Upload(filepath.Base(c.file))
	enc := json.NewEncoder(c.root.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(reply)
}
