package config

import (
	"fmt"
	"image/color"
	"sort"
	"strings"
	"time"

	"github.com/example/keyshot/internal/annotation"
	"github.com/example/keyshot/internal/export"
	"github.com/example/keyshot/internal/theme"
	"github.com/example/keyshot/internal/upload"
)

// Notify holds notification settings.
type Notify struct {
	Export bool
	Upload bool
	Copy   bool
}

// Export holds the look of exported key images.
type Export struct {
	Padding     int
	FontScale   float64
	StrokeWidth float64
	Background  color.RGBA
}

// Annotation holds the base look of annotations that do not set their own.
type Annotation struct {
	FontSize  float64
	LineWidth float64
}

// Upload holds where key images are sent.
type Upload struct {
	// Server is the base URL a relative URL is resolved against.
	Server  string
	URL     string
	Timeout time.Duration
}

// Config holds the application configuration.
type Config struct {
	Theme   string
	SaveDir string
	Format     string
	Annotation Annotation
	Export     Export
	Upload     Upload
	Notify     Notify
	Themes     map[string]*theme.Theme
}

// New creates a new Config with defaults.
func New() *Config {
	st := export.DefaultOptions().Style
	return &Config{
		Theme:  "", // Default to empty to allow fallback to Env/Default
		Format: string(export.FormatPNG),
		Annotation: Annotation{
			FontSize:  annotation.DefaultFontSize,
			LineWidth: annotation.DefaultLineWidth,
		},
		Export: Export{
			Padding:     export.DefaultPadding,
			FontScale:   st.FontScale,
			StrokeWidth: st.StrokeWidth,
			Background:  color.RGBA{A: 255},
		},
		Upload: Upload{
			URL:     upload.DefaultPath,
			Timeout: upload.DefaultTimeout,
		},
		Themes: make(map[string]*theme.Theme),
	}
}

// ExportOptions builds exporter settings from the configuration.
func (c *Config) ExportOptions() (export.Options, error) {
	opts := export.DefaultOptions()
	f, err := export.ParseFormat(c.Format)
	if err != nil {
		return opts, err
	}
	opts.Format = f
	opts.Padding = c.Export.Padding
	if c.Export.FontScale > 0 {
		opts.Style.FontScale = c.Export.FontScale
	}
	if c.Export.StrokeWidth > 0 {
		opts.Style.StrokeWidth = c.Export.StrokeWidth
	}
	opts.Background = c.Export.Background
	return opts, nil
}

// AnnotationStyle is the base style applied to annotations without one.
func (c *Config) AnnotationStyle() annotation.Style {
	return annotation.Style{LineWidth: c.Annotation.LineWidth, FontSize: c.Annotation.FontSize}.WithDefaults()
}

// Uploader returns an upload client for the configured endpoint.
func (c *Config) Uploader() (*upload.Client, error) {
	return upload.New(c.Upload.Server, c.Upload.URL, c.Upload.Timeout)
}

// LoadTheme returns the selected theme: an inline [theme.x] section wins over
// the theme loader.
func (c *Config) LoadTheme(l *theme.Loader) (*theme.Theme, error) {
	if t, ok := c.Themes[c.Theme]; ok {
		return t, nil
	}
	return l.Load(c.Theme)
}

// String implements fmt.Stringer and returns the configuration in RC format.
func (c *Config) String() string {
	var sb strings.Builder

	// Root section
	if c.Theme != "" {
		fmt.Fprintf(&sb, "theme = %s\n", c.Theme)
	}
	if c.SaveDir != "" {
		fmt.Fprintf(&sb, "save_dir = %s\n", c.SaveDir)
	}
	if c.Format != "" {
		fmt.Fprintf(&sb, "format = %s\n", c.Format)
	}
	sb.WriteString("\n")

	sb.WriteString("[annotation]\n")
	fmt.Fprintf(&sb, "font_size = %g\n", c.Annotation.FontSize)
	fmt.Fprintf(&sb, "line_width = %g\n", c.Annotation.LineWidth)
	sb.WriteString("\n")

	sb.WriteString("[export]\n")
	fmt.Fprintf(&sb, "padding = %d\n", c.Export.Padding)
	fmt.Fprintf(&sb, "font_scale = %g\n", c.Export.FontScale)
	fmt.Fprintf(&sb, "stroke_width = %g\n", c.Export.StrokeWidth)
	fmt.Fprintf(&sb, "background = %s\n", theme.Hex(c.Export.Background))
	sb.WriteString("\n")

	sb.WriteString("[upload]\n")
	if c.Upload.Server != "" {
		fmt.Fprintf(&sb, "server = %s\n", c.Upload.Server)
	}
	fmt.Fprintf(&sb, "url = %s\n", c.Upload.URL)
	fmt.Fprintf(&sb, "timeout = %s\n", c.Upload.Timeout)
	sb.WriteString("\n")

	// Notify section
	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "export = %v\n", c.Notify.Export)
	fmt.Fprintf(&sb, "upload = %v\n", c.Notify.Upload)
	fmt.Fprintf(&sb, "copy = %v\n", c.Notify.Copy)
	sb.WriteString("\n")

	// Sort keys for deterministic output
	var themeNames []string
	for name := range c.Themes {
		themeNames = append(themeNames, name)
	}
	sort.Strings(themeNames)

	for _, name := range themeNames {
		t := c.Themes[name]
		fmt.Fprintf(&sb, "[theme.%s]\n", name)
		fmt.Fprintf(&sb, "Name: %s\n", t.Name)
		for _, f := range t.Fields() {
			fmt.Fprintf(&sb, "%s: %s\n", f.Name, theme.Hex(f.Color))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
