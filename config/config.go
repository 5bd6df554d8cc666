package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/timewinder-dev/watchpoint/watch"
	"gopkg.in/yaml.v3"
)

// File is a watchpoint run configuration. TOML is the primary format;
// files ending in .yaml or .yml are read as YAML.
type File struct {
	// Script defaults to the config file's name with a .star extension,
	// relative to the config file.
	Script   string   `toml:"script,omitempty" yaml:"script,omitempty"`
	Output   string   `toml:"output,omitempty" yaml:"output,omitempty"`
	Track    []string `toml:"track,omitempty" yaml:"track,omitempty"`
	History  bool     `toml:"history,omitempty" yaml:"history,omitempty"`
	LogLevel string   `toml:"log_level,omitempty" yaml:"log_level,omitempty"`
	Color    *bool    `toml:"color,omitempty" yaml:"color,omitempty"`
	// Watch names globals to watch from the start of the run.
	Watch []string `toml:"watch,omitempty" yaml:"watch,omitempty"`
}

func parseTOML(r io.Reader) (*File, error) {
	var out File
	_, err := toml.NewDecoder(r).Decode(&out)
	return &out, err
}

func parseYAML(r io.Reader) (*File, error) {
	var out File
	err := yaml.NewDecoder(r).Decode(&out)
	if err == io.EOF {
		err = nil
	}
	return &out, err
}

// Load reads and validates a config file.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var c *File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		c, err = parseYAML(f)
	default:
		c, err = parseTOML(f)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if c.Script == "" {
		c.Script = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".star"
	}
	if !filepath.IsAbs(c.Script) {
		c.Script = filepath.Clean(filepath.Join(filepath.Dir(path), c.Script))
	}
	if _, err := c.TrackMode(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// TrackMode parses Track. An empty list selects the default mode.
func (c *File) TrackMode() (watch.TrackMode, error) {
	if len(c.Track) == 0 {
		return watch.DefaultTrack, nil
	}
	return watch.ParseTrackLabels(c.Track)
}

// Merge overlays the fields set in o.
func (c *File) Merge(o *File) {
	if o.Script != "" {
		c.Script = o.Script
	}
	if o.Output != "" {
		c.Output = o.Output
	}
	if len(o.Track) > 0 {
		c.Track = o.Track
	}
	if o.History {
		c.History = true
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.Color != nil {
		c.Color = o.Color
	}
	c.Watch = append(c.Watch, o.Watch...)
}
