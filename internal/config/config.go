// Package config loads the sectioned key/value pipeline configuration.
//
// The configuration is an HCL file made of labelled section blocks:
//
//	section "condor" {
//	  universe      = "vanilla"
//	  lalapps_power = "/usr/bin/lalapps_power"
//	}
//
//	section "lalapps_power" {
//	  resample-rate = 8192
//	}
//
// Every attribute value is exposed as a string. Sections and keys keep the
// order in which they appear in the file, which is the order static options
// are passed to the executables.
package config

import (
	"os"
	"sort"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
)

var (
	ErrMissingSection = errors.New("missing configuration section")
	ErrMissingOption  = errors.New("missing configuration option")
	ErrInvalidValue   = errors.New("invalid configuration value")
)

// Option is a single key/value pair of a section.
type Option struct {
	Key   string
	Value string
}

// Section is a named, ordered group of options.
type Section struct {
	Name    string
	Options []Option
}

// Config is the parsed configuration.
type Config struct {
	sections []*Section
	index    map[string]*Section
}

type hclFile struct {
	Sections []*hclSection `hcl:"section,block"`
}

type hclSection struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// New builds a configuration from already parsed sections. Later sections
// with the same name extend earlier ones.
func New(sections ...*Section) *Config {
	cfg := &Config{index: make(map[string]*Section)}
	for _, s := range sections {
		cfg.add(s.Name, s.Options...)
	}

	return cfg
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read configuration %s", path)
	}

	return Parse(src, path)
}

// Parse parses HCL source. filename is only used in diagnostics.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "unable to parse configuration %s", filename)
	}

	var parsed hclFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "unable to decode configuration %s", filename)
	}

	cfg := New()
	for _, block := range parsed.Sections {
		opts, err := sectionOptions(block)
		if err != nil {
			return nil, errors.Wrapf(err, "section %q", block.Name)
		}
		cfg.add(block.Name, opts...)
	}

	return cfg, nil
}

func sectionOptions(block *hclSection) ([]Option, error) {
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	sorted := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		sorted = append(sorted, attr)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Range.Start.Byte < sorted[j].Range.Start.Byte
	})

	opts := make([]Option, 0, len(sorted))
	for _, attr := range sorted {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, errors.Wrapf(diags, "option %q", attr.Name)
		}
		str, err := ctyToString(val)
		if err != nil {
			return nil, errors.Wrapf(err, "option %q", attr.Name)
		}
		opts = append(opts, Option{Key: attr.Name, Value: str})
	}

	return opts, nil
}

func ctyToString(val cty.Value) (string, error) {
	if val.IsNull() || !val.IsKnown() {
		return "", errors.Wrap(ErrInvalidValue, "null or unknown value")
	}

	switch val.Type() {
	case cty.String:
		return val.AsString(), nil
	case cty.Number:
		return val.AsBigFloat().Text('f', -1), nil
	case cty.Bool:
		return strconv.FormatBool(val.True()), nil
	default:
		return "", errors.Wrapf(ErrInvalidValue, "unsupported type %s", val.Type().FriendlyName())
	}
}

func (c *Config) add(name string, opts ...Option) {
	sec, ok := c.index[name]
	if !ok {
		sec = &Section{Name: name}
		c.index[name] = sec
		c.sections = append(c.sections, sec)
	}

	for _, opt := range opts {
		replaced := false
		for i := range sec.Options {
			if sec.Options[i].Key == opt.Key {
				sec.Options[i].Value = opt.Value
				replaced = true

				break
			}
		}
		if !replaced {
			sec.Options = append(sec.Options, opt)
		}
	}
}

// Sections returns the section names in file order.
func (c *Config) Sections() []string {
	names := make([]string, len(c.sections))
	for i, s := range c.sections {
		names[i] = s.Name
	}

	return names
}

// HasSection reports whether a section exists.
func (c *Config) HasSection(section string) bool {
	_, ok := c.index[section]

	return ok
}

// Items returns a copy of the options of section in file order.
func (c *Config) Items(section string) ([]Option, error) {
	sec, ok := c.index[section]
	if !ok {
		return nil, errors.Wrapf(ErrMissingSection, "[%s]", section)
	}

	res := make([]Option, len(sec.Options))
	copy(res, sec.Options)

	return res, nil
}

// Get returns the raw value of key in section.
func (c *Config) Get(section, key string) (string, error) {
	sec, ok := c.index[section]
	if !ok {
		return "", errors.Wrapf(ErrMissingSection, "[%s]", section)
	}

	for _, opt := range sec.Options {
		if opt.Key == key {
			return opt.Value, nil
		}
	}

	return "", errors.Wrapf(ErrMissingOption, "[%s] %s", section, key)
}

// GetDefault returns the value of key in section, or def when it is absent.
func (c *Config) GetDefault(section, key, def string) string {
	val, err := c.Get(section, key)
	if err != nil {
		return def
	}

	return val
}

// GetInt returns key in section parsed as an integer.
func (c *Config) GetInt(section, key string) (int, error) {
	val, err := c.Get(section, key)
	if err != nil {
		return 0, err
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidValue, "[%s] %s: %q is not an integer", section, key, val)
	}

	return i, nil
}

// GetFloat returns key in section parsed as a float.
func (c *Config) GetFloat(section, key string) (float64, error) {
	val, err := c.Get(section, key)
	if err != nil {
		return 0, err
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidValue, "[%s] %s: %q is not a number", section, key, val)
	}

	return f, nil
}
