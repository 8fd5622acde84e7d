package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// ProjectFileName is the optional project file at the project root.
const ProjectFileName = "assetpipe.yaml"

// Project is the static build configuration: entry points, templates,
// sprite sets and codec options.
type Project struct {
	// Entries maps an entry name to its source module, relative to the source dir.
	Entries   map[string]string `yaml:"entries"`
	Templates []TemplateSpec    `yaml:"templates"`
	Sprites   []SpriteSet       `yaml:"sprites"`
	Images    ImageOptions      `yaml:"images"`
	Server    ServerFile        `yaml:"server"`
}

// TemplateSpec declares one server-rendered page.
type TemplateSpec struct {
	Source string         `yaml:"source"` // relative to the templates dir
	Output string         `yaml:"output"` // relative to dist; defaults to the source base name
	Params map[string]any `yaml:"params,omitempty"`
}

// SpriteSet declares one spritemap built from an icon glob.
type SpriteSet struct {
	Name string `yaml:"name"`
	Glob string `yaml:"glob"` // relative to the source dir
}

// ImageOptions is the static codec configuration used in production builds.
type ImageOptions struct {
	JPEGQuality    int    `yaml:"jpeg_quality"`
	PNGCompression string `yaml:"png_compression"` // default|speed|best|none
}

// ServerFile holds server defaults; environment variables take precedence.
type ServerFile struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Proxy string `yaml:"proxy"`
}

// EntryNames returns the declared entry names in sorted order.
func (p *Project) EntryNames() []string {
	names := make([]string, 0, len(p.Entries))
	for name := range p.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServerDefaults converts the file section into a ServerConfig base.
func (p *Project) ServerDefaults() ServerConfig {
	return ServerConfig{Host: p.Server.Host, Port: p.Server.Port, Proxy: p.Server.Proxy}
}

// LoadProject reads assetpipe.yaml from root when present and fills every
// missing section by discovery under paths (which must be absolute).
func LoadProject(root string, paths Paths) (*Project, error) {
	p := &Project{}
	file := filepath.Join(root, ProjectFileName)
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		// Expand environment variables in the YAML content
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), p); err != nil {
			return nil, errors.ConfigError("parse project file").WithCause(err).
				Fatal().
				WithContext("path", file).
				Build()
		}
	case !os.IsNotExist(err):
		return nil, errors.ConfigError("read project file").WithCause(err).
			Fatal().
			WithContext("path", file).
			Build()
	}

	if err := p.applyDefaults(paths); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Project) applyDefaults(paths Paths) error {
	if len(p.Entries) == 0 {
		entries, err := discoverEntries(paths)
		if err != nil {
			return err
		}
		p.Entries = entries
	}
	if len(p.Templates) == 0 {
		templates, err := discoverTemplates(paths)
		if err != nil {
			return err
		}
		p.Templates = templates
	}
	for i := range p.Templates {
		if p.Templates[i].Output == "" {
			p.Templates[i].Output = filepath.ToSlash(filepath.Base(p.Templates[i].Source))
		}
	}
	if len(p.Sprites) == 0 {
		sets, err := discoverSpriteSets(paths)
		if err != nil {
			return err
		}
		p.Sprites = sets
	}
	if p.Images.JPEGQuality == 0 {
		p.Images.JPEGQuality = 75
	}
	if p.Images.PNGCompression == "" {
		p.Images.PNGCompression = "best"
	}
	return nil
}

// Validate checks the project for declarations the pipeline cannot honor.
func (p *Project) Validate() error {
	for name, src := range p.Entries {
		if name == "" || strings.ContainsAny(name, `/\`) {
			return errors.ValidationError("invalid entry name").WithContext("entry", name).Build()
		}
		if src == "" {
			return errors.ValidationError("entry has no source").WithContext("entry", name).Build()
		}
	}
	outputs := make(map[string]bool, len(p.Templates))
	for _, t := range p.Templates {
		if t.Source == "" {
			return errors.ValidationError("template has no source").Build()
		}
		if outputs[t.Output] {
			return errors.ValidationError("duplicate template output").WithContext("output", t.Output).Build()
		}
		outputs[t.Output] = true
	}
	sets := make(map[string]bool, len(p.Sprites))
	for _, s := range p.Sprites {
		if s.Name == "" || s.Name == SpriteIntermediateDir || strings.ContainsAny(s.Name, `/\`) {
			return errors.ValidationError("invalid sprite set name").WithContext("sprite_set", s.Name).Build()
		}
		if sets[s.Name] {
			return errors.ValidationError("duplicate sprite set").WithContext("sprite_set", s.Name).Build()
		}
		sets[s.Name] = true
	}
	if q := p.Images.JPEGQuality; q < 1 || q > 100 {
		return errors.ValidationError(fmt.Sprintf("jpeg_quality must be within 1..100, got %d", q)).Build()
	}
	switch p.Images.PNGCompression {
	case "default", "speed", "best", "none":
	default:
		return errors.ValidationError("unknown png_compression").WithContext("value", p.Images.PNGCompression).Build()
	}
	return nil
}

// discoverEntries treats every top-level script under <src>/assets as an entry.
func discoverEntries(paths Paths) (map[string]string, error) {
	matches, err := globDir(paths.AssetsDir(), "*.{ts,js}")
	if err != nil {
		return nil, err
	}
	entries := make(map[string]string, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(m, filepath.Ext(m))
		entries[name] = filepath.ToSlash(filepath.Join("assets", m))
	}
	return entries, nil
}

func discoverTemplates(paths Paths) ([]TemplateSpec, error) {
	matches, err := globDir(paths.TemplatesDir(), "*.html")
	if err != nil {
		return nil, err
	}
	specs := make([]TemplateSpec, 0, len(matches))
	for _, m := range matches {
		specs = append(specs, TemplateSpec{Source: m, Output: m})
	}
	return specs, nil
}

func discoverSpriteSets(paths Paths) ([]SpriteSet, error) {
	dirs, err := os.ReadDir(paths.SpritesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.FileSystemError("list sprite sets").WithCause(err).Build()
	}
	var sets []SpriteSet
	for _, d := range dirs {
		if !d.IsDir() || d.Name() == SpriteIntermediateDir || strings.HasPrefix(d.Name(), ".") {
			continue
		}
		sets = append(sets, SpriteSet{
			Name: d.Name(),
			Glob: filepath.ToSlash(filepath.Join("assets", "sprites", d.Name(), "*.svg")),
		})
	}
	return sets, nil
}

// globDir matches pattern inside dir and returns sorted relative paths. A
// missing dir yields no matches.
func globDir(dir, pattern string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.ConfigError("glob").WithCause(err).WithContext("pattern", pattern).Build()
	}
	sort.Strings(matches)
	return matches, nil
}
