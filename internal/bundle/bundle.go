// Package bundle compiles entry points with esbuild into in-memory outputs.
// Nothing is written to disk here; the pipeline decides final, hashed names.
package bundle

import (
	"context"
	stdErrors "errors"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// MediaNames is the esbuild asset naming template for files referenced from
// scripts or stylesheets (fonts, background images). References to them are
// rooted at "/" because entry outputs move under assets/scripts and
// assets/stylesheets after bundling.
const MediaNames = "assets/media/[name].[hash]"

// Options configures one compilation.
type Options struct {
	// SourceDir is the absolute source directory entry paths are relative to.
	SourceDir string
	// Entries maps entry name to its module path relative to SourceDir.
	Entries    map[string]string
	Production bool
	Legacy     bool
}

// Output is one compiled file.
type Output struct {
	// Entry is the entry name for entry outputs, empty otherwise.
	Entry string
	// Name is "<entry>.js" / "<entry>.css" for entry outputs and the
	// output-relative path for everything else.
	Name     string
	Contents []byte
}

// Result is the outcome of a successful compilation.
type Result struct {
	Outputs  []Output
	Warnings []string
}

// legacyEngines bounds syntax lowering for legacy builds.
var legacyEngines = []api.Engine{
	{Name: api.EngineChrome, Version: "58"},
	{Name: api.EngineEdge, Version: "16"},
	{Name: api.EngineFirefox, Version: "57"},
	{Name: api.EngineSafari, Version: "11"},
	{Name: api.EngineIOS, Version: "11"},
}

var fileLoaders = map[string]api.Loader{
	".png":   api.LoaderFile,
	".jpg":   api.LoaderFile,
	".jpeg":  api.LoaderFile,
	".gif":   api.LoaderFile,
	".webp":  api.LoaderFile,
	".avif":  api.LoaderFile,
	".svg":   api.LoaderFile,
	".woff":  api.LoaderFile,
	".woff2": api.LoaderFile,
	".ttf":   api.LoaderFile,
	".eot":   api.LoaderFile,
}

// outDir is a virtual output directory; Write is off so nothing lands there.
const outDir = "__assetpipe_out"

// BuildOptions translates opts into esbuild options.
func BuildOptions(opts Options) api.BuildOptions {
	names := make([]string, 0, len(opts.Entries))
	for name := range opts.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	entryPoints := make([]api.EntryPoint, 0, len(names))
	for _, name := range names {
		entryPoints = append(entryPoints, api.EntryPoint{
			InputPath:  filepath.Join(opts.SourceDir, filepath.FromSlash(opts.Entries[name])),
			OutputPath: name,
		})
	}

	bo := api.BuildOptions{
		EntryPointsAdvanced: entryPoints,
		Bundle:              true,
		Write:               false,
		Outdir:              filepath.Join(opts.SourceDir, outDir),
		AssetNames:          MediaNames,
		PublicPath:          "/",
		AbsWorkingDir:       opts.SourceDir,
		Platform:            api.PlatformBrowser,
		Format:              api.FormatIIFE,
		Target:              api.ESNext,
		Loader:              fileLoaders,
		LogLevel:            api.LogLevelSilent,
		Sourcemap:           api.SourceMapInline,
		Define:              map[string]string{"process.env.NODE_ENV": `"development"`},
	}
	if opts.Production {
		bo.MinifyWhitespace = true
		bo.MinifyIdentifiers = true
		bo.MinifySyntax = true
		bo.Sourcemap = api.SourceMapNone
		bo.Define = map[string]string{"process.env.NODE_ENV": `"production"`}
	}
	if opts.Legacy {
		bo.Target = api.ES2015
		bo.Engines = legacyEngines
	}
	return bo
}

// Bundle compiles every entry. Compilation errors are fatal and carry
// esbuild's formatted messages.
func Bundle(ctx context.Context, opts Options) (*Result, error) {
	if len(opts.Entries) == 0 {
		return &Result{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sass := newSassLoader(opts)
	defer sass.close()
	bo := BuildOptions(opts)
	bo.Plugins = append(bo.Plugins, sass.plugin())
	result := api.Build(bo)
	if err := sass.unavailable(); err != nil {
		return nil, errors.ValidationError("unsupported stylesheet language: scss requires the Dart Sass binary").
			WithCause(err).
			WithContext("binary", SassBinary).
			Build()
	}
	if len(result.Errors) > 0 {
		messages := api.FormatMessages(result.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})
		return nil, errors.BundleError("compilation failed").
			WithCause(stdErrors.New(strings.TrimSpace(strings.Join(messages, "")))).
			WithContext("errors", len(result.Errors)).
			Build()
	}

	res := &Result{
		Warnings: api.FormatMessages(result.Warnings, api.FormatMessagesOptions{Kind: api.WarningMessage}),
	}
	for _, f := range result.OutputFiles {
		rel, err := filepath.Rel(bo.Outdir, f.Path)
		if err != nil {
			return nil, errors.InternalError("unexpected esbuild output path").WithCause(err).
				WithContext("path", f.Path).Build()
		}
		rel = filepath.ToSlash(rel)
		res.Outputs = append(res.Outputs, Output{
			Entry:    entryFor(rel, opts.Entries),
			Name:     rel,
			Contents: f.Contents,
		})
	}
	sort.Slice(res.Outputs, func(i, j int) bool { return res.Outputs[i].Name < res.Outputs[j].Name })
	return res, nil
}

func entryFor(rel string, entries map[string]string) string {
	ext := filepath.Ext(rel)
	if ext != ".js" && ext != ".css" {
		return ""
	}
	name := strings.TrimSuffix(rel, ext)
	if _, ok := entries[name]; ok {
		return name
	}
	return ""
}
