package bundle

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/bep/godartsass/v2"
	"github.com/evanw/esbuild/pkg/api"
)

// SassBinary is the Dart Sass executable started in embedded mode on the
// first .scss load of a build.
var SassBinary = "sass"

// scssFilter matches stylesheets compiled through Dart Sass before esbuild
// bundles them as CSS.
const scssFilter = `\.scss$`

// sassLoader transpiles .scss sources for one esbuild run. The transpiler
// is started lazily so builds without Sass never need the binary.
type sassLoader struct {
	sourceDir  string
	production bool

	once       sync.Once
	transpiler *godartsass.Transpiler
	startErr   error
}

func newSassLoader(opts Options) *sassLoader {
	return &sassLoader{sourceDir: opts.SourceDir, production: opts.Production}
}

func (l *sassLoader) plugin() api.Plugin {
	return api.Plugin{
		Name: "scss",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: scssFilter}, l.load)
		},
	}
}

func (l *sassLoader) start() (*godartsass.Transpiler, error) {
	l.once.Do(func() {
		l.transpiler, l.startErr = godartsass.Start(godartsass.Options{
			DartSassEmbeddedFilename: SassBinary,
		})
	})
	return l.transpiler, l.startErr
}

func (l *sassLoader) load(args api.OnLoadArgs) (api.OnLoadResult, error) {
	t, err := l.start()
	if err != nil {
		return api.OnLoadResult{}, err
	}
	// #nosec G304 -- path was resolved by esbuild below the source dir
	source, err := os.ReadFile(args.Path)
	if err != nil {
		return api.OnLoadResult{}, err
	}

	style := godartsass.OutputStyleExpanded
	if l.production {
		style = godartsass.OutputStyleCompressed
	}
	dir := filepath.Dir(args.Path)
	res, err := t.Execute(godartsass.Args{
		Source:       string(source),
		URL:          "file://" + filepath.ToSlash(args.Path),
		SourceSyntax: godartsass.SourceSyntaxSCSS,
		OutputStyle:  style,
		IncludePaths: []string{dir, l.sourceDir},
	})
	if err != nil {
		return api.OnLoadResult{}, err
	}
	return api.OnLoadResult{
		Contents:   &res.CSS,
		Loader:     api.LoaderCSS,
		ResolveDir: dir,
	}, nil
}

// unavailable reports the error from starting Dart Sass, if a .scss file
// was loaded and the binary could not be started.
func (l *sassLoader) unavailable() error {
	if l.transpiler == nil && l.startErr != nil {
		return l.startErr
	}
	return nil
}

func (l *sassLoader) close() {
	if l.transpiler != nil {
		_ = l.transpiler.Close()
	}
}
