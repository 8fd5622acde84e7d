package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/hashref"
	"git.home.luguber.info/inful/assetpipe/internal/manifest"
)

// LookupCmd implements the 'lookup' command.
type LookupCmd struct {
	Key string `arg:"" help:"Manifest key, e.g. assets/scripts/index.js"`
}

func (l *LookupCmd) Run(_ *Global, cli *CLI) error {
	m, _, err := loadManifest(cli)
	if err != nil {
		return err
	}
	p, ok := m.Lookup(l.Key)
	if !ok {
		return errors.NotFoundError("asset not found in manifest").WithContext("key", l.Key).Build()
	}
	fmt.Println(p)
	return nil
}

// ResolveCmd implements the 'resolve' command.
type ResolveCmd struct {
	Path string `arg:"" help:"Logical asset path, e.g. /assets/images/logo.png"`
	Hash string `help:"Build hash; inferred from the manifest when empty"`
}

func (r *ResolveCmd) Run(g *Global, cli *CLI) error {
	m, dist, err := loadManifest(cli)
	if err != nil {
		return err
	}
	hash := r.Hash
	if hash == "" {
		var ok bool
		if hash, ok = inferHash(m); !ok {
			return errors.NotFoundError("cannot infer build hash from manifest; pass --hash").Build()
		}
	}
	assets, err := distFiles(dist)
	if err != nil {
		return err
	}
	fmt.Println(hashref.NewResolver(hashref.NewSnapshot(hash, assets), g.Logger).Resolve(r.Path))
	return nil
}

func loadManifest(cli *CLI) (manifest.Manifest, string, error) {
	root, env, err := cli.environment(false, false)
	if err != nil {
		return nil, "", err
	}
	paths := env.Paths.Abs(root)
	m, err := manifest.Load(paths.ManifestPath())
	if err != nil {
		return nil, "", err
	}
	return m, paths.Dist, nil
}

// inferHash recovers the build hash from the first hashed manifest entry.
func inferHash(m manifest.Manifest) (string, bool) {
	for _, key := range m.Keys() {
		if h, ok := hashref.HashOf(key, m[key]); ok {
			return h, true
		}
	}
	return "", false
}

func distFiles(dist string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dist), "**", doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.FileSystemError("list dist").WithCause(err).WithContext("path", dist).Build()
	}
	sort.Strings(matches)
	return matches, nil
}
