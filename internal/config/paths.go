package config

import "path/filepath"

// ManifestFileName is the manifest written at the output root.
const ManifestFileName = "asset-manifest.json"

// SpriteIntermediateDir is the directory under the sprites root where
// generated spritemaps are staged before the copy stage picks them up.
const SpriteIntermediateDir = "_"

// Paths is the source/public/dist triple, each relative to the project root
// and free of trailing slashes.
type Paths struct {
	Source string
	Public string
	Dist   string
}

// Abs returns a copy with every directory joined onto root.
func (p Paths) Abs(root string) Paths {
	join := func(dir string) string {
		if filepath.IsAbs(dir) {
			return filepath.Clean(dir)
		}
		return filepath.Join(root, dir)
	}
	return Paths{Source: join(p.Source), Public: join(p.Public), Dist: join(p.Dist)}
}

func (p Paths) AssetsDir() string    { return filepath.Join(p.Source, "assets") }
func (p Paths) TemplatesDir() string { return filepath.Join(p.Source, "templates") }
func (p Paths) ImagesDir() string    { return filepath.Join(p.AssetsDir(), "images") }
func (p Paths) SpritesDir() string   { return filepath.Join(p.AssetsDir(), "sprites") }

// SpriteOutputDir is the intermediate spritemap location inside the source tree.
func (p Paths) SpriteOutputDir() string {
	return filepath.Join(p.SpritesDir(), SpriteIntermediateDir)
}

// ManifestPath is the location of asset-manifest.json.
func (p Paths) ManifestPath() string { return filepath.Join(p.Dist, ManifestFileName) }
