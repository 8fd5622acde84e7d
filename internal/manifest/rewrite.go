package manifest

// Key prefixes applied to entry-derived outputs.
const (
	ScriptKeyPrefix     = "assets/scripts/"
	StylesheetKeyPrefix = "assets/stylesheets/"
)

// FileDescriptor is one output file of a build pass.
type FileDescriptor struct {
	// Name is the bare output name for entry outputs ("index.js") and the
	// unhashed output-relative path for everything else.
	Name string
	// IsEntry marks outputs compiled from a named entry point.
	IsEntry bool
	// Path is the emitted path relative to the output root.
	Path string
}

// CollisionFunc is told about every key that a later descriptor overwrites.
type CollisionFunc func(key, previous, next string)

// Rewrite builds the manifest from one pass's descriptors. Entry outputs whose
// name is <entry>.js or <entry>.css are keyed under ScriptKeyPrefix or
// StylesheetKeyPrefix; every other descriptor is keyed by its own name.
// Colliding keys are last-write-wins; onCollision may be nil.
func Rewrite(entries []string, files []FileDescriptor, onCollision CollisionFunc) Manifest {
	scripts := make(map[string]bool, len(entries))
	stylesheets := make(map[string]bool, len(entries))
	for _, e := range entries {
		scripts[e+".js"] = true
		stylesheets[e+".css"] = true
	}

	m := make(Manifest, len(files))
	for _, f := range files {
		key := f.Name
		if f.IsEntry {
			switch {
			case scripts[f.Name]:
				key = ScriptKeyPrefix + f.Name
			case stylesheets[f.Name]:
				key = StylesheetKeyPrefix + f.Name
			}
		}
		if prev, ok := m[key]; ok && onCollision != nil && prev != f.Path {
			onCollision(key, prev, f.Path)
		}
		m[key] = f.Path
	}
	return m
}
