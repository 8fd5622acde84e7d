// Package hashref resolves logical asset paths to their content-hashed
// variants emitted by one build pass.
package hashref

import (
	"log/slog"
	"path"
	"strings"
)

// Snapshot is the immutable view of one build pass handed to every render
// call: the build hash and the set of output-relative paths it emitted.
type Snapshot struct {
	Hash   string
	assets map[string]struct{}
}

// NewSnapshot captures hash and a copy of the emitted paths.
func NewSnapshot(hash string, assets []string) Snapshot {
	set := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		set[a] = struct{}{}
	}
	return Snapshot{Hash: hash, assets: set}
}

// Has reports whether p was emitted by the build.
func (s Snapshot) Has(p string) bool {
	_, ok := s.assets[p]
	return ok
}

// Len is the number of emitted paths.
func (s Snapshot) Len() int { return len(s.assets) }

// Resolver answers hashed-reference queries against one snapshot.
type Resolver struct {
	snapshot Snapshot
	logger   *slog.Logger
}

// NewResolver binds a resolver to snapshot. A nil logger uses slog.Default.
func NewResolver(snapshot Snapshot, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{snapshot: snapshot, logger: logger}
}

// Resolve maps a logical path such as "assets/images/logo.png" or
// "/assets/images/logo.png" to "assets/images/logo.<hash>.png" when that file
// was emitted, keeping a leading "/" intact. Paths without a hashed variant
// come back unchanged. An empty path logs one error and yields "".
func (r *Resolver) Resolve(logical string) string {
	rootRelative := strings.HasPrefix(logical, "/")
	rel := strings.TrimPrefix(logical, "/")
	if rel == "" {
		r.logger.Error("hashed reference requested for empty path", slog.String("path", logical))
		return ""
	}

	candidate := Candidate(rel, r.snapshot.Hash)
	if !r.snapshot.Has(candidate) {
		return logical
	}
	if rootRelative {
		return "/" + candidate
	}
	return candidate
}

// Candidate builds <dir>/<name>.<hash><ext> for a relative path, omitting the
// directory segment when there is none.
func Candidate(rel, hash string) string {
	dir, file := path.Split(rel)
	name, ext := splitExt(file)
	return dir + name + "." + hash + ext
}

// splitExt splits off the final extension; a leading dot alone does not start
// one, so ".htaccess" has none.
func splitExt(file string) (name, ext string) {
	i := strings.LastIndexByte(file, '.')
	if i <= 0 {
		return file, ""
	}
	return file[:i], file[i:]
}

// HashOf recovers the hash from a logical path and its hashed variant, so
// HashOf("assets/images/logo.png", "assets/images/logo.abc.png") is "abc".
// ok is false when hashed is not Candidate(logical, h) for any h.
func HashOf(logical, hashed string) (string, bool) {
	dir, file := path.Split(logical)
	name, ext := splitExt(file)
	prefix := dir + name + "."
	if len(hashed) <= len(prefix)+len(ext) || !strings.HasPrefix(hashed, prefix) || !strings.HasSuffix(hashed, ext) {
		return "", false
	}
	h := hashed[len(prefix) : len(hashed)-len(ext)]
	if h == "" || strings.Contains(h, "/") || Candidate(logical, h) != hashed {
		return "", false
	}
	return h, true
}
