package refcheck

import (
	"bytes"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Missing is a local reference without a matching file.
type Missing struct {
	Page string // page path relative to the output dir
	Ref  Ref
}

// Checker resolves references against an output directory.
type Checker struct {
	distDir string
}

// NewChecker returns a Checker rooted at distDir.
func NewChecker(distDir string) *Checker {
	return &Checker{distDir: distDir}
}

// CheckPage returns the local references of the page at pageRel (relative to
// the output dir, slash separated) whose targets do not exist.
func (c *Checker) CheckPage(pageRel string, content []byte) ([]Missing, error) {
	refs, err := ExtractRefs(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	var missing []Missing
	for _, ref := range refs {
		if !IsLocal(ref.URL) {
			continue
		}
		target, ok := c.target(pageRel, ref.URL)
		if !ok || !c.exists(target) {
			missing = append(missing, Missing{Page: pageRel, Ref: ref})
		}
	}
	return missing, nil
}

// target maps a reference to a slash path relative to the output dir.
// Rooting before Clean keeps ".." segments inside the output dir.
func (c *Checker) target(pageRel, ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	p := u.Path
	if !strings.HasPrefix(p, "/") {
		p = path.Join(path.Dir(pageRel), p)
	}
	return strings.TrimPrefix(path.Clean("/"+p), "/"), true
}

func (c *Checker) exists(rel string) bool {
	full := filepath.Join(c.distDir, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil {
		return false
	}
	if info.IsDir() {
		_, err = os.Stat(filepath.Join(full, "index.html"))
		return err == nil
	}
	return true
}
