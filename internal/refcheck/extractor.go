// Package refcheck reports local references in rendered pages that point at
// files missing from the output directory.
package refcheck

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// Ref is one reference found in a page.
type Ref struct {
	URL       string // value as written
	Tag       string // element name (img, script, use, ...)
	Attribute string // attribute carrying the reference
}

// refAttributes lists, per element, the attributes holding references.
var refAttributes = map[string][]string{
	"a":      {"href"},
	"link":   {"href"},
	"script": {"src"},
	"img":    {"src", "srcset"},
	"source": {"src", "srcset"},
	"video":  {"src", "poster"},
	"audio":  {"src"},
	"iframe": {"src"},
	"use":    {"href"},
	"image":  {"href"},
}

// ExtractRefs parses r as HTML and returns every reference in document order.
func ExtractRefs(r io.Reader) ([]Ref, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.ValidationError("failed to parse HTML").WithCause(err).Build()
	}

	var refs []Ref
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			refs = append(refs, elementRefs(n)...)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs, nil
}

func elementRefs(n *html.Node) []Ref {
	attrs, ok := refAttributes[n.Data]
	if !ok {
		return nil
	}
	var refs []Ref
	for _, key := range attrs {
		// xlink:href parses as namespace "xlink", key "href" inside svg.
		for _, a := range n.Attr {
			if a.Key != key || a.Val == "" {
				continue
			}
			name := key
			if a.Namespace != "" {
				name = a.Namespace + ":" + key
			}
			if key == "srcset" {
				for _, candidate := range splitSrcset(a.Val) {
					refs = append(refs, Ref{URL: candidate, Tag: n.Data, Attribute: name})
				}
				continue
			}
			refs = append(refs, Ref{URL: a.Val, Tag: n.Data, Attribute: name})
		}
	}
	return refs
}

// splitSrcset returns the URL of each srcset candidate.
func splitSrcset(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		fields := strings.Fields(part)
		if len(fields) > 0 {
			out = append(out, fields[0])
		}
	}
	return out
}

// IsLocal reports whether ref points at a file this build could have produced.
// Fragments, absolute URLs, protocol-relative URLs and special schemes are not.
func IsLocal(ref string) bool {
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "//") {
		return false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && u.Path != ""
}
