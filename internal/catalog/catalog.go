// Package catalog loads the preset post catalog and picks the post to publish.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"channelposter/internal/config"
)

// DefaultType is the category of posts that do not declare one. Selecting
// with DefaultType means "no type filter".
const DefaultType = "regular"

var ErrEmptyCatalog = errors.New("catalog has no posts")

// Post is one publishable unit of content.
type Post struct {
	ID      int    `json:"id"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Catalog is the ordered, read-only list of candidate posts.
type Catalog struct {
	Path  string
	posts []Post
}

type catalogFile struct {
	Posts []Post `json:"posts"`
}

// New builds a catalog from posts. Posts without a type get DefaultType.
func New(posts []Post) *Catalog {
	cp := make([]Post, len(posts))
	for i, p := range posts {
		if strings.TrimSpace(p.Type) == "" {
			p.Type = DefaultType
		}
		cp[i] = p
	}
	return &Catalog{posts: cp}
}

// Load reads the catalog file. JSON is the native format; .yaml/.yml and
// .toml files are accepted too. A missing or malformed file, or a file
// without posts, is an error.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	jb, format, err := config.CoerceToJSON(path, b)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	var f catalogFile
	if err := json.NewDecoder(bytes.NewReader(jb)).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode catalog %s (%s): %w", path, format, err)
	}
	if len(f.Posts) == 0 {
		return nil, fmt.Errorf("catalog %s: %w", path, ErrEmptyCatalog)
	}
	c := New(f.Posts)
	c.Path = path
	return c, nil
}

// Len returns the number of posts.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.posts)
}

// At returns the post at 0-based position i.
func (c *Catalog) At(i int) (Post, bool) {
	if c == nil || i < 0 || i >= len(c.posts) {
		return Post{}, false
	}
	return c.posts[i], true
}

// Posts returns a copy of the catalog's posts in order.
func (c *Catalog) Posts() []Post {
	if c == nil {
		return nil
	}
	return append([]Post(nil), c.posts...)
}

// OfType returns the posts whose type equals typ, in catalog order.
func (c *Catalog) OfType(typ string) []Post {
	if c == nil {
		return nil
	}
	var out []Post
	for _, p := range c.posts {
		if p.Type == typ {
			out = append(out, p)
		}
	}
	return out
}
