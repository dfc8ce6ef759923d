package blog

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gosimple/slug"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

// Post is a rendered blog article.
type Post struct {
	Slug        string
	Title       string
	Description string
	Author      string
	Date        time.Time
	Tags        []string
	HTML        template.HTML
}

type frontmatter struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Author      string   `yaml:"author"`
	Date        string   `yaml:"date"`
	Slug        string   `yaml:"slug"`
	Tags        []string `yaml:"tags"`
}

// Loader reads markdown posts from a content directory. Posts are parsed
// once and cached; Reload drops the cache.
type Loader struct {
	dir string
	md  goldmark.Markdown

	mu    sync.RWMutex
	posts []Post
}

// NewLoader creates a loader for the given directory.
func NewLoader(dir string) *Loader {
	return &Loader{
		dir: dir,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
	}
}

// LoadAll returns all posts, newest first.
func (l *Loader) LoadAll() ([]Post, error) {
	l.mu.RLock()
	if l.posts != nil {
		posts := l.posts
		l.mu.RUnlock()
		return posts, nil
	}
	l.mu.RUnlock()

	return l.Reload()
}

// Reload re-reads the content directory.
func (l *Loader) Reload() ([]Post, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("blog: read content dir: %w", err)
	}

	var posts []Post
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		post, err := l.loadFile(filepath.Join(l.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}

	sort.Slice(posts, func(i, j int) bool {
		return posts[i].Date.After(posts[j].Date)
	})

	l.mu.Lock()
	l.posts = posts
	l.mu.Unlock()
	return posts, nil
}

// Get returns one post by slug.
func (l *Loader) Get(postSlug string) (*Post, error) {
	posts, err := l.LoadAll()
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if posts[i].Slug == postSlug {
			return &posts[i], nil
		}
	}
	return nil, fmt.Errorf("blog: post %q not found", postSlug)
}

func (l *Loader) loadFile(path string) (Post, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Post{}, fmt.Errorf("blog: read %s: %w", path, err)
	}

	fm, body, err := splitFrontmatter(raw)
	if err != nil {
		return Post{}, fmt.Errorf("blog: parse %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := l.md.Convert(body, &buf); err != nil {
		return Post{}, fmt.Errorf("blog: render %s: %w", path, err)
	}

	post := Post{
		Title:       fm.Title,
		Description: fm.Description,
		Author:      fm.Author,
		Slug:        fm.Slug,
		Tags:        fm.Tags,
		HTML:        template.HTML(buf.String()),
	}
	if post.Title == "" {
		post.Title = strings.TrimSuffix(filepath.Base(path), ".md")
	}
	if post.Slug == "" {
		post.Slug = slug.Make(post.Title)
	}
	if fm.Date != "" {
		for _, layout := range []string{"2006-01-02", time.RFC3339} {
			if t, perr := time.Parse(layout, fm.Date); perr == nil {
				post.Date = t
				break
			}
		}
	}
	return post, nil
}

// splitFrontmatter separates the YAML header from the markdown body.
func splitFrontmatter(raw []byte) (frontmatter, []byte, error) {
	var fm frontmatter
	content := raw
	if bytes.HasPrefix(raw, []byte("---\n")) {
		rest := raw[4:]
		end := bytes.Index(rest, []byte("\n---"))
		if end >= 0 {
			header := rest[:end]
			if err := yaml.Unmarshal(header, &fm); err != nil {
				return fm, nil, err
			}
			content = rest[end+4:]
			content = bytes.TrimLeft(content, "\n")
		}
	}
	return fm, content, nil
}
