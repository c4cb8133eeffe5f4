package content

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Post 内容目录中的一篇文章
type Post struct {
	Slug    string    `yaml:"slug"`
	Title   string    `yaml:"title"`
	Summary string    `yaml:"summary"`
	Date    time.Time `yaml:"date"`
}

// Catalog 内容目录
type Catalog interface {
	FindBySlug(slug string) (*Post, bool)
}

// StaticCatalog 内存中的内容目录
type StaticCatalog struct {
	mu    sync.RWMutex
	posts map[string]Post
}

// NewStaticCatalog 根据文章列表创建目录
func NewStaticCatalog(posts ...Post) *StaticCatalog {
	c := &StaticCatalog{posts: make(map[string]Post, len(posts))}
	for _, p := range posts {
		c.posts[p.Slug] = p
	}
	return c
}

// FindBySlug 按 slug 查找文章
func (c *StaticCatalog) FindBySlug(slug string) (*Post, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.posts[slug]
	if !ok {
		return nil, false
	}
	return &p, true
}

// Len 文章数量
func (c *StaticCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.posts)
}

var frontMatterDelim = []byte("---")

// LoadDir 扫描目录下的 .md / .mdx 文件，读取 front matter
// slug 缺省为文件名
func LoadDir(dir string) (*StaticCatalog, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return NewStaticCatalog(), nil
	}

	var posts []Post
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".md" && ext != ".mdx" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		p, err := ParseFrontMatter(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if p.Slug == "" {
			p.Slug = strings.TrimSuffix(filepath.Base(path), ext)
		}
		posts = append(posts, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return NewStaticCatalog(posts...), nil
}

// ParseFrontMatter 解析 --- 包裹的 YAML 头
func ParseFrontMatter(data []byte) (Post, error) {
	var p Post

	data = bytes.TrimLeft(data, "\ufeff \t\r\n")
	if !bytes.HasPrefix(data, frontMatterDelim) {
		return p, nil
	}
	rest := data[len(frontMatterDelim):]
	end := bytes.Index(rest, append([]byte("\n"), frontMatterDelim...))
	if end < 0 {
		return p, fmt.Errorf("unterminated front matter")
	}

	if err := yaml.Unmarshal(rest[:end], &p); err != nil {
		return p, err
	}
	return p, nil
}
