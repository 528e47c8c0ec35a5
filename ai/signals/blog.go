package signals

import (
	"bytes"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrNoBlogPost is returned when no post qualifies.
var ErrNoBlogPost = errors.New("no blog post available")

// BlogPost is one long-form post from the owner's blog.
type BlogPost struct {
	Title string
	Date  string
	URL   string
	Body  string
	Path  string
}

// FrontMatter is the subset of post metadata the reader uses.
type FrontMatter struct {
	Title string `yaml:"title"`
	Date  string `yaml:"date"`
	Slug  string `yaml:"slug"`
	URL   string `yaml:"url"`
	Draft bool   `yaml:"draft"`
}

// Blog picks posts from a directory of markdown files with YAML front
// matter.
type Blog struct {
	dir     string
	baseURL string
	rng     *rand.Rand
}

// NewBlog creates a reader over dir. Post URLs are built from baseURL and
// the slug unless the front matter carries an url.
func NewBlog(dir, baseURL string, rng *rand.Rand) *Blog {
	return &Blog{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), rng: rng}
}

// Random returns a random published post whose body has at least minLen
// runes.
func (b *Blog) Random(minLen int) (*BlogPost, error) {
	if b.dir == "" {
		return nil, ErrNoBlogPost
	}
	var posts []*BlogPost
	err := filepath.WalkDir(b.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		fm, body, err := ParseFrontMatter(data)
		if err != nil || fm.Draft || utf8.RuneCountInString(body) < minLen {
			return nil
		}
		posts = append(posts, b.post(path, fm, body))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to walk blog dir")
	}
	if len(posts) == 0 {
		return nil, ErrNoBlogPost
	}
	return posts[b.rng.IntN(len(posts))], nil
}

func (b *Blog) post(path string, fm FrontMatter, body string) *BlogPost {
	p := &BlogPost{Title: fm.Title, Date: fm.Date, Body: body, Path: path, URL: fm.URL}
	if p.Title == "" {
		p.Title = strings.TrimSuffix(filepath.Base(path), ".md")
	}
	if p.URL == "" && b.baseURL != "" {
		slug := fm.Slug
		if slug == "" {
			slug = strings.TrimSuffix(filepath.Base(path), ".md")
		}
		p.URL = b.baseURL + "/" + slug + "/"
	}
	return p
}

// ParseFrontMatter splits a "---" delimited YAML header from the body.
// Files without a header return the whole content as body.
func ParseFrontMatter(data []byte) (FrontMatter, string, error) {
	var fm FrontMatter
	const delim = "---"
	text := string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if !strings.HasPrefix(text, delim+"\n") {
		return fm, strings.TrimSpace(text), nil
	}
	rest := text[len(delim)+1:]
	end := strings.Index(rest, "\n"+delim)
	if end < 0 {
		return fm, "", errors.New("unterminated front matter")
	}
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return fm, "", errors.Wrap(err, "invalid front matter")
	}
	body := rest[end+len(delim)+1:]
	return fm, strings.TrimSpace(body), nil
}
