// Package deploy renders the public feed and pushes the site.
package deploy

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/argoclaw/Clawtter-Argo/ai/summary"
	"github.com/argoclaw/Clawtter-Argo/store"
)

const (
	// FeedFile is written at the root of the site dir.
	FeedFile = "feed.atom"
	// FeedLimit is the number of artifacts in the feed.
	FeedLimit = 20
	// PushTimeout bounds the push script.
	PushTimeout = 5 * time.Minute

	titleLen = 60
)

// Source lists published artifacts, newest first.
type Source interface {
	Recent(n int) ([]*store.Artifact, error)
}

// Config configures rendering and publishing.
type Config struct {
	SiteDir    string
	PushScript string
	Timeout    time.Duration

	Title   string
	BaseURL string
	Author  string
}

// Deployer renders feed.atom and runs the push script. Running it twice
// over the same artifacts produces the same output.
type Deployer struct {
	source Source
	cfg    Config
	md     goldmark.Markdown
}

// New creates a Deployer.
func New(source Source, cfg Config) *Deployer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = PushTimeout
	}
	if cfg.Title == "" {
		cfg.Title = "Clawtter"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Deployer{
		source: source,
		cfg:    cfg,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

// Feed builds the feed from the newest artifacts. The feed's updated time
// is the newest artifact's time.
func (d *Deployer) Feed() (*feeds.Feed, error) {
	list, err := d.source.Recent(FeedLimit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list artifacts")
	}

	feed := &feeds.Feed{
		Title:       d.cfg.Title,
		Link:        &feeds.Link{Href: d.cfg.BaseURL + "/"},
		Description: "Autonomous posts",
		Id:          d.cfg.BaseURL + "/" + FeedFile,
	}
	if d.cfg.Author != "" {
		feed.Author = &feeds.Author{Name: d.cfg.Author}
	}
	if len(list) > 0 {
		feed.Updated = list[0].Time
		feed.Created = list[len(list)-1].Time
	}

	for _, a := range list {
		item, err := d.item(a)
		if err != nil {
			return nil, err
		}
		feed.Items = append(feed.Items, item)
	}
	return feed, nil
}

func (d *Deployer) item(a *store.Artifact) (*feeds.Item, error) {
	var buf bytes.Buffer
	if err := d.md.Convert([]byte(a.Body), &buf); err != nil {
		return nil, errors.Wrapf(err, "failed to render %s", a.Path)
	}

	name := filepath.Base(a.Path)
	if a.Path == "" {
		name = a.FileName()
	}
	slug := strings.TrimSuffix(name, filepath.Ext(name))
	link := fmt.Sprintf("%s/%s/%s.html", d.cfg.BaseURL, a.Time.Format("2006/01/02"), slug)

	item := &feeds.Item{
		Id:          link,
		Title:       title(a),
		Link:        &feeds.Link{Href: link},
		Description: summary.Excerpt(a.Body, 200),
		Content:     buf.String(),
		Created:     a.Time,
		Updated:     a.Time,
	}
	if a.OriginalURL != "" {
		item.Source = &feeds.Link{Href: a.OriginalURL}
	}
	return item, nil
}

func title(a *store.Artifact) string {
	t := summary.Excerpt(a.Body, titleLen)
	t = strings.TrimLeft(t, "#> ")
	if t == "" {
		return a.Time.Format(store.TimeLayout)
	}
	return t
}

// Atom renders the feed as an Atom document.
func (d *Deployer) Atom() (string, error) {
	feed, err := d.Feed()
	if err != nil {
		return "", err
	}
	out, err := feed.ToAtom()
	if err != nil {
		return "", errors.Wrap(err, "failed to encode atom feed")
	}
	return out, nil
}

// Deploy writes feed.atom into the site dir, replacing it only when the
// content changed, then runs the push script when one is configured.
func (d *Deployer) Deploy(ctx context.Context) error {
	if d.cfg.SiteDir != "" {
		if err := d.writeFeed(); err != nil {
			return err
		}
	}
	if d.cfg.PushScript == "" {
		return nil
	}
	return d.push(ctx)
}

func (d *Deployer) writeFeed() error {
	atom, err := d.Atom()
	if err != nil {
		return err
	}
	path := filepath.Join(d.cfg.SiteDir, FeedFile)
	if old, err := os.ReadFile(path); err == nil && string(old) == atom {
		return nil
	}
	if err := os.MkdirAll(d.cfg.SiteDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create site dir")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(atom), 0o644); err != nil {
		return errors.Wrap(err, "failed to write feed")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "failed to replace feed")
	}
	slog.Info("Deploy: feed rendered", "path", path)
	return nil
}

func (d *Deployer) push(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.cfg.PushScript)
	cmd.Dir = d.cfg.SiteDir
	cmd.WaitDelay = time.Second
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errors.Wrapf(ctx.Err(), "push script timed out after %s", d.cfg.Timeout)
		}
		return errors.Wrapf(err, "push script failed: %s", tail(out.String(), 300))
	}
	slog.Info("Deploy: pushed", "script", d.cfg.PushScript, "elapsed", time.Since(start))
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
