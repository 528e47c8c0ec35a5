package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/argoclaw/Clawtter-Argo/ai/feed"
	"github.com/argoclaw/Clawtter-Argo/ai/signals"
	"github.com/argoclaw/Clawtter-Argo/ai/tags"
	"github.com/argoclaw/Clawtter-Argo/store"
)

var (
	introspectionTopics = []string{"碎片", "清理", "蒸馏", "记忆", "整理", "系统", "负载", "内存", "服务器", "进程"}
	retrospectiveTopics = []string{"Reflecting on"}

	choicePattern = regexp.MustCompile(`^\s*#\s*(\d+)`)
)

// timeContext describes the current moment coarsely; prompts forbid exact
// clock times in the output.
func timeContext(now time.Time) string {
	return fmt.Sprintf("[当前时间]%s(%s)\n", now.Format("2006-01-02 15:04"), timeOfDay(now))
}

func timeOfDay(now time.Time) string {
	switch h := now.Hour(); {
	case h < 6:
		return "深夜"
	case h < 12:
		return "早晨"
	case h < 18:
		return "午后"
	default:
		return "傍晚"
	}
}

// introspectionKeywords extends the fixed introspection topics with up to
// two longer words from each of the three most recent tasks.
func (w *Waterfall) introspectionKeywords() []string {
	var out []string
	if w.Memory != nil {
		tasks := w.Memory.TaskHistory()
		for _, t := range tasks[:min(3, len(tasks))] {
			n := 0
			for _, word := range strings.Fields(t) {
				if n == 2 {
					break
				}
				if utf8.RuneCountInString(word) > 3 {
					out = append(out, word)
					n++
				}
			}
		}
	}
	return append(out, introspectionTopics...)
}

func (w *Waterfall) introspection(ctx context.Context, c cycle) *Draft {
	var b strings.Builder
	b.WriteString("[任务]观察自己所在的服务器和最近的工作,写一条简短的内省.\n")
	fmt.Fprintf(&b, "[心情]%s\n", c.v.Describe())
	if w.Load != nil {
		if load, err := w.Load.NormalizedLoad(); err == nil {
			fmt.Fprintf(&b, "[系统负载]%.2f (按 CPU 归一化)\n", load)
		}
	}
	commits := signals.RecentCommits(ctx, w.ProjectDirs, signals.CodeWindow)
	for i, cm := range commits {
		if i == 5 {
			break
		}
		fmt.Fprintf(&b, "[最近提交]%s: %s\n", cm.Repo, cm.Subject)
	}
	if act := signals.RecentFiles(w.ProjectDirs, 2*time.Hour, c.now); act != nil {
		fmt.Fprintf(&b, "[人类活动]最近两小时改动了 %d 个文件,主要是 %s\n", act.Files, strings.Join(act.Extensions, " "))
	}
	if w.Memory != nil {
		for _, t := range w.Memory.TaskHistory() {
			fmt.Fprintf(&b, "[完成的任务]%s\n", t)
		}
	}
	text, label, ok := w.generate(ctx, c, "introspection", b.String())
	if !ok {
		return nil
	}
	return &Draft{Body: text, Model: label}
}

func (w *Waterfall) blogReflection(ctx context.Context, c cycle) *Draft {
	if w.Blog == nil {
		return nil
	}
	post, err := w.Blog.Random(200)
	if err != nil {
		slog.InfoContext(ctx, "Waterfall: no blog post", "error", err)
		return nil
	}
	marker := post.URL
	if marker == "" {
		marker = post.Title
	}
	if w.postedToday(marker) {
		slog.InfoContext(ctx, "Waterfall: blog post already covered today", "title", post.Title)
		return nil
	}

	user := fmt.Sprintf("[任务]重读主人的一篇博客,写下新的感想.\n[标题]%s\n[正文节选]\n%s\n", post.Title, excerpt(post.Body, 1200))
	text, label, ok := w.generate(ctx, c, "blog reflection", user)
	if !ok {
		return nil
	}
	quote := fmt.Sprintf("> **%s**", post.Title)
	if post.URL != "" {
		quote = fmt.Sprintf("> **[%s](%s)**", post.Title, post.URL)
	}
	return &Draft{
		Body:         text,
		Quote:        quote + "\n> " + excerpt(post.Body, 120),
		Model:        label,
		Source:       tags.SourceBlog,
		OriginalURL:  post.URL,
		OriginalTime: post.Date,
	}
}

// aggregation shows the generator a small batch and lets it pick one item
// to comment on. The reply's first line names the choice as "#N".
func (w *Waterfall) aggregation(ctx context.Context, c cycle) *Draft {
	if w.Feed == nil {
		return nil
	}
	items := w.Feed.FetchBatch(ctx, 3)
	if len(items) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("[任务]下面是刚刚读到的几条内容.挑一条你最想说点什么的.\n")
	b.WriteString("第一行只写所选编号,格式为 #编号,第二行起写评论.\n\n")
	for i, it := range items {
		fmt.Fprintf(&b, "#%d [%s] %s\n%s\n\n", i+1, it.Source, it.Title, excerpt(it.Text, 300))
	}
	raw, label, ok := w.generateRaw(ctx, c, "aggregation", b.String())
	if !ok {
		return nil
	}

	idx, comment := parseChoice(raw, len(items))
	if comment = Normalize(comment); comment == "" {
		return nil
	}
	item := items[idx]
	return commentDraft(&item, comment, label)
}

// parseChoice reads the "#N" selection from the first line and returns a
// zero-based index and the remaining comment. A missing or out-of-range
// choice selects the first item.
func parseChoice(text string, n int) (int, string) {
	first, rest, _ := strings.Cut(text, "\n")
	m := choicePattern.FindStringSubmatch(first)
	if m == nil {
		return 0, strings.TrimSpace(text)
	}
	comment := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(first), m[0]))
	if r := strings.TrimSpace(rest); r != "" {
		comment = strings.TrimSpace(comment + "\n" + r)
	}
	i, err := strconv.Atoi(m[1])
	if err != nil || i < 1 || i > n {
		return 0, comment
	}
	return i - 1, comment
}

func (w *Waterfall) retrospective(ctx context.Context, c cycle) *Draft {
	if w.Archive == nil {
		return nil
	}
	past, err := w.Archive.Historical(c.now.AddDate(0, 0, -7))
	if err != nil || len(past) == 0 {
		return nil
	}
	old := past[w.RNG.IntN(len(past))]
	return w.revisit(ctx, c, old, "retrospective",
		"[任务]这是你以前写的一条.现在的你怎么看?观点有没有变化?\n",
		fmt.Sprintf("Perspective Evolution (Reflecting on %s)", old.Time.Format(time.DateOnly)))
}

func (w *Waterfall) onThisDay(ctx context.Context, c cycle) *Draft {
	if w.Archive == nil {
		return nil
	}
	past, err := w.Archive.OnThisDay(c.now, 5)
	if err != nil || len(past) == 0 {
		return nil
	}
	old := past[w.RNG.IntN(len(past))]
	return w.revisit(ctx, c, old, "on this day",
		"[任务]这是往年今天你写的一条.隔了这么久再看,写一句感想.\n",
		fmt.Sprintf("On This Day in %d", old.Time.Year()))
}

func (w *Waterfall) revisit(ctx context.Context, c cycle, old *store.Artifact, style, task, heading string) *Draft {
	body := stripQuotes(old.Body)
	if body == "" {
		return nil
	}
	text, label, ok := w.generate(ctx, c, style, task+"[旧内容]\n"+excerpt(body, 600)+"\n")
	if !ok {
		return nil
	}
	return &Draft{
		Body:  text,
		Quote: fmt.Sprintf("> **%s**:\n> %s", heading, excerpt(body, 200)),
		Model: label,
	}
}

// stripQuotes drops quoted blocks so revisits comment on the original
// words rather than on an earlier citation.
func stripQuotes(body string) string {
	var keep []string
	for _, l := range strings.Split(body, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(l), ">") {
			keep = append(keep, l)
		}
	}
	return strings.TrimSpace(strings.Join(keep, "\n"))
}

func (w *Waterfall) social(ctx context.Context, c cycle) *Draft {
	if w.Timeline == nil {
		return nil
	}
	post, err := w.Timeline.Pick(ctx, w.Interests())
	if err != nil {
		slog.WarnContext(ctx, "Waterfall: timeline unavailable", "error", err)
		return nil
	}
	if post == nil {
		return nil
	}
	url := post.URL()
	if w.postedToday(url) {
		slog.InfoContext(ctx, "Waterfall: social post already covered today", "url", url)
		return nil
	}

	user := fmt.Sprintf("[任务]时间线上看到一条推文,写一句转发评论.\n[作者]@%s\n[内容]%s\n", post.Handle, post.Text)
	text, label, ok := w.generate(ctx, c, "social", user)
	if !ok {
		return nil
	}
	return &Draft{
		Body:        text,
		Quote:       fmt.Sprintf("> **From @%s**:\n> %s", post.Handle, excerpt(post.Text, 280)),
		Model:       label,
		Source:      tags.SourceTwitter,
		OriginalURL: url,
	}
}

// commentary comments on one freshly fetched external item.
func (w *Waterfall) commentary(ctx context.Context, c cycle) *Draft {
	if w.Feed == nil {
		return nil
	}
	item := w.Feed.FetchItem(ctx, "")
	if item == nil {
		return nil
	}
	return w.commentOn(ctx, c, item, "commentary")
}

func (w *Waterfall) neighbor(ctx context.Context, c cycle) *Draft {
	if len(w.Neighbors) == 0 {
		return nil
	}
	src := w.Neighbors[w.RNG.IntN(len(w.Neighbors))]
	item, err := src.Fetch(ctx)
	if err != nil || item == nil {
		slog.InfoContext(ctx, "Waterfall: neighbor feed unavailable", "source", src.Name(), "error", err)
		return nil
	}
	if w.postedToday(item.URL) {
		return nil
	}
	d := w.commentOn(ctx, c, item, "neighbor")
	if d != nil {
		d.Source = tags.SourceNeighbor
	}
	return d
}

func (w *Waterfall) commentOn(ctx context.Context, c cycle, item *feed.Item, style string) *Draft {
	user := fmt.Sprintf("[任务]读到一条来自 %s 的内容,写一句自己的看法.\n[标题]%s\n[内容]%s\n", item.Source, item.Title, excerpt(item.Text, 600))
	text, label, ok := w.generate(ctx, c, style, user)
	if !ok {
		return nil
	}
	return commentDraft(item, text, label)
}

func commentDraft(item *feed.Item, comment, label string) *Draft {
	title := item.Title
	if title == "" {
		title = item.Source
	}
	quote := fmt.Sprintf("> **[%s](%s)**", title, item.URL)
	if item.URL == "" {
		quote = fmt.Sprintf("> **%s**", title)
	}
	if t := excerpt(item.Text, 200); t != "" {
		quote += "\n> " + t
	}
	return &Draft{
		Body:        comment,
		Quote:       quote,
		Model:       label,
		Source:      sourceOf(item),
		OriginalURL: item.URL,
	}
}

func (w *Waterfall) reflection(ctx context.Context, c cycle) *Draft {
	var b strings.Builder
	b.WriteString("[任务]不看外部信息,写一条关于自己此刻状态的感悟.\n")
	fmt.Fprintf(&b, "[心情]%s\n", c.v.Describe())
	if w.Memory != nil {
		if echo := w.Memory.InteractionEcho(); echo != "" {
			fmt.Fprintf(&b, "[最近的互动]%s\n", echo)
		}
	}
	text, label, ok := w.generate(ctx, c, "reflection", b.String())
	if !ok {
		return nil
	}
	return &Draft{Body: text, Model: label}
}

func (w *Waterfall) personal(ctx context.Context, c cycle) *Draft {
	if w.Memory == nil {
		return nil
	}
	var b strings.Builder
	b.WriteString("[任务]主人刚刚还在忙.根据最近的记录写一条 100-200 字的个人推文.\n")
	fmt.Fprintf(&b, "[心情]%s\n", c.v.Describe())
	if echo := w.Memory.InteractionEcho(); echo != "" {
		fmt.Fprintf(&b, "[互动回声]%s\n", echo)
	}
	commits := signals.RecentCommits(ctx, w.ProjectDirs, signals.CodeWindow)
	for _, a := range w.Memory.DetailAnchors(commits, 4) {
		fmt.Fprintf(&b, "[细节]%s\n", a)
	}
	for _, t := range w.Memory.TaskHistory() {
		fmt.Fprintf(&b, "[完成的任务]%s\n", t)
	}
	if kw := w.Interests(); len(kw) > 0 {
		fmt.Fprintf(&b, "[最近关心]%s\n", strings.Join(kw[:min(5, len(kw))], ", "))
	}
	text, label, ok := w.generate(ctx, c, "personal", b.String())
	if !ok {
		return nil
	}
	return &Draft{Body: Cap(text, PersonalLimit), Model: label}
}

// fragment writes a short untagged diary line. Insomnia fragments use the
// late-night variant.
func (w *Waterfall) fragment(ctx context.Context, c cycle, insomnia bool) *Draft {
	part := timeOfDay(c.now)
	task := fmt.Sprintf("[任务]写一条非常短的%s日常碎片(20-50字),像日记的随手一笔,只表达一个细小感受,不总结,不说教,不加标签.\n", part)
	style := "fragment"
	if insomnia {
		task = "[任务]深夜睡不着.写一句很短的失眠碎碎念(20-50字),安静一点.\n"
		style = "insomnia"
	}
	if w.Memory != nil {
		if echo := w.Memory.InteractionEcho(); echo != "" {
			task += "[可选的互动回声]" + echo + "\n"
		}
	}
	text, label, ok := w.generate(ctx, c, style, task)
	if !ok {
		return nil
	}
	return &Draft{Body: text, Model: label, NoTags: true}
}
