// Package validate rejects generated content that leaks system noise or
// contradicts the current time of day or season.
package validate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/argoclaw/Clawtter-Argo/ai/core/llm"
)

// CheckTimeout bounds the sanity check call.
const CheckTimeout = 30 * time.Second

// NoisePatterns mark text copied from logs or tooling output.
var NoisePatterns = []string{
	"[auto-update-checker]",
	"node_modules",
	"Package removed",
	"Dependency removed",
	"bun.lock",
	"/home/",
	"Removed from",
	".cache/opencode",
}

// Verdict is the outcome of Validate.
type Verdict struct {
	OK     bool
	Reason string
}

// Validator screens content before it is published.
type Validator struct {
	checker llm.Endpoint
	logPath string
	now     func() time.Time
}

// New creates a Validator. checker may be nil, which disables the time
// and season check.
func New(checker llm.Endpoint, logPath string, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{checker: checker, logPath: logPath, now: now}
}

// Now is the instant content is judged against.
func (v *Validator) Now() time.Time {
	return v.now()
}

// Noise returns the first noise pattern found in content.
func Noise(content string) (string, bool) {
	for _, p := range NoisePatterns {
		if strings.Contains(content, p) {
			return p, true
		}
	}
	return "", false
}

// Validate runs the noise screen and then the sanity check. An unclear
// answer or a checker failure lets the content through.
func (v *Validator) Validate(ctx context.Context, content string) Verdict {
	if utf8.RuneCountInString(strings.TrimSpace(content)) < 10 {
		return Verdict{OK: true, Reason: "content too short to validate"}
	}
	if p, found := Noise(content); found {
		return Verdict{Reason: fmt.Sprintf("contains system log noise: %q", p)}
	}

	text := ownText(content)
	if utf8.RuneCountInString(text) < 10 {
		return Verdict{OK: true, Reason: "no substantial text to validate"}
	}
	if v.checker == nil {
		return Verdict{OK: true, Reason: "no checker configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, CheckTimeout)
	defer cancel()
	reply, err := v.checker.Generate(ctx, llm.Prompt{User: v.prompt(text)})
	if err != nil {
		slog.WarnContext(ctx, "Validate: checker failed, allowing content", "checker", v.checker.Label(), "error", err)
		return Verdict{OK: true, Reason: "checker unavailable"}
	}

	upper := strings.ToUpper(strings.TrimSpace(reply))
	switch {
	case strings.HasPrefix(upper, "ERROR"):
		reason := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(reply)[len("ERROR"):], ":： "))
		if reason == "" {
			reason = "time or season mismatch"
		}
		return Verdict{Reason: reason}
	case strings.HasPrefix(upper, "OK"):
		return Verdict{OK: true, Reason: "passed"}
	default:
		slog.InfoContext(ctx, "Validate: unclear checker reply, allowing content", "reply", truncate(reply, 60))
		return Verdict{OK: true, Reason: "unclear reply"}
	}
}

// Reject appends the rejected content to the rejection log.
func (v *Validator) Reject(content, reason string) error {
	if v.logPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(v.logPath), 0o755); err != nil {
		return errors.Wrap(err, "failed to create rejection log dir")
	}
	f, err := os.OpenFile(v.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "failed to open rejection log")
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "\n%s\nTime: %s\nReason: %s\nContent:\n%s\n",
		strings.Repeat("=", 60), v.now().Format("2006-01-02 15:04:05"), reason, content)
	return errors.Wrap(err, "failed to write rejection log")
}

func (v *Validator) prompt(text string) string {
	now := v.now()
	return fmt.Sprintf(`你是一个时间常识检查器.

当前真实情况:
- 时间:%s
- 时段:%s
- 季节:%s
- 当前小时:%d时

待检查的文本:
"%s"

检查规则:
1. 文本提到天色渐亮,晨光,破晓,但当前时间是 7 点之后 -> ERROR
2. 文本提到阳光,日光,但当前时间是 19 点之后或 6 点之前 -> ERROR
3. 文本提到炎热,酷暑,但当前是冬季 -> ERROR
4. 文本提到寒冷,严冬,但当前是夏季 -> ERROR
5. 没有上述明显错误 -> OK

只回答 OK 或 ERROR: 原因.`,
		now.Format("2006年01月02日 15:04"), period(now.Hour()), season(now.Month()), now.Hour(), text)
}

// ownText drops quote blocks and comments so only the generated words are
// checked.
func ownText(content string) string {
	var keep []string
	for _, l := range strings.Split(content, "\n") {
		t := strings.TrimSpace(l)
		if strings.HasPrefix(t, ">") || strings.HasPrefix(t, "<!--") {
			continue
		}
		keep = append(keep, l)
	}
	return strings.TrimSpace(strings.Join(keep, "\n"))
}

func period(hour int) string {
	switch {
	case hour >= 5 && hour < 7:
		return "清晨(天刚亮)"
	case hour >= 7 && hour < 9:
		return "早晨(已经大亮)"
	case hour >= 9 && hour < 12:
		return "上午(阳光充足)"
	case hour >= 12 && hour < 14:
		return "中午"
	case hour >= 14 && hour < 17:
		return "下午"
	case hour >= 17 && hour < 19:
		return "傍晚(天色渐暗)"
	case hour >= 19 && hour < 22:
		return "晚上(已经天黑)"
	default:
		return "深夜"
	}
}

func season(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "冬季"
	case time.March, time.April, time.May:
		return "春季"
	case time.June, time.July, time.August:
		return "夏季"
	default:
		return "秋季"
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
