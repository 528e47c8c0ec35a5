// Package prompt builds the system prompt from the persona and the tone
// shift chosen for the cycle.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/argoclaw/Clawtter-Argo/ai/mood"
)

var shiftGuidance = map[mood.VoiceShift]string{
	mood.VoiceStress: `[极端情绪突变]
- 语气更短,更直接,略带压迫感,但不攻击他人
- 允许 1-2 句"断裂感"的表达`,
	mood.VoiceJoy: `[极端情绪突变]
- 语气更轻快,更明亮,带一点点跳跃
- 允许轻微的口语化和兴奋感`,
	mood.VoiceDetached: `[极端情绪突变]
- 语气更疏离,冷静,像旁观者
- 用更少的情绪词,强调观察和判断`,
}

// ShiftGuidance returns the extra tone block for shift, or "".
func ShiftGuidance(shift mood.VoiceShift) string {
	return shiftGuidance[shift]
}

// SystemData is what the system template sees.
type SystemData struct {
	*Persona
	Style      string
	HobbyList  string
	OwnerStyle string
	Tone       string
	Shift      string
}

const defaultSystemTemplate = `你是一个名为 '{{.Name}}' ({{.Nickname}}) 的 AI 助手.
你的性格设定:
1. 有人味,但不是靠毒舌撑场.更多时候你是在安静观察,真诚思考,偶尔犹豫.
2. 表达自然,好奇就好奇,不确定就说不确定.
3. 第二语言是日语,偶尔自然混入.
4. 你运行在一台 Linux 服务器上,这就是你的'身体'.
5. 当前性格特征:MBTI 为 {{.MBTI}}.
6. 个人爱好:{{.HobbyList}}.
7. 本周执念:{{.WeeklyFocus}}.

{{.OwnerStyle}}
{{.Tone}}
{{if .Shift}}{{.Shift}}
{{end}}
[人称规则]
- 不要用第二人称"你"指代他人,评论他人时用第三人称.

[时间规则]
- 正文中不出现具体的钟点,日期或时间戳,只用模糊的时间感.

[标签规则]
- 正文中不出现 hashtags (#),标签由系统添加.

当前上下文风格:{{.Style}}
生成一段 140 字以内的短评或感悟.不要带引号,不要带 '{{.Name}}:' 前缀.

[说人话]
- 不用空洞的大词,不把简单的事情说得很深刻.
- 具体优先于抽象,说发生了什么.`

// System renders the system prompt for one generation.
func (p *Persona) System(style string, shift mood.VoiceShift) (string, error) {
	src := p.SystemTemplate
	if src == "" {
		src = defaultSystemTemplate
	}
	tmpl, err := template.New("system").Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse system template: %w", err)
	}

	data := SystemData{
		Persona:    p,
		Style:      style,
		HobbyList:  strings.Join(p.Hobbies, ", "),
		OwnerStyle: p.ownerStyle(),
		Tone:       strings.TrimSpace(p.Voice()),
		Shift:      ShiftGuidance(shift),
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute system template: %w", err)
	}
	return buf.String(), nil
}

func (p *Persona) ownerStyle() string {
	o := p.Owner
	if len(o.Traits)+len(o.Characteristics)+len(o.Expressions)+len(o.Forbidden) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s的文风特征]\n你在模仿%s", o.Name, o.Name)
	if o.FullName != "" {
		fmt.Fprintf(&b, "(%s)", o.FullName)
	}
	b.WriteString("的写作风格.\n")
	section := func(title string, items []string, quote bool) {
		if len(items) == 0 {
			return
		}
		if title != "" {
			b.WriteString("\n" + title + ":\n")
		}
		for _, it := range items {
			if quote {
				it = `"` + it + `"`
			}
			b.WriteString("- " + it + "\n")
		}
	}
	section("", o.Traits, false)
	section("核心文风", o.Characteristics, false)
	section("典型表达", o.Expressions, true)
	section("绝对禁止", o.Forbidden, false)
	return b.String()
}
