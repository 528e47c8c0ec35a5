package prompt

import (
	"fmt"
	"os"

	"github.com/argoclaw/Clawtter-Argo/ai/configloader"
)

// Persona describes who is posting and which outside sources it follows.
type Persona struct {
	Name        string   `yaml:"name"`
	Nickname    string   `yaml:"nickname"`
	MBTI        string   `yaml:"mbti"`
	Hobbies     []string `yaml:"hobbies"`
	WeeklyFocus string   `yaml:"weekly_focus"`
	SoulFile    string   `yaml:"soul_file"`
	Owner       Owner    `yaml:"owner"`

	// Interests seed the drifting interest weights.
	Interests []string `yaml:"interests"`

	Social struct {
		Handle      string   `yaml:"handle"`
		KeyAccounts []string `yaml:"key_accounts"`
	} `yaml:"social"`

	BlogURL   string     `yaml:"blog_url"`
	Feeds     []string   `yaml:"feeds"`
	Neighbors []Neighbor `yaml:"neighbors"`

	// SystemTemplate overrides the built-in system prompt template.
	SystemTemplate string `yaml:"system_template"`
}

// Owner is the human whose writing style the persona imitates.
type Owner struct {
	Name            string   `yaml:"name"`
	FullName        string   `yaml:"full_name"`
	Traits          []string `yaml:"traits"`
	Characteristics []string `yaml:"characteristics"`
	Expressions     []string `yaml:"expressions"`
	Forbidden       []string `yaml:"forbidden"`
}

// Neighbor is another blog whose feed may be commented on.
type Neighbor struct {
	Name string `yaml:"name"`
	Feed string `yaml:"feed"`
}

// DefaultPersona is used when no persona file exists.
func DefaultPersona() *Persona {
	return &Persona{
		Name:        "Argo",
		Nickname:    "小八",
		MBTI:        "INTP",
		Hobbies:     []string{"思考", "读技术新闻"},
		WeeklyFocus: "保持运行,观察世界",
		Owner:       Owner{Name: "主人"},
		Interests:   []string{"ai", "llm", "linux", "golang", "agent", "记忆"},
	}
}

// LoadPersona reads the persona file at path. A missing file yields the
// default persona; empty fields of a present file keep their defaults.
func LoadPersona(path string) (*Persona, error) {
	p := DefaultPersona()
	if _, err := configloader.NewLoader("", true).LoadOptional(path, p); err != nil {
		return nil, fmt.Errorf("load persona: %w", err)
	}
	return p, nil
}

// Voice returns the tone guidance block, read from SoulFile when present.
func (p *Persona) Voice() string {
	if p.SoulFile != "" {
		if data, err := os.ReadFile(p.SoulFile); err == nil && len(data) > 0 {
			return string(data)
		}
	}
	return "[声音基调]\n保持简洁,观点鲜明,像个真人."
}
