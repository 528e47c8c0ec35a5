package filter

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestGuard_Screen(t *testing.T) {
	g := NewGuard(nil)

	tests := []struct {
		name    string
		text    string
		blocked bool
	}{
		{"plain prose", "今天的风很温柔。", false},
		{"claim link", "go to https://www.moltbook.com/claim/abc now", true},
		{"mixed case api key", "my API Key is safe", true},
		{"chinese verification code", "验证码是 123456", true},
		{"password", "Password reset", true},
		{"tokenizer is still a token", "the tokenizer changed", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Screen(tt.text)
			if tt.blocked {
				assert.True(t, errors.Is(err, ErrSensitiveContent), "expected block, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGuard_CustomList(t *testing.T) {
	g := NewGuard([]string{"  Launch Code "})
	_, ok := g.Match("the launch code is 0000")
	assert.True(t, ok)
	_, ok = g.Match("password")
	assert.False(t, ok)
}

func TestMasker(t *testing.T) {
	m := NewMasker()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"phone", "call 13812345678 later", "call [phone] later"},
		{"email", "mail me at a.b@example.com", "mail me at [email]"},
		{"ip", "host 10.0.0.12 is up", "host [ip] is up"},
		{"home path", "edited /home/opc/notes.md", "edited ~/notes.md"},
		{"openai style key", "key sk-abcdefghijklmnopqrstuv", "key [redacted]"},
		{"nothing to mask", "just words", "just words"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Mask(tt.in))
		})
	}
}

func TestDesensitize(t *testing.T) {
	in := "- fixed the parser\n- rotated the secret for prod\n- pinged 13812345678"
	got := Desensitize(in, NewGuard(nil), NewMasker())
	assert.Equal(t, "- fixed the parser\n- pinged [phone]", got)
}
