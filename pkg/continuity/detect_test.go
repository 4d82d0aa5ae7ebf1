package continuity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hadv/yitam-admin-sub000/pkg/continuity"
)

func TestStartsFragmented(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"complete sentence start", "The lamp burns brightly.", false},
		{"lowercase continuation", "tinuously through the night.", true},
		{"leading comma", ", and then it stopped.", true},
		{"vietnamese continuation word", "Và sau đó mọi thứ thay đổi.", true},
		{"english continuation word", "And then everything changed.", true},
		{"vietnamese lowercase diacritic", "được ghi lại trong sách.", true},
		{"heading", "Chapter One", false},
		{"empty", "   ", false},
		{"closing bracket", ") as noted above.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, continuity.StartsFragmented(tt.text))
		})
	}
}

func TestEndsFragmented(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"terminal period", "The lamp burns brightly.", false},
		{"no terminal", "The lamp burns con", true},
		{"terminal with closing quote", `He said "enough."`, false},
		{"vietnamese terminal", "Ngọn đèn cháy sáng.", false},
		{"mid sentence", "and then the light", true},
		{"empty", "", false},
		{"colon counts as terminal", "The reasons are as follows:", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, continuity.EndsFragmented(tt.text))
		})
	}
}

func TestHasDanglingToken(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"two letter dangling", "The word is th", true},
		{"single letter", "Split at a", true},
		{"normal short word with period", "It is so.", false},
		{"three letter token", "The word is con", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, continuity.HasDanglingToken(tt.text))
		})
	}
}
