package segmenter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hadv/yitam-admin-sub000/pkg/segmenter"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want segmenter.ItemKind
	}{
		{"markdown heading", "## Installation", segmenter.KindHeading},
		{"deep markdown heading", "###### Notes", segmenter.KindHeading},
		{"numbered section", "2.1 Cách dùng thuốc", segmenter.KindHeading},
		{"numbered section trailing dot", "3.2.1. Overview", segmenter.KindHeading},
		{"all caps heading", "CHƯƠNG MỘT", segmenter.KindHeading},
		{"numbered list item", "1. First do this", segmenter.KindListItem},
		{"paren list item", "2) Then do that", segmenter.KindListItem},
		{"bullet item", "- a bullet point", segmenter.KindListItem},
		{"star bullet", "* another bullet", segmenter.KindListItem},
		{"roman item", "iv) the fourth point", segmenter.KindListItem},
		{"plain paragraph", "This is ordinary prose that ends with a period.", segmenter.KindParagraph},
		{"caps sentence with period", "THIS ENDS WITH PUNCTUATION.", segmenter.KindParagraph},
		{"hash without space", "#hashtag is not a heading", segmenter.KindParagraph},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, segmenter.Classify(tt.text))
		})
	}
}
