// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandLabel(t *testing.T) {
	assert.Equal(t, "בראשית א, ג", ExpandLabel("בראשית א&&&ג"))
	assert.Equal(t, "no marker", ExpandLabel("no marker"))
}

func TestProjectLabel(t *testing.T) {
	tests := []struct {
		name  string
		label string
		depth int
		want  string
	}{
		{"full depth", "בראשית א&&&ג", 2, "בראשית א, ג"},
		{"truncated to chapter", "בראשית א&&&ג", 1, "בראשית א"},
		{"depth beyond locator", "בראשית א&&&ג", 5, "בראשית א, ג"},
		{"zero depth keeps title", "בראשית א&&&ג", 0, "בראשית"},
		{"comma title segments", "משנה תורה, הלכות שבת א&&&ב&&&ג", 2, "משנה תורה, הלכות שבת א, ב"},
		{"locator only", "א&&&ב", 1, "א"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProjectLabel(tt.label, tt.depth))
		})
	}
}

func TestCommonLabel(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   string
	}{
		{"none", nil, ""},
		{"single", []string{"בראשית א, ג"}, "בראשית א, ג"},
		{"shared chapter", []string{"בראשית א, ג", "בראשית א, ד"}, "בראשית א"},
		{"nothing shared", []string{"בראשית א", "שמות ב"}, ""},
		{"prefix of other", []string{"תהלים כג", "תהלים כג, א"}, "תהלים כג"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CommonLabel(tt.labels))
		})
	}
}

func TestCommonPrefix_Ints(t *testing.T) {
	assert.Equal(t, []int{1, 2}, CommonPrefix([]int{1, 2, 3}, []int{1, 2, 4}))
	assert.Nil(t, CommonPrefix[int]())
	assert.Nil(t, CommonPrefix([]int{}, []int{1}))
}
