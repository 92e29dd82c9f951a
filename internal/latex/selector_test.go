package latex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		in      string
		want    Selector
		wantErr bool
	}{
		{`\section`, Selector{SelectCommand, "section"}, false},
		{"m:chapter", Selector{SelectCommand, "chapter"}, false},
		{"{figure}", Selector{SelectEnvironment, "figure"}, false},
		{"e:table*", Selector{SelectEnvironment, "table*"}, false},
		{"%trsltx-split", Selector{SelectComment, "trsltx-split"}, false},
		{"c:chunk", Selector{SelectComment, "chunk"}, false},
		{"section", Selector{}, true},
		{"m:", Selector{}, true},
		{"{}", Selector{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSelector(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnchors(t *testing.T) {
	src := "Intro text.\n" +
		"\\section{One}\n" +
		"Body with inline \\section{Not an anchor}.\n" +
		"%chunk here\n" +
		"\\begin{figure*}\nx\n\\end{figure*}\n"
	tree, err := Parse(src)
	require.NoError(t, err)

	sels, err := ParseSelectors([]string{`\section`, "%chunk", "{figure*}"})
	require.NoError(t, err)

	anchors := Anchors(tree, sels)
	require.Len(t, anchors, 3)

	assert.Equal(t, Command, anchors[0].Kind)
	assert.Equal(t, `\section`, anchors[0].Name)
	assert.Equal(t, 2, anchors[0].Pos.Line)

	assert.Equal(t, Comment, anchors[1].Kind)
	assert.Equal(t, 4, anchors[1].Pos.Line)

	assert.Equal(t, Environment, anchors[2].Kind)
	assert.Equal(t, "figure*", anchors[2].Name)
	assert.Equal(t, 5, anchors[2].Pos.Line)
}

func TestIntervals(t *testing.T) {
	src := "a\n\\section{A}\nb\n\\section{B}\nc\n"
	tree, err := Parse(src)
	require.NoError(t, err)

	anchors := Anchors(tree, []Selector{{SelectCommand, "section"}})
	require.Len(t, anchors, 2)

	got := Intervals(tree, anchors)
	want := []Interval{
		{StartLine: 1, EndLine: 1, Offset: 0, Length: 2},
		{StartLine: 2, EndLine: 3, Offset: 2, Length: 14},
		{StartLine: 4, EndLine: 5, Offset: 16, Length: 14},
	}
	assert.Equal(t, want, got)

	total := 0
	for _, iv := range got {
		total += iv.Length
	}
	assert.Equal(t, len(src), total)
}
