package latex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerbatimSpans(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"none", `plain \emph{text}`, nil},
		{"one", "a\n\\begin{verbatim}\n$x{\n\\end{verbatim}\nb", []string{"\\begin{verbatim}\n$x{\n\\end{verbatim}"}},
		{"starred", `\begin{Verbatim*}%}\end{Verbatim}\end{Verbatim*}`, []string{`\begin{Verbatim*}%}\end{Verbatim}\end{Verbatim*}`}},
		{"unterminated", "x \\begin{minted}{go}\nfunc(", []string{"\\begin{minted}{go}\nfunc("}},
		{"commented", "% \\begin{verbatim}\ntext", nil},
		{"escaped", `\\begin{verbatim} text`, nil},
		{"ordinary", `\begin{itemize}\item a\end{itemize}`, nil},
		{"two", `\begin{comment}a\end{comment} and \begin{verbatim}b\end{verbatim}`,
			[]string{`\begin{comment}a\end{comment}`, `\begin{verbatim}b\end{verbatim}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, sp := range VerbatimSpans(tt.src) {
				got = append(got, tt.src[sp.Start:sp.End])
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaskVerbatimParses(t *testing.T) {
	src := "Before $a$.\n\\begin{verbatim}\n}{ $ \\end{itemize}\n\\end{verbatim}\nAfter \\emph{é}."
	_, err := Parse(src)
	require.Error(t, err)

	masked, spans := MaskVerbatim(src)
	require.Len(t, spans, 1)
	assert.Equal(t, len(src), len(masked))
	assert.Equal(t, src[:spans[0].Start], masked[:spans[0].Start])
	assert.Equal(t, src[spans[0].End:], masked[spans[0].End:])
	assert.Equal(t, strings.Repeat("x", spans[0].End-spans[0].Start), masked[spans[0].Start:spans[0].End])

	tree, err := Parse(masked)
	require.NoError(t, err)
	assert.Equal(t, masked, tree.Source)
}

func TestMaskVerbatimWithoutVerbatim(t *testing.T) {
	masked, spans := MaskVerbatim(`\section{A}`)
	assert.Equal(t, `\section{A}`, masked)
	assert.Empty(t, spans)
}
