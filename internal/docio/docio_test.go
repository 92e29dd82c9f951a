package docio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"ltxtrans/internal/types"
)

const sampleText = "\\section{Résumé}\n这是中文。\n"

func TestDetectAndDecode(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte("这是中文的测试内容。"))
	require.NoError(t, err)

	tests := []struct {
		name string
		enc  Encoding
		text string
	}{
		{"utf8", UTF8, sampleText},
		{"utf8 bom", UTF8BOM, sampleText},
		{"utf16le", UTF16LE, sampleText},
		{"utf16be", UTF16BE, sampleText},
		{"gbk", GBK, "这是中文的测试内容。"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var data []byte
			if tt.enc == GBK {
				data = gbk
			} else {
				data, err = Encode(tt.text, tt.enc)
				require.NoError(t, err)
			}
			assert.Equal(t, tt.enc, DetectEncoding(data))

			text, enc, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.enc, enc)
			assert.Equal(t, tt.text, text)
		})
	}
}

func TestEncodeUnsupported(t *testing.T) {
	_, err := Encode("x", "EBCDIC")
	assert.Error(t, err)
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadDocument(filepath.Join(dir, "missing.tex"))
	assert.Equal(t, types.ErrFileNotFound, types.CodeOf(err))

	path := filepath.Join(dir, "paper_fr.tex")
	data, err := Encode(sampleText, UTF8BOM)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	doc, err := ReadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, sampleText, doc.Text)
	assert.Equal(t, UTF8BOM, doc.Encoding)
	assert.Equal(t, int64(len(data)), doc.Size)
}

func TestWriteDocumentBacksUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "paper_en.tex")
	backups := NewBackups(filepath.Join(dir, "backups"), 2)
	tick := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	backups.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	require.NoError(t, WriteDocument(path, "first\n", UTF8, backups))
	list, err := backups.List(path)
	require.NoError(t, err)
	assert.Empty(t, list)

	for _, text := range []string{"second\n", "third\n", "fourth\n"} {
		require.NoError(t, WriteDocument(path, text, UTF8, backups))
	}

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fourth\n", string(got))

	// Three copies were made and the oldest was pruned.
	list, err = backups.List(path)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, strings.HasSuffix(list[0], "paper_en.tex.20240102_030408.000000.bak"), list[0])

	latest, err := backups.Latest(path)
	require.NoError(t, err)
	content, err := os.ReadFile(latest)
	require.NoError(t, err)
	assert.Equal(t, "third\n", string(content))

	require.NoError(t, backups.Restore(latest, path))
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "third\n", string(got))
}

func TestBackupsNextToDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a[1].tex")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	backups := NewBackups("", 0)
	saved, err := backups.Save(path)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(saved))

	list, err := backups.List(path)
	require.NoError(t, err)
	assert.Equal(t, []string{saved}, list)

	_, err = NewBackups("", 0).Latest(filepath.Join(dir, "other.tex"))
	assert.Error(t, err)
}

func TestWriteDocumentWithoutBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.tex")
	require.NoError(t, WriteDocument(path, "a", UTF8, nil))
	require.NoError(t, WriteDocument(path, "b", UTF16LE, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text, enc, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, UTF16LE, enc)
	assert.Equal(t, "b", text)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
