package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSourceList(t *testing.T) {
	list := filepath.Join(t.TempDir(), "input_file.txt")
	content := `# filings to process
/data/CATX_20250813_PR.html

/data/ACME_20240101_QR.html
/data/CATX_20250813_PR.html
`
	require.NoError(t, os.WriteFile(list, []byte(content), 0644))

	links, err := ReadSourceList(list)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/data/CATX_20250813_PR.html",
		"/data/ACME_20240101_QR.html",
	}, links)
}

func TestReadSourceListMissingFile(t *testing.T) {
	_, err := ReadSourceList(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestDetectFileTypeByExtension(t *testing.T) {
	assert.Equal(t, "html", DetectFileType("report.html"))
	assert.Equal(t, "html", DetectFileType("REPORT.HTM"))
	assert.Equal(t, "pdf", DetectFileType("report.pdf"))
}

func TestDetectFileTypeBySignature(t *testing.T) {
	dir := t.TempDir()

	htmlFile := filepath.Join(dir, "noext")
	require.NoError(t, os.WriteFile(htmlFile, []byte("<!DOCTYPE html><html></html>"), 0644))
	assert.Equal(t, "html", DetectFileType(htmlFile))

	pdfFile := filepath.Join(dir, "alsonoext")
	require.NoError(t, os.WriteFile(pdfFile, []byte("%PDF-1.7 blah"), 0644))
	assert.Equal(t, "pdf", DetectFileType(pdfFile))

	junk := filepath.Join(dir, "junk")
	require.NoError(t, os.WriteFile(junk, []byte("hello"), 0644))
	assert.Equal(t, "unknown", DetectFileType(junk))

	assert.Equal(t, "unknown", DetectFileType(filepath.Join(dir, "absent")))
}

func TestParseFilename(t *testing.T) {
	ticker, date, err := ParseFilename("/some/dir/CATX_20250813_PR.html")
	require.NoError(t, err)
	assert.Equal(t, "CATX", ticker)
	assert.Equal(t, "2025-08-13", date)

	_, _, err = ParseFilename("report.html")
	assert.Error(t, err)

	_, _, err = ParseFilename("catx_20250813_PR.html")
	assert.Error(t, err, "lowercase ticker should not match")
}
