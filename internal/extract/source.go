// Package extract reads filing files and melts their statement tables
// into tidy records.
package extract

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var filenamePattern = regexp.MustCompile(`^([A-Z]+)_(\d{8})_`)

// ReadSourceList reads the source list file: one filing path per line,
// blank lines and # comments ignored, duplicates removed keeping first
// occurrence.
func ReadSourceList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source list %q: %w", path, err)
	}
	defer f.Close()

	seen := make(map[string]bool)
	var links []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		link := strings.TrimSpace(scanner.Text())
		if link == "" || strings.HasPrefix(link, "#") {
			continue
		}
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read source list %q: %w", path, err)
	}
	return links, nil
}

// DetectFileType reports "html", "pdf" or "unknown", checking the
// extension first and falling back to a signature sniff.
func DetectFileType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "pdf"
	case ".html", ".htm":
		return "html"
	}

	f, err := os.Open(path)
	if err != nil {
		return "unknown"
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := f.Read(head)
	start := strings.ToLower(string(head[:n]))
	if strings.HasPrefix(start, "%pdf") {
		return "pdf"
	}
	if strings.Contains(start, "<html") || strings.Contains(start, "<!doctype") {
		return "html"
	}
	return "unknown"
}

// ParseFilename extracts the ticker and filing date from names shaped like
// CATX_20250813_PR.html. The date comes back as YYYY-MM-DD.
func ParseFilename(path string) (ticker, filingDate string, err error) {
	name := filepath.Base(path)
	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return "", "", fmt.Errorf("filename does not match TICKER_YYYYMMDD_ pattern: %s", name)
	}
	d := m[2]
	return m[1], fmt.Sprintf("%s-%s-%s", d[:4], d[4:6], d[6:]), nil
}
