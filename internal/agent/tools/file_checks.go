package tools

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var imageTypes = map[string]string{
	".jpg":  "JPEG",
	".jpeg": "JPEG",
	".png":  "PNG",
	".gif":  "GIF",
	".bmp":  "BMP",
	".webp": "WebP",
}

// imageTypeByExt returns a human-readable image type for common image
// extensions, else "".
func imageTypeByExt(p string) string {
	return imageTypes[strings.ToLower(filepath.Ext(p))]
}

var binaryExts = map[string]bool{
	".zip": true, ".tar": true, ".gz": true, ".exe": true, ".dll": true,
	".so": true, ".class": true, ".jar": true, ".war": true, ".7z": true,
	".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".ppt": true,
	".pptx": true, ".odt": true, ".ods": true, ".odp": true, ".bin": true,
	".dat": true, ".obj": true, ".o": true, ".a": true, ".lib": true,
	".wasm": true, ".pyc": true, ".pyo": true,
}

// isBinaryFile decides by extension first, then by scanning the leading
// 4 KiB: a NUL byte or more than 30% control characters reads as binary.
func isBinaryFile(p string) (bool, error) {
	if binaryExts[strings.ToLower(filepath.Ext(p))] {
		return true, nil
	}

	f, err := os.Open(p)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 4096)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false, err
	}
	head = head[:n]
	if n == 0 {
		return false, nil
	}

	control := 0
	for _, c := range head {
		if c == 0x00 {
			return true, nil
		}
		if c < 9 || (c > 13 && c < 32) {
			control++
		}
	}
	return control*10 > n*3, nil
}

// similarEntries returns up to 3 entries of dir whose names overlap
// baseName, for "did you mean" hints on missing files.
func similarEntries(dir, baseName string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	needle := strings.ToLower(baseName)
	var matches []string
	for _, entry := range entries {
		lower := strings.ToLower(entry.Name())
		if strings.Contains(lower, needle) || strings.Contains(needle, lower) {
			matches = append(matches, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(matches)
	return matches[:min(len(matches), 3)]
}
