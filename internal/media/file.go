// Package media describes the candidate files a user submits for analysis
// and decides whether they are admissible before any network call is made.
package media

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// Kind is the broad media category of a declared type.
type Kind string

const (
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindUnknown Kind = "unknown"
)

// KindOf returns the category of a declared media type.
func KindOf(declaredType string) Kind {
	switch {
	case strings.HasPrefix(declaredType, "image/"):
		return KindImage
	case strings.HasPrefix(declaredType, "video/"):
		return KindVideo
	default:
		return KindUnknown
	}
}

// File is a candidate file. It is read-only once built: validation and
// submission only look at it.
type File struct {
	Name string
	Type string
	Size int64

	open func() (io.ReadCloser, error)
}

// Kind returns the category of the file's declared type.
func (f File) Kind() Kind { return KindOf(f.Type) }

// Open returns a fresh reader over the file content. Each call starts from
// the first byte.
func (f File) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, fmt.Errorf("open %q: no content attached", f.Name)
	}
	return f.open()
}

// FromBytes wraps an in-memory upload. declaredType is stripped of any MIME
// parameters.
func FromBytes(name, declaredType string, data []byte) File {
	return File{
		Name: name,
		Type: baseType(declaredType),
		Size: int64(len(data)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FromPath builds a File from a file on disk. The declared type is sniffed
// from the content; when sniffing gives nothing better than a generic
// binary type the extension decides.
func FromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat %q: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%q is a directory", path)
	}

	declared, err := DetectType(path)
	if err != nil {
		return File{}, err
	}

	return File{
		Name: filepath.Base(path),
		Type: declared,
		Size: info.Size(),
		open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// DetectType returns the declared media type for the file at path.
func DetectType(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect type of %q: %w", path, err)
	}
	if detected := baseType(mt.String()); !isGeneric(detected) {
		return detected, nil
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		return baseType(byExt), nil
	}
	return baseType(mt.String()), nil
}

// DetectBytes sniffs the declared media type from leading content bytes.
func DetectBytes(data []byte) string {
	return baseType(mimetype.Detect(data).String())
}

// FormatSize renders a byte count for display, e.g. "2.0 MiB".
func FormatSize(size int64) string {
	if size <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(size))
}

func isGeneric(t string) bool {
	return t == "" || t == "application/octet-stream" || t == "text/plain"
}

func baseType(t string) string {
	mt, _, err := mime.ParseMediaType(t)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(t))
	}
	return mt
}
