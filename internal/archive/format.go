package archive

import (
	"path/filepath"
	"strings"
)

// Format identifies a supported container.
type Format string

const (
	FormatZip   Format = "zip"
	FormatGzip  Format = "gzip"
	FormatTar   Format = "tar"
	FormatTarGz Format = "tar.gz"
)

// suffixes is ordered longest first so ".tar.gz" wins over ".gz".
var suffixes = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGz},
	{".tgz", FormatTarGz},
	{".tar", FormatTar},
	{".zip", FormatZip},
	{".gz", FormatGzip},
}

// Detect returns the format implied by name and whether it is supported.
func Detect(name string) (Format, bool) {
	lower := strings.ToLower(filepath.Base(name))
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) && len(lower) > len(s.suffix) {
			return s.format, true
		}
	}
	return "", false
}

// BaseName strips the archive suffix from name: "photos.tar.gz" becomes
// "photos". Unknown formats lose their last extension only.
func BaseName(name string) string {
	base := filepath.Base(name)
	lower := strings.ToLower(base)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) && len(lower) > len(s.suffix) {
			return base[:len(base)-len(s.suffix)]
		}
	}
	if ext := filepath.Ext(base); ext != "" && len(ext) < len(base) {
		return base[:len(base)-len(ext)]
	}
	return base
}
