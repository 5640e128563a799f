package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// FileFormat represents the supported catalog table layouts
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatCSV                // comma separated
	FormatTSV                // tab separated
	FormatXLSX               // Excel workbook, first sheet
)

// zipMagic opens every xlsx file, which is a zip container.
var zipMagic = []byte("PK\x03\x04")

// FormatInfo contains metadata about a catalog file format
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
	Delimiter   rune
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatCSV: {
		Format:      FormatCSV,
		Description: "Comma Separated Values",
		Extensions:  []string{".csv"},
		Delimiter:   ',',
	},
	FormatTSV: {
		Format:      FormatTSV,
		Description: "Tab Separated Values",
		Extensions:  []string{".tsv"},
		Delimiter:   '\t',
	},
	FormatXLSX: {
		Format:      FormatXLSX,
		Description: "Excel Workbook",
		Extensions:  []string{".xlsx", ".xlsm"},
	},
}

// DetectFormat picks the format from the file extension.
func DetectFormat(filename string) FileFormat {
	ext := strings.ToLower(filepath.Ext(filename))
	for format, info := range supportedFormats {
		for _, candidate := range info.Extensions {
			if ext == candidate {
				return format
			}
		}
	}
	return FormatUnknown
}

// GetFormatInfo returns information about a file format
func GetFormatInfo(format FileFormat) (FormatInfo, bool) {
	info, exists := supportedFormats[format]
	return info, exists
}

// ValidateFile checks that filename exists, is a regular non-empty file and
// picks its format. Files without a known extension, such as data.dat, are
// sniffed: a zip container is a workbook, anything else is read as CSV.
func ValidateFile(filename string) (FormatInfo, error) {
	stat, err := os.Stat(filename)
	if err != nil {
		return FormatInfo{}, fmt.Errorf("failed to stat file %s: %w", filename, err)
	}
	if stat.IsDir() {
		return FormatInfo{}, fmt.Errorf("%s is a directory", filename)
	}
	if stat.Size() == 0 {
		return FormatInfo{}, fmt.Errorf("file %s is empty", filename)
	}

	format := DetectFormat(filename)
	if format == FormatUnknown {
		format, err = sniffFormat(filename)
		if err != nil {
			return FormatInfo{}, err
		}
		log.Debugf("Detected %s catalog format from contents", supportedFormats[format].Description)
	}
	info, _ := GetFormatInfo(format)
	return info, nil
}

func sniffFormat(filename string) (FileFormat, error) {
	file, err := os.Open(filename)
	if err != nil {
		return FormatUnknown, fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	head := make([]byte, len(zipMagic))
	if _, err := io.ReadFull(file, head); err != nil && err != io.ErrUnexpectedEOF {
		return FormatUnknown, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	if bytes.Equal(head, zipMagic) {
		return FormatXLSX, nil
	}
	return FormatCSV, nil
}
