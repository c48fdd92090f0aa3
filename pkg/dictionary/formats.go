package dictionary

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// FileFormat represents different dictionary file formats
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatChunk              // dict_NNNN.bin: int32 count, then (uint16 len, word, uint16 rank)*
	FormatText               // one "word [frequency]" per line
)

// maxChunkWords is a sanity bound on chunk headers.
const maxChunkWords = 1000000

func (f FileFormat) String() string {
	switch f {
	case FormatChunk:
		return "Chunked Binary Dictionary"
	case FormatText:
		return "Plain Text Dictionary"
	default:
		return "Unknown"
	}
}

// DetectFileFormat attempts to detect the format of a file
func DetectFileFormat(filename string) (FileFormat, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".bin":
		if err := validateBinaryFormat(filename); err != nil {
			return FormatUnknown, err
		}
		return FormatChunk, nil
	case ".txt":
		if err := validateTextFormat(filename); err != nil {
			return FormatUnknown, err
		}
		return FormatText, nil
	}
	return FormatUnknown, fmt.Errorf("unable to detect format for file %s", filename)
}

// validateBinaryFormat validates binary dictionary files
func validateBinaryFormat(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	var wordCount int32
	if err := binary.Read(file, binary.LittleEndian, &wordCount); err != nil {
		return fmt.Errorf("failed to read header from %s: %w", filename, err)
	}
	if wordCount < 0 {
		return fmt.Errorf("invalid word count in %s: %d (negative)", filename, wordCount)
	}
	if wordCount > maxChunkWords {
		return fmt.Errorf("suspicious word count in %s: %d (too large)", filename, wordCount)
	}

	log.Debugf("Binary file %s validated: %d words", filename, wordCount)
	return nil
}

// validateTextFormat validates text dictionary files
func validateTextFormat(filename string) error {
	info, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", filename, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("text dictionary %s is empty", filename)
	}
	return nil
}
