package dictionary

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// ChunkInfo contains metadata about a chunk file
type ChunkInfo struct {
	ID       int
	Filename string
}

// Load fills d from path, which is either a directory of chunk and text
// files or a single file. maxWords caps the number of words read; 0 reads
// everything. It returns the number of entries read.
func Load(d *Dictionary, path string, maxWords int) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("dictionary path: %w", err)
	}
	if !info.IsDir() {
		return loadFile(d, path, maxWords)
	}

	total := 0
	chunks, err := AvailableChunks(path)
	if err != nil {
		return 0, err
	}
	for _, chunk := range chunks {
		if maxWords > 0 && total >= maxWords {
			break
		}
		n, err := loadChunk(d, chunk.Filename, remaining(maxWords, total))
		if err != nil {
			log.Warnf("Skipping chunk %d: %v", chunk.ID, err)
			continue
		}
		total += n
	}

	texts, _ := filepath.Glob(filepath.Join(path, "*.txt"))
	sort.Strings(texts)
	for _, file := range texts {
		if maxWords > 0 && total >= maxWords {
			break
		}
		n, err := loadText(d, file, remaining(maxWords, total))
		if err != nil {
			log.Warnf("Skipping text dictionary %s: %v", file, err)
			continue
		}
		total += n
	}

	if total == 0 {
		return 0, fmt.Errorf("no dictionary files found in %s", path)
	}
	log.Debugf("Loaded %d dictionary entries from %s", total, path)
	return total, nil
}

func remaining(maxWords, loaded int) int {
	if maxWords <= 0 {
		return 0
	}
	return maxWords - loaded
}

func loadFile(d *Dictionary, filename string, maxWords int) (int, error) {
	format, err := DetectFileFormat(filename)
	if err != nil {
		return 0, err
	}
	switch format {
	case FormatChunk:
		return loadChunk(d, filename, maxWords)
	default:
		return loadText(d, filename, maxWords)
	}
}

// AvailableChunks scans dir for dict_NNNN.bin files, ordered by ID.
func AvailableChunks(dir string) ([]ChunkInfo, error) {
	files, err := filepath.Glob(filepath.Join(dir, "dict_*.bin"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan for chunk files: %w", err)
	}

	var chunks []ChunkInfo
	for _, file := range files {
		idStr := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(file), "dict_"), ".bin")
		id, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		chunks = append(chunks, ChunkInfo{ID: id, Filename: file})
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ID < chunks[j].ID
	})
	return chunks, nil
}

// loadChunk reads one binary chunk. Ranks become scores so that rank 1 is
// the best word.
func loadChunk(d *Dictionary, filename string, maxWords int) (int, error) {
	if err := validateBinaryFormat(filename); err != nil {
		return 0, err
	}
	file, err := os.Open(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to open chunk file %s: %w", filename, err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	var totalEntries int32
	if err := binary.Read(reader, binary.LittleEndian, &totalEntries); err != nil {
		return 0, fmt.Errorf("failed to read chunk header: %w", err)
	}

	count := 0
	for count < int(totalEntries) {
		if maxWords > 0 && count >= maxWords {
			break
		}
		var wordLen uint16
		if err := binary.Read(reader, binary.LittleEndian, &wordLen); err != nil {
			if err == io.EOF {
				break
			}
			return count, fmt.Errorf("failed to read word length: %w", err)
		}
		wordBytes := make([]byte, wordLen)
		if _, err := io.ReadFull(reader, wordBytes); err != nil {
			return count, fmt.Errorf("failed to read word: %w", err)
		}
		var rank uint16
		if err := binary.Read(reader, binary.LittleEndian, &rank); err != nil {
			return count, fmt.Errorf("failed to read rank: %w", err)
		}

		d.Add(string(wordBytes), 65536-int(rank))
		count++
	}
	log.Debugf("Chunk %s loaded: %d words", filepath.Base(filename), count)
	return count, nil
}

// WriteChunk encodes words, most popular first, in the chunk format.
func WriteChunk(w io.Writer, words []string) error {
	writer := bufio.NewWriter(w)
	if err := binary.Write(writer, binary.LittleEndian, int32(len(words))); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, word := range words {
		if err := binary.Write(writer, binary.LittleEndian, uint16(len(word))); err != nil {
			return fmt.Errorf("writing word length: %w", err)
		}
		if _, err := writer.WriteString(word); err != nil {
			return fmt.Errorf("writing word %s: %w", word, err)
		}
		rank := uint16(min(i+1, 65535))
		if err := binary.Write(writer, binary.LittleEndian, rank); err != nil {
			return fmt.Errorf("writing rank for word %s: %w", word, err)
		}
	}
	return writer.Flush()
}

// loadText reads "word [frequency]" lines. Without a frequency, earlier
// lines score higher. Blank lines and lines starting with # are skipped.
func loadText(d *Dictionary, filename string, maxWords int) (int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to open text dictionary %s: %w", filename, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	count := 0
	for scanner.Scan() {
		if maxWords > 0 && count >= maxWords {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		score := max(65535-count, 1)
		if len(fields) > 1 {
			if freq, err := strconv.Atoi(fields[1]); err == nil {
				score = freq
			}
		}
		d.Add(fields[0], score)
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("reading %s: %w", filename, err)
	}
	return count, nil
}
