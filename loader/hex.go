// Package loader reads hex memory images for the simulator.
//
// An image is a whitespace-separated stream of hexadecimal words. The
// first two words give the text and data segment sizes in bytes; the
// remaining words are the big-endian contents of the text segment
// followed by the data segment.
package loader

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Loader errors.
var (
	// ErrFileDoesNotExist indicates the input path does not exist.
	ErrFileDoesNotExist = errors.New("file does not exist")

	// ErrGivenPathIsDirectory indicates the input path is a directory.
	ErrGivenPathIsDirectory = errors.New("given path is a directory")

	// ErrInvalidFormat indicates a token that is not a hexadecimal
	// word, or a truncated header.
	ErrInvalidFormat = errors.New("invalid file format")

	// ErrSectionSizeDoesNotMatch indicates the word count does not
	// match the declared segment sizes.
	ErrSectionSizeDoesNotMatch = errors.New("section size does not match")
)

// Program holds the segment images read from a file.
type Program struct {
	// Text contains the text segment bytes.
	Text []byte

	// Data contains the data segment bytes.
	Data []byte
}

// Load reads and parses the hex image at the given path.
func Load(path string) (*Program, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrFileDoesNotExist)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: %w", path, ErrGivenPathIsDirectory)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(string(content))
}

// Parse parses the token stream of a hex image.
func Parse(content string) (*Program, error) {
	tokens := strings.Fields(content)
	if len(tokens) < 2 {
		return nil, fmt.Errorf("missing segment sizes: %w", ErrInvalidFormat)
	}

	textSize, err := parseWord(tokens[0])
	if err != nil {
		return nil, err
	}
	dataSize, err := parseWord(tokens[1])
	if err != nil {
		return nil, err
	}

	textWords := int(textSize+3) / 4
	dataWords := int(dataSize+3) / 4
	if len(tokens) != 2+textWords+dataWords {
		return nil, fmt.Errorf("expected %d words, got %d: %w",
			textWords+dataWords, len(tokens)-2, ErrSectionSizeDoesNotMatch)
	}

	text, err := parseSegment(tokens[2:2+textWords], textSize)
	if err != nil {
		return nil, err
	}
	data, err := parseSegment(tokens[2+textWords:], dataSize)
	if err != nil {
		return nil, err
	}

	return &Program{Text: text, Data: data}, nil
}

// parseSegment decodes big-endian words into a byte image of the given
// size.
func parseSegment(tokens []string, size uint32) ([]byte, error) {
	segment := make([]byte, len(tokens)*4)
	for i, token := range tokens {
		word, err := parseWord(token)
		if err != nil {
			return nil, err
		}
		segment[i*4] = byte(word >> 24)
		segment[i*4+1] = byte(word >> 16)
		segment[i*4+2] = byte(word >> 8)
		segment[i*4+3] = byte(word)
	}
	return segment[:size], nil
}

// parseWord parses a hexadecimal word with an optional 0x prefix.
func parseWord(token string) (uint32, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(token, "0x"), "0X")
	word, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("bad word %q: %w", token, ErrInvalidFormat)
	}
	return uint32(word), nil
}
