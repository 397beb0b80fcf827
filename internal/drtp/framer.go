package drtp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// nameFieldSize is how many of ChunkSize's bytes the first data payload
// reserves for the embedded file name.
const nameFieldSize = MaxFilenameLength

// contentPerFirstChunk is how much file content the first data payload
// can carry alongside the name field.
const contentPerFirstChunk = ChunkSize - nameFieldSize

// FrameFile reads path in full and splits it into payload-sized chunks
// ready to be wrapped in data packets. The first chunk carries the file
// name, right-padded with NUL to MaxFilenameLength bytes, followed by
// the leading slice of file content. A trailing empty chunk is appended
// as a sentinel so the sender's window-empty-and-all-sent termination
// check needs no special case for a zero-length tail.
func FrameFile(path string) ([][]byte, error) {
	name := filepath.Base(path)
	if len(name) > MaxFilenameLength {
		return nil, fmt.Errorf("drtp: file name %q exceeds %d bytes", name, MaxFilenameLength)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("drtp: reading %s: %w", path, err)
	}

	nameField := make([]byte, nameFieldSize)
	copy(nameField, name)

	var chunks [][]byte

	firstLen := contentPerFirstChunk
	if firstLen > len(content) {
		firstLen = len(content)
	}
	first := make([]byte, 0, nameFieldSize+firstLen)
	first = append(first, nameField...)
	first = append(first, content[:firstLen]...)
	chunks = append(chunks, first)

	for rest := content[firstLen:]; len(rest) > 0; {
		n := ChunkSize
		if n > len(rest) {
			n = len(rest)
		}
		chunks = append(chunks, rest[:n])
		rest = rest[n:]
	}

	chunks = append(chunks, []byte{})

	return chunks, nil
}

// Reassemble concatenates every accepted payload into one buffer, then
// splits off the leading MaxFilenameLength bytes as the file name. It
// must not strip those bytes per-chunk: when the file is small enough
// that the first chunk is the only one, the name field still occupies
// exactly the first MaxFilenameLength bytes of the combined buffer.
func Reassemble(accepted [][]byte) (name string, content []byte, err error) {
	var buf []byte
	for _, chunk := range accepted {
		buf = append(buf, chunk...)
	}

	if len(buf) < MaxFilenameLength {
		return "", nil, fmt.Errorf("drtp: reassembled data shorter than the name field: %d bytes", len(buf))
	}

	name = strings.TrimRight(string(buf[:MaxFilenameLength]), "\x00")
	content = buf[MaxFilenameLength:]
	return name, content, nil
}

// WriteOutput writes content to outputDir/name, creating outputDir if it
// does not already exist. Overwriting an existing file is permitted.
func WriteOutput(outputDir, name string, content []byte) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("drtp: creating output dir %s: %w", outputDir, err)
	}

	path := filepath.Join(outputDir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("drtp: writing %s: %w", path, err)
	}

	return nil
}
