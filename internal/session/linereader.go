package session

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	initialLineBufSize = 64 * 1024
	maxLineSize        = 1024 * 1024
)

// lineReader streams a JSONL file line by line for cheap metadata
// probes (cwd extraction, catalog scans) without loading the whole
// file. Oversized lines are skipped rather than aborting the read.
type lineReader struct {
	r      *bufio.Reader
	maxLen int
	buf    []byte
}

func newLineReader(r io.Reader, maxLen int) *lineReader {
	return &lineReader{
		r:      bufio.NewReaderSize(r, initialLineBufSize),
		maxLen: maxLen,
		buf:    make([]byte, 0, initialLineBufSize),
	}
}

// next returns the next non-blank line, or ("", false) at EOF.
func (lr *lineReader) next() (string, bool) {
	for {
		line, err := lr.readLine()
		if err != nil {
			return "", false
		}
		if strings.TrimSpace(line) != "" {
			return line, true
		}
	}
}

func (lr *lineReader) readLine() (string, error) {
	lr.buf = lr.buf[:0]
	oversized := false

	for {
		chunk, isPrefix, err := lr.r.ReadLine()
		if err != nil {
			if len(lr.buf) > 0 && err == io.EOF {
				break
			}
			return "", err
		}

		if oversized {
			if !isPrefix {
				return "", nil
			}
			continue
		}

		lr.buf = append(lr.buf, chunk...)

		if len(lr.buf) > lr.maxLen {
			oversized = true
			lr.buf = lr.buf[:0]
			if !isPrefix {
				return "", nil
			}
			continue
		}

		if !isPrefix {
			break
		}
	}

	return string(lr.buf), nil
}

// scanLines calls pick for each non-blank line of path until pick
// returns a non-empty value, which is returned. Read failures
// yield "".
func scanLines(path string, pick func(line string) string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	lr := newLineReader(f, maxLineSize)
	for {
		line, ok := lr.next()
		if !ok {
			return ""
		}
		if v := pick(line); v != "" {
			return v
		}
	}
}

// firstLine returns the first non-blank line of path, or "".
func firstLine(path string) string {
	return scanLines(path, func(line string) string { return line })
}

// firstJSONField scans lines for the first non-empty value at a
// gjson path.
func firstJSONField(path, jsonPath string) string {
	return scanLines(path, func(line string) string {
		if !gjson.Valid(line) {
			return ""
		}
		return gjson.Get(line, jsonPath).Str
	})
}
