package tle

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ScanFunc получает каждую запись пакета: разобранные элементы либо ошибку.
// Возврат ненулевой ошибки прекращает чтение.
type ScanFunc func(el *Elements, err error) error

// Scan читает поток TLE (2-line и 3-line записи вперемешку, пустые строки
// игнорируются) и вызывает fn для каждой найденной записи.
func Scan(r io.Reader, fn ScanFunc, opts ...ParseOption) error {
	sc := bufio.NewScanner(r)

	var (
		name, line1 string
		lineNo      int
		startLine   int
	)

	emit := func(lines []string) error {
		el, err := Parse(lines, opts...)
		if err != nil {
			err = fmt.Errorf("record at line %d: %w", startLine, err)
		}

		return fn(el, err)
	}

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "1 "):
			if line1 != "" {
				if err := fn(nil, fmt.Errorf("%w: line %d: Line1 without Line2", ErrMalformedElements, startLine)); err != nil {
					return err
				}
			}
			if name == "" {
				startLine = lineNo
			}
			line1 = line

		case strings.HasPrefix(line, "2 ") && line1 != "":
			lines := []string{line1, line}
			if name != "" {
				lines = []string{name, line1, line}
			}
			if err := emit(lines); err != nil {
				return err
			}
			name, line1 = "", ""

		case strings.HasPrefix(line, "2 "):
			if err := fn(nil, fmt.Errorf("%w: line %d: Line2 without Line1", ErrMalformedElements, lineNo)); err != nil {
				return err
			}
			name = ""

		default:
			if line1 != "" {
				if err := fn(nil, fmt.Errorf("%w: line %d: Line1 without Line2", ErrMalformedElements, startLine)); err != nil {
					return err
				}
				line1 = ""
			}
			name = line
			startLine = lineNo
		}
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading element sets: %w", err)
	}

	if line1 != "" {
		return fn(nil, fmt.Errorf("%w: line %d: Line1 without Line2", ErrMalformedElements, startLine))
	}

	return nil
}

// ParseBatch разбирает все записи потока и останавливается на первой ошибке.
func ParseBatch(r io.Reader, opts ...ParseOption) ([]*Elements, error) {
	var out []*Elements

	err := Scan(r, func(el *Elements, err error) error {
		if err != nil {
			return err
		}
		out = append(out, el)

		return nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	return out, nil
}
