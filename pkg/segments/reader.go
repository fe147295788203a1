package segments

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrMalformedLine = errors.New("malformed segment line")

// Read parses a segment list. Blank lines and lines starting with '#' are
// skipped. Each remaining line is either "start end" or the four column
// segwizard form "index start end duration".
func Read(r io.Reader) (List, error) {
	var res List

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		var startField, endField string
		switch len(fields) {
		case 2:
			startField, endField = fields[0], fields[1]
		case 4:
			startField, endField = fields[1], fields[2]
		default:
			return nil, errors.Wrapf(ErrMalformedLine, "line %d: expected 2 or 4 columns, got %d", lineNo, len(fields))
		}

		start, err := strconv.ParseFloat(startField, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedLine, "line %d: start %q", lineNo, startField)
		}
		end, err := strconv.ParseFloat(endField, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedLine, "line %d: end %q", lineNo, endField)
		}
		res = append(res, New(start, end))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to read segments")
	}

	return res, nil
}

// ReadFile reads a segment list from path.
func ReadFile(path string) (List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open segment file %s", path)
	}
	defer f.Close()

	return Read(f)
}
