package masking

import (
	"errors"
	"strings"
)

// MaskToken replaces the value of every sensitive cell in a sample row.
const MaskToken = "*****"

// DefaultDelimiter separates columns in uploaded files.
const DefaultDelimiter = ';'

// DefaultSampleLimit bounds how many masked rows a result carries.
const DefaultSampleLimit = 2

var ErrInvalidDelimiter = errors.New("masking: delimiter must be a single printable character")

// Engine scans delimited text for sensitive cells.
//
// Determinism: Analyze is a pure function of its inputs. It never mutates
// the catalog or the input text and produces identical output on every call.
type Engine struct {
	delimiter   string
	sampleLimit int
}

// Result is the outcome of one analysis pass.
//
// ExposedCount covers every row of the input; Sample covers only the first
// sampleLimit rows, with sensitive cells replaced by MaskToken.
type Result struct {
	ExposedCount int                 `json:"exposed_count"`
	Sample       []map[string]string `json:"sample"`
}

func NewEngine(delimiter rune, sampleLimit int) (*Engine, error) {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}
	if delimiter == '\n' || delimiter == '\r' {
		return nil, ErrInvalidDelimiter
	}
	if sampleLimit <= 0 {
		sampleLimit = DefaultSampleLimit
	}
	return &Engine{delimiter: string(delimiter), sampleLimit: sampleLimit}, nil
}

// Analyze parses text as a delimited table with a header row, counts exposed
// sensitive cells across all rows, and returns a masked sample of at most
// sampleLimit rows.
//
// A cell is exposed when its column is in the catalog, it is non-empty, and
// it does not already begin with MaskToken. Rows whose column count does not
// match the header are skipped. Empty input and header-only input yield a
// zero count and an empty sample.
func (e *Engine) Analyze(text string, catalog Catalog) Result {
	out := Result{Sample: []map[string]string{}}

	lines := splitLines(text)
	if len(lines) < 2 {
		return out
	}

	header := strings.Split(lines[0], e.delimiter)
	sensitive := make([]bool, len(header))
	for i, col := range header {
		sensitive[i] = catalog.Contains(col)
	}

	for _, line := range lines[1:] {
		cells := strings.Split(line, e.delimiter)
		if len(cells) != len(header) {
			continue
		}

		inSample := len(out.Sample) < e.sampleLimit
		var row map[string]string
		if inSample {
			row = make(map[string]string, len(header))
		}

		for i, cell := range cells {
			if sensitive[i] {
				if cell != "" && !strings.HasPrefix(cell, MaskToken) {
					out.ExposedCount++
				}
				if inSample {
					row[strings.TrimSpace(header[i])] = MaskToken
				}
				continue
			}
			if inSample {
				row[strings.TrimSpace(header[i])] = cell
			}
		}
		if inSample {
			out.Sample = append(out.Sample, row)
		}
	}
	return out
}

// splitLines splits on newlines, tolerating CRLF and a trailing newline.
// Blank lines are dropped so trailing whitespace never produces a
// phantom malformed row.
func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}
