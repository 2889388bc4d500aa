// Package dataset loads the track table, coerces and filters its feature
// columns, and writes the augmented table back to disk.
//
// A Table keeps every cell as text, so columns that are not touched by the
// pipeline are written back exactly as they were read. Header names must be
// non-empty and unique.
package dataset

import (
	"bytes"
	"encoding/csv"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/YuminosukeSato/musicmap/pkg/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is an in-memory text table with a header row.
type Table struct {
	df dataframe.DataFrame
}

// Load reads a comma-delimited file with a header row, decoding its bytes
// with the IANA-named encoding (for example "ISO-8859-1" or "UTF-8").
//
// An unknown encoding name or undecodable bytes yield an *errors.EncodingError;
// a missing, unreadable or malformed file yields an *errors.IOError.
func Load(path, encodingName string) (*Table, error) {
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError("read", path, err)
	}

	text, err := decode(raw, enc, encodingName, path)
	if err != nil {
		return nil, err
	}

	t, err := parse(text)
	if err != nil {
		return nil, errors.NewIOError("parse", path, err)
	}
	return t, nil
}

// FromRecords builds a table from a header row followed by data rows.
func FromRecords(records [][]string) (*Table, error) {
	if len(records) > 0 {
		if err := checkHeader(records[0]); err != nil {
			return nil, err
		}
	}
	df := dataframe.LoadRecords(records, loadOptions()...)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "load records")
	}
	return &Table{df: df}, nil
}

// loadOptions keeps every cell as read. gota would otherwise turn "NA" and
// "<nil>" cells into "NaN".
func loadOptions() []dataframe.LoadOption {
	return []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{}),
	}
}

// checkHeader rejects the names gota would silently rename: empty names
// become "X0", "X1"... and duplicates get a suffix.
func checkHeader(names []string) error {
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		if name == "" {
			return errors.Newf("header column %d has an empty name", i+1)
		}
		if seen[name] {
			return errors.Newf("duplicate header column %q", name)
		}
		seen[name] = true
	}
	return nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, errors.NewEncodingError(name, "", err)
	}
	if enc == nil {
		return nil, errors.NewEncodingError(name, "", errors.New("encoding is not supported"))
	}
	return enc, nil
}

func decode(raw []byte, enc encoding.Encoding, name, path string) (string, error) {
	if enc == unicode.UTF8 {
		if !utf8.Valid(raw) {
			return "", errors.NewEncodingError(name, path, errors.New("invalid UTF-8 byte sequence"))
		}
		return string(bytes.TrimPrefix(raw, utf8BOM)), nil
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", errors.NewEncodingError(name, path, err)
	}
	return string(decoded), nil
}

func parse(text string) (*Table, error) {
	records, err := csv.NewReader(strings.NewReader(text)).ReadAll()
	if err != nil {
		return nil, err
	}
	return FromRecords(records)
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	return &Table{df: t.df.Copy()}
}

// Nrow returns the number of data rows.
func (t *Table) Nrow() int {
	return t.df.Nrow()
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	return t.df.Names()
}

// HasColumn reports whether the table has a column called name.
func (t *Table) HasColumn(name string) bool {
	for _, n := range t.df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Column returns the cells of the named column.
func (t *Table) Column(name string) ([]string, error) {
	if !t.HasColumn(name) {
		return nil, errors.NewMissingColumnError(name)
	}
	s := t.df.Col(name)
	if s.Err != nil {
		return nil, errors.Wrapf(s.Err, "column %q", name)
	}
	return s.Records(), nil
}

// Records returns the header row followed by every data row.
func (t *Table) Records() [][]string {
	return t.df.Records()
}

// subset returns a new table with the given rows, in the given order.
func (t *Table) subset(rows []int) (*Table, error) {
	df := t.df.Subset(rows)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "subset rows")
	}
	return &Table{df: df}, nil
}

// withColumn returns a new table with the text column set, replacing an
// existing column of the same name.
func (t *Table) withColumn(name string, values []string) (*Table, error) {
	df := t.df.Mutate(series.New(values, series.String, name))
	if df.Err != nil {
		return nil, errors.Wrapf(df.Err, "set column %q", name)
	}
	return &Table{df: df}, nil
}
