package dump

import (
	"fmt"
	"io"
	"strings"
)

// rowMatch selects the rows of an extended INSERT to copy.
type rowMatch struct {
	// column is the 1-based position compared against value.
	column int
	value  string
	table  string
	// collect returns the columns following the matched one.
	collect bool
	// write copies matching rows to the output.
	write bool
}

// matchRows consumes the VALUES list of an extended INSERT, starting right
// after the opening parenthesis of the first tuple and ending at the
// terminating semicolon. Delimiters are recognised by punctuation only:
// commas and parentheses inside single-quoted strings are data, and a
// backslash inside a string escapes exactly the next byte.
//
// The compared column text excludes quotes, backslashes and punctuation;
// the copied tuple is written verbatim.
func matchRows(in io.ByteReader, out sqlWriter, m rowMatch) (captured []string, written int, err error) {
	var (
		tuple     strings.Builder
		column    strings.Builder
		counter   = 1
		inString  bool
		inRow     = true
		found     bool
		escaped   bool
		escapeRun bool
	)
	tuple.WriteByte('(')

	closeColumn := func() {
		if counter == m.column {
			if column.String() == m.value {
				found = true
			}
		} else if m.collect && found {
			captured = append(captured, column.String())
		}
		column.Reset()
	}

	for {
		c, err := in.ReadByte()
		if err == io.EOF {
			return captured, written, nil
		}
		if err != nil {
			return captured, written, fmt.Errorf("read values of %s: %w", m.table, err)
		}

		if escapeRun && escaped {
			escaped = false
			escapeRun = false
		}
		if escaped {
			escapeRun = true
		}

		switch c {
		case '(':
			if !inRow {
				inRow = true
				tuple.Reset()
			}
			tuple.WriteByte(c)
		case ')':
			if !inRow {
				continue
			}
			if !inString {
				closeColumn()
				inRow = false
				if found && m.write {
					if err := writeRow(out, m.table, tuple.String(), written == 0); err != nil {
						return captured, written, err
					}
					written++
					found = false
				}
			}
			tuple.WriteByte(c)
		case ',':
			if !inRow {
				// separator between two tuples
				counter = 1
				continue
			}
			if !inString {
				closeColumn()
				counter++
			}
			tuple.WriteByte(c)
		case '\'':
			if !inRow {
				continue
			}
			if !inString {
				inString = true
			} else if !escaped {
				inString = false
			}
			tuple.WriteByte(c)
		case '\\':
			if !inRow {
				continue
			}
			if inString && !escaped {
				escaped = true
			}
			tuple.WriteByte(c)
		case ';':
			if !inRow {
				if written > 0 && m.write {
					if _, err := io.WriteString(out, ";\n"); err != nil {
						return captured, written, fmt.Errorf("write %s: %w", m.table, err)
					}
				}
				return captured, written, nil
			}
			tuple.WriteByte(c)
		default:
			if inRow {
				column.WriteByte(c)
				tuple.WriteByte(c)
			}
		}
	}
}

// writeRow writes one tuple; the first row of a statement carries the
// INSERT prefix, later rows a separating comma.
func writeRow(out sqlWriter, table, tuple string, first bool) error {
	var prefix string
	if first {
		prefix = "INSERT INTO `" + table + "` VALUES "
	} else {
		prefix = ","
	}
	if _, err := io.WriteString(out, prefix+tuple+")"); err != nil {
		return fmt.Errorf("write %s: %w", table, err)
	}
	if err := out.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", table, err)
	}
	return nil
}
