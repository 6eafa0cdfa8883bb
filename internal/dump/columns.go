package dump

import "bufio"

// resolveColumns reads a CREATE TABLE body starting right after its opening
// parenthesis and returns the line position of the cid column, or -1 when
// the ENGINE line comes first. The remainder of the CREATE line counts as
// line 0, so the position equals the 1-based column index used by matchRows.
// The reader is left after the ENGINE line.
func resolveColumns(in *bufio.Reader) (int, []ForeignKey, error) {
	pos := 0
	for {
		line, ok, err := readLine(in)
		if err != nil {
			return -1, nil, err
		}
		if !ok {
			return -1, nil, nil
		}
		if isCIDLine(line) {
			fks, err := scanForeignKeys(in)
			return pos, fks, err
		}
		if engineLine.MatchString(line) {
			return -1, nil, nil
		}
		pos++
	}
}

// scanForeignKeys collects foreign keys up to and including the ENGINE line.
func scanForeignKeys(in *bufio.Reader) ([]ForeignKey, error) {
	var fks []ForeignKey
	for {
		line, ok, err := readLine(in)
		if err != nil {
			return fks, err
		}
		if !ok || engineLine.MatchString(line) {
			return fks, nil
		}
		if fk, found := parseForeignKey(line); found {
			fks = append(fks, fk)
		}
	}
}
