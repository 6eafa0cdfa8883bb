package dump

import (
	"regexp"
	"strings"
)

// Comment announcements, matched against the text following "-- ".
var (
	databaseComment = regexp.MustCompile("^.*?(?:Current )?Database:\\s+`?([^` ]*)`?.*$")
	tableComment    = regexp.MustCompile("^Table\\s+structure\\s+for\\s+table\\s+`([^`]*)`.*$")
	dataDumpComment = regexp.MustCompile("^Dumping\\s+data\\s+for\\s+table\\s+`([^`]*)`.*$")
)

// CREATE TABLE body lines.
var (
	engineLine = regexp.MustCompile(`^\).*ENGINE=.*$`)
	foreignKey = regexp.MustCompile(
		"^\\s+CONSTRAINT.*FOREIGN KEY\\s+\\((`[^`]*`(?:,\\s*`[^`]*`)*)\\)\\s+REFERENCES\\s+`([^`]*)`(?:\\s*\\(([^)]*)\\))?.*$")
	quotedIdent = regexp.MustCompile("`([^`]*)`")
)

const cidColumn = "`cid`"

// updateTaskInsertPrefix starts every extended INSERT of the updateTask table.
const updateTaskInsertPrefix = "INSERT INTO `updateTask` VALUES "

// updateTaskRow captures cid, taskName, successful and lastModified of one
// tuple. Trailing columns, if any, are skipped.
var updateTaskRow = regexp.MustCompile(`\(([^),]*),([^),]*),([^),]*),([^),]*)(?:,.*?)?\)`)

// isCIDLine reports whether a CREATE TABLE body line declares the cid column.
func isCIDLine(line string) bool {
	return strings.Contains(line, cidColumn)
}

// parseForeignKey extracts a foreign key from a CREATE TABLE body line.
func parseForeignKey(line string) (ForeignKey, bool) {
	m := foreignKey.FindStringSubmatch(line)
	if m == nil {
		return ForeignKey{}, false
	}
	fk := ForeignKey{
		Columns:  identifiers(m[1]),
		RefTable: m[2],
	}
	if m[3] != "" {
		fk.RefColumns = identifiers(m[3])
	}
	return fk, true
}

func identifiers(list string) []string {
	var names []string
	for _, m := range quotedIdent.FindAllStringSubmatch(list, -1) {
		names = append(names, m[1])
	}
	return names
}
