package dump

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// extractUpdateTasks reads the data section of the updateTask table, which
// starts right after its "Dumping data" announcement, up to the next comment
// line. Rows of other contexts are skipped; rows with a context id <= 0 are
// global and always kept.
func extractUpdateTasks(in *bufio.Reader, contextID int) (UpdateTaskInformation, error) {
	info := UpdateTaskInformation{}

	// The line after the announcement is boilerplate.
	if _, _, err := readLine(in); err != nil {
		return info, err
	}

	for {
		line, ok, err := readLine(in)
		if err != nil {
			return info, err
		}
		if !ok || strings.HasPrefix(line, "--") {
			return info, nil
		}
		if !strings.HasPrefix(line, updateTaskInsertPrefix) {
			continue
		}

		for _, m := range updateTaskRow.FindAllStringSubmatch(line[len(updateTaskInsertPrefix):], -1) {
			entry, keep, err := parseUpdateTask(m, contextID)
			if err != nil {
				return info, err
			}
			if keep {
				info = append(info, entry)
			}
		}
	}
}

func parseUpdateTask(m []string, contextID int) (UpdateTaskEntry, bool, error) {
	cid, err := strconv.Atoi(m[1])
	if err != nil {
		return UpdateTaskEntry{}, false, fmt.Errorf("%w: context id %q: %w", ErrUpdateTaskValue, m[1], err)
	}
	if cid > 0 && cid != contextID {
		return UpdateTaskEntry{}, false, nil
	}

	successful, err := strconv.Atoi(m[3])
	if err != nil {
		return UpdateTaskEntry{}, false, fmt.Errorf("%w: successful flag %q: %w", ErrUpdateTaskValue, m[3], err)
	}
	lastModified, err := strconv.ParseInt(m[4], 10, 64)
	if err != nil {
		return UpdateTaskEntry{}, false, fmt.Errorf("%w: lastModified %q: %w", ErrUpdateTaskValue, m[4], err)
	}

	return UpdateTaskEntry{
		ContextID:    cid,
		TaskName:     strings.ReplaceAll(m[2], "'", ""),
		Successful:   successful > 0,
		LastModified: lastModified,
	}, true, nil
}
