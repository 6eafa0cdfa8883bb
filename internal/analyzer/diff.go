package analyzer

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/ppiankov/ctxrestore/internal/dump"
)

// Diff compares the update tasks of a dump against those of a reference
// system by task name. A task counts as successful when any of its rows
// (global or context specific) succeeded.
func Diff(dumped, reference dump.UpdateTaskInformation) []Finding {
	have := taskStates(dumped)
	want := taskStates(reference)

	var findings []Finding

	for _, name := range sortedKeys(want) {
		ok, present := have[name]
		if !present {
			findings = append(findings, Finding{
				Type:     FindingMissingUpdateTask,
				Severity: SeverityHigh,
				Table:    "updateTask",
				Task:     name,
				Message:  fmt.Sprintf("update task %q ran on the reference system but is missing from the dump", name),
			})
			continue
		}
		if ok != want[name] {
			findings = append(findings, Finding{
				Type:     FindingTaskStateMismatch,
				Severity: SeverityMedium,
				Table:    "updateTask",
				Task:     name,
				Message:  fmt.Sprintf("update task %q differs in outcome from the reference system", name),
				Detail: map[string]string{
					"dump":      strconv.FormatBool(ok),
					"reference": strconv.FormatBool(want[name]),
				},
			})
		}
	}

	for _, name := range sortedKeys(have) {
		if _, present := want[name]; !present {
			findings = append(findings, Finding{
				Type:     FindingUnknownUpdateTask,
				Severity: SeverityHigh,
				Table:    "updateTask",
				Task:     name,
				Message:  fmt.Sprintf("update task %q is unknown to the reference system", name),
			})
		}
	}

	return findings
}

func taskStates(tasks dump.UpdateTaskInformation) map[string]bool {
	states := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		states[t.TaskName] = states[t.TaskName] || t.Successful
	}
	return states
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
