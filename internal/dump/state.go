package dump

// State is a position of the dump scanner.
type State int

const (
	// StateUndefined is only produced by the fixed-string matcher when the
	// input ends before the expected keyword could be read.
	StateUndefined State = iota
	StateStart
	// StateStartedCommentLine has read a single '-'.
	StateStartedCommentLine
	// StateReadCommentPrefix has read "--".
	StateReadCommentPrefix
	// StateTableFound follows a "Table structure for table" announcement.
	StateTableFound
	// StateCreateFound has matched the CREATE keyword of the announced table.
	StateCreateFound
	// StateTableContentFound follows a "Dumping data for table" announcement.
	StateTableContentFound
	// StateTableInsertFound has matched an INSERT keyword in the data section.
	StateTableInsertFound
)

var stateNames = map[State]string{
	StateUndefined:          "undefined",
	StateStart:              "start",
	StateStartedCommentLine: "started-comment-line",
	StateReadCommentPrefix:  "read-comment-prefix",
	StateTableFound:         "table-found",
	StateCreateFound:        "create-found",
	StateTableContentFound:  "table-content-found",
	StateTableInsertFound:   "table-insert-found",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}
