package dump

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
)

// parser holds the mutable state of a single scan.
type parser struct {
	in   *bufio.Reader
	opts Options
	log  *slog.Logger
	cid  string

	state     State
	prevState State
	tableName string
	cidPos    int
	out       sqlWriter
	database  string
	// furtherSearch is false while inside a schema that is neither the
	// configdb nor the target schema.
	furtherSearch bool
	// searchContext is set while the data of context_server2db_pool is read.
	searchContext bool
	poolID        int
	schema        string
	updateTasks   UpdateTaskInformation
	tables        []TableInfo
	current       int
	stats         Stats
}

// Parse scans a mysqldump stream and writes the rows of opts.ContextID
// found in the configdb and target schema to temp files obtained from
// opts.TempFiles. source is reported back in the result.
//
// Missing cid columns, tables without matching rows and schemas that never
// show up are not errors. A pool id that is not an integer is reported as
// ErrPoolIDConversion.
func Parse(r io.Reader, source string, opts Options) (*Result, error) {
	if opts.TempFiles == nil {
		return nil, errors.New("dump: temp file map is required")
	}
	counter := &countingReader{r: r}
	p := &parser{
		in:            bufio.NewReaderSize(counter, readBufferSize),
		opts:          opts,
		log:           opts.Logger,
		cid:           strconv.Itoa(opts.ContextID),
		state:         StateStart,
		prevState:     StateStart,
		cidPos:        -1,
		furtherSearch: true,
		poolID:        -1,
		schema:        opts.Schema,
		current:       -1,
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	p.log = p.log.With("source", source)

	defer func() {
		// only reached with an open writer when the scan failed
		if p.out != nil {
			_ = p.out.Flush()
			_ = p.out.Close()
		}
	}()

	if err := p.run(); err != nil {
		return nil, err
	}
	if err := p.closeWriter(); err != nil {
		return nil, fmt.Errorf("close output: %w", err)
	}
	p.stats.BytesRead = counter.n

	return &Result{
		SourceFile:  source,
		ContextID:   opts.ContextID,
		PoolID:      p.poolID,
		Schema:      p.schema,
		UpdateTasks: p.updateTasks,
		Tables:      p.tables,
		Stats:       p.stats,
	}, nil
}

func (p *parser) run() error {
	for {
		c, err := p.in.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read dump: %w", err)
		}
		if err := p.step(c); err != nil {
			return err
		}
	}
}

// step advances the state machine by one input byte.
func (p *parser) step(c byte) error {
	switch p.state {
	case StateStart:
		if c == '-' {
			p.state = StateStartedCommentLine
			return nil
		}
	case StateStartedCommentLine:
		if c == '-' {
			p.state = StateReadCommentPrefix
		} else {
			p.state = p.prevState
		}
		return nil
	case StateReadCommentPrefix:
		if c == ' ' {
			return p.comment()
		}
		p.state = p.prevState
	case StateTableFound:
		switch c {
		case 'C':
			return p.expect("REATE", StateCreateFound, StateTableFound)
		case '-':
			p.prevState = StateTableFound
			p.state = StateStartedCommentLine
			return nil
		}
	case StateCreateFound:
		if c == '(' {
			return p.createTable()
		}
	case StateTableContentFound:
		switch c {
		case 'I':
			return p.expect("NSERT", StateTableInsertFound, StateTableContentFound)
		case '-':
			p.prevState = StateTableContentFound
			p.state = StateStartedCommentLine
		}
	case StateTableInsertFound:
		if c == '(' {
			return p.insert()
		}
	}

	if c == '\n' && (p.state == StateStartedCommentLine || p.state == StateReadCommentPrefix) {
		p.state = StateStart
	}
	return nil
}

// expect reads len(rest) bytes and moves to success if they spell rest.
func (p *parser) expect(rest string, success, failure State) error {
	buf := make([]byte, len(rest))
	_, err := io.ReadFull(p.in, buf)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		p.state = StateUndefined
		return nil
	case err != nil:
		return fmt.Errorf("read dump: %w", err)
	}
	if string(buf) == rest {
		p.state = success
	} else {
		p.state = failure
	}
	return nil
}

// comment handles the rest of a line that started with "-- ".
func (p *parser) comment() error {
	p.searchContext = false
	line, ok, err := readLine(p.in)
	if err != nil {
		return fmt.Errorf("read dump: %w", err)
	}
	if !ok {
		return nil
	}

	if m := databaseComment.FindStringSubmatch(line); m != nil {
		return p.enterDatabase(m[1])
	}
	if p.furtherSearch {
		if m := tableComment.FindStringSubmatch(line); m != nil {
			p.enterTable(m[1])
			return nil
		}
		if dataDumpComment.MatchString(line) {
			return p.enterData()
		}
	}

	p.state = StateStart
	p.prevState = StateStart
	return nil
}

func (p *parser) enterDatabase(name string) error {
	if name != p.opts.configDBName() && (p.schema == "" || name != p.schema) {
		p.furtherSearch = false
		return nil
	}

	p.furtherSearch = true
	p.log.Info("database found", "database", name)

	if p.out != nil {
		if _, err := io.WriteString(p.out, foreignKeyChecksRestore); err != nil {
			return fmt.Errorf("write %s: %w", p.database, err)
		}
		if err := p.closeWriter(); err != nil {
			return fmt.Errorf("close %s: %w", p.database, err)
		}
	}

	if path, exists := p.opts.TempFiles.Lookup(name); exists {
		// An earlier pass already extracted this schema.
		p.log.Debug("schema already extracted", "database", name, "path", path)
		p.out = nullWriter{}
	} else {
		wc, path, err := p.opts.TempFiles.Create(name)
		if err != nil {
			return err
		}
		p.out = newFileWriter(wc)
		p.stats.SchemasOpened++
		p.log.Debug("schema output opened", "database", name, "path", path)
		if _, err := io.WriteString(p.out, foreignKeyChecksOff); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	p.database = name
	p.current = -1
	p.cidPos = -1
	p.state = StateStart
	p.prevState = StateStart
	return nil
}

func (p *parser) enterTable(name string) {
	p.tableName = name
	p.log.Info("table found", "database", p.database, "table", name)
	p.tables = append(p.tables, TableInfo{Database: p.database, Name: name, CIDColumn: -1})
	p.current = len(p.tables) - 1
	p.cidPos = -1
	p.prevState = StateStart
	p.state = StateTableFound
}

func (p *parser) enterData() error {
	p.log.Debug("data dump found", "table", p.tableName)
	switch p.tableName {
	case updateTaskTable:
		tasks, err := extractUpdateTasks(p.in, p.opts.ContextID)
		if err != nil {
			return fmt.Errorf("read %s: %w", updateTaskTable, err)
		}
		p.log.Info("update tasks found", "count", len(tasks))
		p.updateTasks = tasks
	case contextToPoolTable:
		p.searchContext = true
	}
	p.state = StateTableContentFound
	p.prevState = StateStart
	return nil
}

func (p *parser) createTable() error {
	pos, fks, err := resolveColumns(p.in)
	if err != nil {
		return fmt.Errorf("read table %s: %w", p.tableName, err)
	}
	p.cidPos = pos
	p.log.Info("cid position", "table", p.tableName, "position", pos)
	if len(fks) > 0 {
		p.log.Info("foreign keys", "table", p.tableName, "keys", fks)
	}
	if t := p.currentTable(); t != nil {
		t.CIDColumn = pos
		t.ForeignKeys = fks
	}
	p.state = StateStart
	return nil
}

func (p *parser) insert() error {
	p.log.Debug("insert found", "table", p.tableName, "cid_position", p.cidPos)
	match := rowMatch{column: p.cidPos, value: p.cid, table: p.tableName, write: true}

	switch {
	case p.searchContext && p.out != nil:
		match.collect = true
		values, written, err := matchRows(p.in, p.out, match)
		p.countInsert(written)
		if err != nil {
			return err
		}
		if len(values) < 2 {
			// context row not in this statement, keep looking
			p.state = StateTableContentFound
			return nil
		}
		poolID, err := strconv.Atoi(values[1])
		if err != nil {
			return fmt.Errorf("%w %q: %w", ErrPoolIDConversion, values[1], err)
		}
		p.poolID = poolID
		if len(values) > 2 {
			p.schema = values[2]
		}
		p.log.Info("context found", "pool_id", p.poolID, "schema", p.schema)
	case p.out != nil:
		_, written, err := matchRows(p.in, p.out, match)
		p.countInsert(written)
		if err != nil {
			return err
		}
	}

	p.searchContext = false
	p.prevState = StateStart
	p.state = StateTableContentFound
	return nil
}

func (p *parser) countInsert(written int) {
	p.stats.InsertStatements++
	if _, discard := p.out.(nullWriter); discard {
		written = 0
	}
	p.stats.RowsWritten += written
	if t := p.currentTable(); t != nil {
		t.Inserts++
		t.RowsWritten += written
	}
}

func (p *parser) currentTable() *TableInfo {
	if p.current < 0 || p.current >= len(p.tables) {
		return nil
	}
	return &p.tables[p.current]
}

func (p *parser) closeWriter() error {
	if p.out == nil {
		return nil
	}
	out := p.out
	p.out = nil
	return out.Close()
}
