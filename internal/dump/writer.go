package dump

import (
	"bufio"
	"errors"
	"io"
)

const (
	foreignKeyChecksOff     = "/*!40014 SET @OLD_FOREIGN_KEY_CHECKS=@@FOREIGN_KEY_CHECKS, FOREIGN_KEY_CHECKS=0 */;\n"
	foreignKeyChecksRestore = "/*!40014 SET FOREIGN_KEY_CHECKS=@OLD_FOREIGN_KEY_CHECKS */;\n"
)

// sqlWriter receives the extracted statements of one schema.
type sqlWriter interface {
	io.Writer
	Flush() error
	Close() error
}

// fileWriter buffers writes to a temp file.
type fileWriter struct {
	*bufio.Writer
	closer io.Closer
}

func newFileWriter(wc io.WriteCloser) *fileWriter {
	return &fileWriter{Writer: bufio.NewWriter(wc), closer: wc}
}

func (w *fileWriter) Close() error {
	return errors.Join(w.Flush(), w.closer.Close())
}

// nullWriter discards everything. It stands in for a schema whose temp file
// was already produced by an earlier pass.
type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }
func (nullWriter) Flush() error                { return nil }
func (nullWriter) Close() error                { return nil }
