package dump

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/ppiankov/ctxrestore/internal/testutil"
)

func TestParseFile_Compression(t *testing.T) {
	plain := []byte(testutil.ConfigDB().String())

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	if _, err := gw.Write(plain); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}

	var zs bytes.Buffer
	zw, err := zstd.NewWriter(&zs)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write(plain); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"plain", plain},
		{"gzip", gz.Bytes()},
		{"zstd", zs.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "dump.sql")
			if err := os.WriteFile(path, tt.data, 0o644); err != nil {
				t.Fatal(err)
			}

			files := NewTempFileMap(t.TempDir())
			res, err := ParseFile(path, Options{ContextID: 5, TempFiles: files})
			if err != nil {
				t.Fatal(err)
			}
			if res.PoolID != 4 {
				t.Errorf("PoolID = %d, want 4", res.PoolID)
			}
			if res.SourceFile != path {
				t.Errorf("SourceFile = %q", res.SourceFile)
			}
			if res.Stats.BytesRead != int64(len(plain)) {
				t.Errorf("BytesRead = %d, want %d", res.Stats.BytesRead, len(plain))
			}
		})
	}
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.sql"), Options{ContextID: 5, TempFiles: NewTempFileMap("")})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseFile_CorruptGzip(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "dump.sql.gz", "\x1f\x8bnot really gzip")
	_, err := ParseFile(path, Options{ContextID: 5, TempFiles: NewTempFileMap(t.TempDir())})
	if err == nil {
		t.Fatal("expected error for corrupt gzip")
	}
}

func TestReadLine(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("one\r\ntwo\n\nlast"))
	var got []string
	for {
		line, ok, err := readLine(in)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		got = append(got, line)
	}
	want := []string{"one", "two", "", "last"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", got, want)
	}
}
