package persistant

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/kgpp34/Redis-Source-Learning/internal/database"
	"github.com/kgpp34/Redis-Source-Learning/internal/resp"
	"github.com/kgpp34/Redis-Source-Learning/pkg/connection"
)

func newScript() *connection.Connection {
	return connection.NewPseudo(0, connection.RoleScript, time.Now())
}

func TestPreload(t *testing.T) {
	input := string(resp.EncodeStrings("SET", "a", "1")) +
		"set b 2\r\n" +
		"\r\n" +
		string(resp.EncodeStrings("INCR", "b")) +
		"incr a extra\r\n" +
		"get a\n"

	tests := []struct {
		name string
		wrap func(io.Reader) io.Reader
	}{
		{"whole", func(r io.Reader) io.Reader { return r }},
		{"one byte at a time", iotest.OneByteReader},
		{"data with eof", iotest.DataErrReader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mdb := database.NewStandaloneDatabase(1, nil)
			stats, err := Preload(tt.wrap(strings.NewReader(input)), newScript(), mdb, nil)
			if err != nil {
				t.Fatalf("Preload: %v", err)
			}
			want := Stats{Commands: 5, Writes: 4, Errors: 1}
			if stats != want {
				t.Errorf("stats = %+v, want %+v", stats, want)
			}
			if mdb.Keys() != 2 {
				t.Errorf("keys = %d", mdb.Keys())
			}
		})
	}
}

func TestPreloadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(error) bool
	}{
		{"truncated multibulk", "*2\r\n$3\r\nGET\r\n", func(err error) bool { return errors.Is(err, ErrTruncated) }},
		{"truncated inline", "PING", func(err error) bool { return errors.Is(err, ErrTruncated) }},
		{"protocol error", "*1\r\n$x\r\n", func(err error) bool {
			var perr *resp.ProtocolError
			return errors.As(err, &perr)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mdb := database.NewStandaloneDatabase(1, nil)
			_, err := Preload(strings.NewReader(tt.input), newScript(), mdb, nil)
			if err == nil || !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestPreloadDeferred(t *testing.T) {
	d := connection.DispatcherFunc(func(c *connection.Connection, args [][]byte) connection.Status {
		return connection.StatusDeferred
	})
	_, err := Preload(strings.NewReader("blpop q 0\r\n"), newScript(), d, nil)
	if !errors.Is(err, ErrDeferred) {
		t.Errorf("err = %v", err)
	}
}

func TestPreloadSkipsQuit(t *testing.T) {
	mdb := database.NewStandaloneDatabase(1, nil)
	stats, err := Preload(strings.NewReader("QUIT\r\nNOSUCHCMD\r\nSET k v\r\n"), newScript(), mdb, nil)
	if err != nil {
		t.Fatalf("Preload: %v", err)
	}
	want := Stats{Commands: 2, Writes: 1, Errors: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if mdb.Keys() != 1 {
		t.Errorf("keys = %d", mdb.Keys())
	}
}

func TestPreloadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "init.resp")
	if err := os.WriteFile(path, resp.EncodeStrings("SET", "k", "v"), 0o644); err != nil {
		t.Fatal(err)
	}

	mdb := database.NewStandaloneDatabase(1, nil)
	stats, err := PreloadFile(path, newScript(), mdb, nil)
	if err != nil {
		t.Fatalf("PreloadFile: %v", err)
	}
	if stats.Commands != 1 || mdb.Keys() != 1 {
		t.Errorf("stats = %+v, keys = %d", stats, mdb.Keys())
	}

	if _, err := PreloadFile(filepath.Join(dir, "missing"), newScript(), mdb, nil); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: %v", err)
	}
}
