package server

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/loganszeto/udpkv/internal/persistence"
	"github.com/loganszeto/udpkv/internal/protocol"
	"github.com/loganszeto/udpkv/internal/stats"
	"github.com/loganszeto/udpkv/internal/store"
	"github.com/loganszeto/udpkv/internal/util"
)

var testNow = time.Unix(1700000100, 250)

func newTestDispatcher(t *testing.T, dir string) (*Dispatcher, *stats.Stats) {
	t.Helper()
	st := store.NewDataStore(store.Options{Backend: persistence.NewFileBackend(dir)})
	s := stats.New(testNow.Add(-100 * time.Second))
	d := NewDispatcher(st, s, DispatcherOptions{
		Clock:   util.FixedClock{T: testNow},
		Version: "test",
		Logger:  zaptest.NewLogger(t),
	})
	return d, s
}

func do(t *testing.T, d *Dispatcher, line string) string {
	t.Helper()
	req, err := protocol.Decode([]byte(line))
	if err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	return string(protocol.Encode(d.Handle(req)))
}

func TestDispatchTable(t *testing.T) {
	d, _ := newTestDispatcher(t, t.TempDir())
	steps := []struct {
		line string
		want string
	}{
		{"ping", "200:ok:PONG"},
		{"ping extra args", "200:ok:PONG"},
		{"now", "200:ok:1700000100"},
		{"now_ns", "200:ok:1700000100000000250"},
		{"get missing", "404:not-found:missing"},
		{"set k1 v1", "200:ok:ok"},
		{"get k1", "200:ok:v1"},
		{"set k1 v2 and more", "200:ok:v1"},
		{"get k1", "200:ok:v2 and more"},
		{"set k2 x", "200:ok:ok"},
		{"dbsize", "200:ok:2"},
		{"keys", "200:ok:k1 k2"},
		{"del k1", "200:ok:v2 and more"},
		{"del k1", "200:ok:ok"},
		{"dbsize", "200:ok:1"},
		{"set k1", "400:bad-request:set"},
		{"set", "400:bad-request:set"},
		{"get", "400:bad-request:get"},
		{"del", "400:bad-request:del"},
		{"PING", "400:bad-request:PING"},
		{"flushall", "400:bad-request:flushall"},
	}
	for _, step := range steps {
		if got := do(t, d, step.line); got != step.want {
			t.Fatalf("%q: expected %q, got %q", step.line, step.want, got)
		}
	}
}

func TestDispatchStatus(t *testing.T) {
	d, s := newTestDispatcher(t, t.TempDir())
	do(t, d, "set a 1")
	do(t, d, "bogus")

	got := do(t, d, "status")
	want := "200:ok:version=test started=1700000000 uptime=100 access=3 errors=1 dbsize=1"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if snap := s.Snapshot(); snap.Access != 3 || snap.Errors != 1 {
		t.Fatalf("unexpected counters %+v", snap)
	}
}

func TestDispatchDBSizeCountsDistinctKeys(t *testing.T) {
	d, _ := newTestDispatcher(t, t.TempDir())
	for i := 0; i < 3; i++ {
		do(t, d, "set same v")
	}
	do(t, d, "set other v")
	if got := do(t, d, "dbsize"); got != "200:ok:2" {
		t.Fatalf("expected 2 keys, got %q", got)
	}
}

func TestDispatchEmptyKeys(t *testing.T) {
	d, _ := newTestDispatcher(t, t.TempDir())
	if got := do(t, d, "keys"); got != "200:ok:" {
		t.Fatalf("expected empty keys body, got %q", got)
	}
}

func TestDispatchSaveLoad(t *testing.T) {
	dir := t.TempDir()
	d, _ := newTestDispatcher(t, dir)
	do(t, d, "set a 1")
	do(t, d, "set b 2")
	do(t, d, "set c three words")
	if got := do(t, d, "savedb snap.db"); got != "200:ok:3" {
		t.Fatalf("savedb: got %q", got)
	}

	fresh, _ := newTestDispatcher(t, dir)
	if got := do(t, fresh, "loaddb snap.db"); got != "200:ok:3" {
		t.Fatalf("loaddb: got %q", got)
	}
	if got := do(t, fresh, "get c"); got != "200:ok:three words" {
		t.Fatalf("get after load: got %q", got)
	}

	abs := filepath.Join(dir, "snap.db")
	if got := do(t, fresh, "loaddb "+abs); got != "400:bad-request:"+abs {
		t.Fatalf("loaddb absolute: got %q", got)
	}
}

func TestDispatchStoreFailures(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "blocker"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	d, s := newTestDispatcher(t, dir)
	if got := do(t, d, "loaddb nope.db"); got != "400:bad-request:nope.db" {
		t.Fatalf("loaddb missing: got %q", got)
	}
	if got := do(t, d, "savedb blocker/x.db"); got != "400:bad-request:blocker/x.db" {
		t.Fatalf("savedb bad path: got %q", got)
	}
	if got := do(t, d, "savedb ../x.db"); got != "400:bad-request:../x.db" {
		t.Fatalf("savedb outside data folder: got %q", got)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "x.db")); !os.IsNotExist(err) {
		t.Fatalf("expected no file outside the data folder, got %v", err)
	}
	if s.Snapshot().Errors != 3 {
		t.Fatalf("expected 3 errors, got %d", s.Snapshot().Errors)
	}
}

type failingStore struct {
	store.Store
}

func (failingStore) LoadDB(string) (int, error) { return 0, errors.New("boom") }

func TestDispatchNeverPanicsOnEmptyParams(t *testing.T) {
	d, _ := newTestDispatcher(t, t.TempDir())
	d.st = failingStore{Store: d.st}
	for _, c := range protocol.Commands() {
		resp := d.Handle(protocol.Request{Command: c.Name})
		switch resp.Status {
		case protocol.StatusOK, protocol.StatusBadRequest, protocol.StatusNotFound:
		default:
			t.Fatalf("%s: unexpected status %+v", c.Name, resp.Status)
		}
	}
	if got := do(t, d, "loaddb x.db"); got != "400:bad-request:x.db" {
		t.Fatalf("expected store failure to map to 400, got %q", got)
	}
}
