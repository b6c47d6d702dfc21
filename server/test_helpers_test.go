package server

import (
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/chazu/lama/journal"
	"github.com/chazu/lama/vm"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
// ---------------------------------------------------------------------------

// testEnv bundles a server, an HTTP test server in front of its Connect
// handlers, and a client pointed at it.
type testEnv struct {
	Server  *LamaServer
	HTTP    *httptest.Server
	Client  *Client
	Journal *journal.Journal
}

func newTestEnv(t *testing.T, opts vm.Options, withJournal bool) *testEnv {
	t.Helper()
	env := &testEnv{}
	var options []ServerOption
	if withJournal {
		j, err := journal.Open(filepath.Join(t.TempDir(), "runs.db"))
		if err != nil {
			t.Fatalf("journal.Open: %v", err)
		}
		env.Journal = j
		options = append(options, WithJournal(j))
	}
	env.Server = New(opts, options...)
	env.HTTP = httptest.NewServer(env.Server.Handler())
	env.Client = NewClient(env.HTTP.Client(), env.HTTP.URL)

	t.Cleanup(func() {
		env.HTTP.Close()
		env.Server.Stop()
		if env.Journal != nil {
			env.Journal.Close()
		}
	})
	return env
}
