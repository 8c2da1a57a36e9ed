package agent

import (
	"bytes"
	"context"
	"flag"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/findy-network/findy-didcomm/agent/utils"
	"github.com/findy-network/findy-didcomm/protocol/outofband"
	"github.com/findy-network/findy-didcomm/server"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
	"github.com/stretchr/testify/require"
)

const storageKey = "15308490f1e4026284594dd08d31291bc8ef2aeac730d0daf6ff87bb92d4336c"

func TestMain(m *testing.M) {
	try.To(flag.Set("logtostderr", "true"))
	try.To(flag.Set("v", "3"))
	os.Exit(m.Run())
}

func validCmd() Cmd {
	return Cmd{
		ServiceName: "a2a",
		HostAddr:    "localhost",
		HostScheme:  "http",
		HostPort:    8080,
		ServerPort:  8080,
		StoragePath: ".",
		StorageKey:  storageKey,
		Wallets:     []string{"alice"},
	}
}

func TestCmd_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Cmd)
		ok     bool
	}{
		{"valid", func(*Cmd) {}, true},
		{"no service", func(c *Cmd) { c.ServiceName = "" }, false},
		{"no host", func(c *Cmd) { c.HostAddr = "" }, false},
		{"no port", func(c *Cmd) { c.ServerPort = 0 }, false},
		{"scheme", func(c *Cmd) { c.HostScheme = "ftp" }, false},
		{"no wallets", func(c *Cmd) { c.Wallets = nil }, false},
		{"bad key", func(c *Cmd) { c.StorageKey = "test-key" }, false},
		{"negative ttl", func(c *Cmd) { c.ExchangeTTL = -time.Second }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCmd()
			tt.modify(&c)
			err := c.Validate()
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestCmd_SetupAndRun(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	prev := utils.Settings.HostAddr()
	defer utils.Settings.SetHostAddr(prev)
	defer utils.Settings.SetStoragePath("")

	c := validCmd()
	c.StoragePath = t.TempDir()
	c.Wallets = []string{"cmd_alice", "cmd_bob"}
	c.Invitation = true
	c.ServerPort = 0
	c.SweepInterval = time.Minute

	a, err := c.Setup()
	assert.NoError(err)
	defer a.Close()
	assert.Equal(len(a.Wallets.All()), 2)
	alice, ok := a.Wallets.Get("cmd_alice")
	assert.That(ok)
	assert.Equal(alice.Endpoint(), "http://localhost:8080/a2a/cmd_alice")
	assert.Equal(utils.StorageDir(), c.StoragePath)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	assert.NoError(c.Run(ctx, &out, a))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(len(lines), 2)
	url := strings.TrimPrefix(lines[0], "cmd_alice: ")
	inv, err := outofband.Parse([]byte(url))
	assert.NoError(err)
	assert.Equal(inv.GoalCode, "connect")
	assert.Equal(a.Exchanges.Len(), 2)
}

func TestPingCmd(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	assert.That(PingCmd{}.Validate() != nil)
	assert.That(PingCmd{BaseAddr: "localhost:8080"}.Validate() != nil)

	srv := httptest.NewServer(server.Handler("a2a", nil, nil))
	defer srv.Close()

	c := PingCmd{BaseAddr: srv.URL}
	assert.NoError(c.Validate())
	var out bytes.Buffer
	_, err := c.Exec(&out)
	assert.NoError(err)
	assert.That(strings.Contains(out.String(), "version info: "+utils.Version))

	_, err = PingCmd{BaseAddr: srv.URL + "/nothing"}.Exec(nil)
	assert.That(err != nil)
}

func TestParseLoggingArgs(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	ParseLoggingArgs("-logtostderr=true  -v=5")
	assert.Equal(flag.Lookup("v").Value.String(), "5")
	ParseLoggingArgs("-v=3")
	assert.Equal(flag.Lookup("v").Value.String(), "3")
}
