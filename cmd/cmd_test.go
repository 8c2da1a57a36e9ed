package cmd

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

const storageKey = "15308490f1e4026284594dd08d31291bc8ef2aeac730d0daf6ff87bb92d4336c"

func TestMain(m *testing.M) {
	try.To(flag.Set("logtostderr", "true"))
	try.To(flag.Set("v", "3"))
	os.Exit(m.Run())
}

func TestExecute(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	cfgFile := filepath.Join(t.TempDir(), "agent.yaml")
	try.To(os.WriteFile(cfgFile, []byte(
		"service-name: didcomm\nhost-port: 443\nwallets: alice\nstorage-key: \""+storageKey+"\"\n"), 0o600))

	// the config file first, the flags set from the command line win it
	// after that
	rootCmd.SetArgs([]string{"agent", "start", "--dry-run", "--config", cfgFile})
	assert.NoError(rootCmd.Execute())
	assert.Equal(aCmd.ServiceName, "didcomm")
	assert.Equal(aCmd.HostPort, uint(443))
	assert.DeepEqual(aCmd.Wallets, []string{"alice"})
	assert.Equal(aCmd.StorageKey, storageKey)

	tests := []struct {
		name string
		args []string
	}{
		{
			name: "start agent",
			args: []string{
				"agent", "start", "--dry-run",
				"--wallets", "bob",
				"--storage-key", storageKey,
			},
		},
		{
			name: "ping agent",
			args: []string{
				"agent", "ping", "--dry-run",
				"--base-address", "http://localhost:9090",
			},
		},
		{
			name: "version",
			args: []string{"version"},
		},
		{
			name: "tree",
			args: []string{"tree", "agent"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.PushTester(t)
			defer assert.PopTester()

			rootCmd.SetArgs(tt.args)
			assert.NoError(rootCmd.Execute())
		})
	}
	assert.Equal(paCmd.BaseAddr, "http://localhost:9090")
}

func TestExecute_Invalid(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.SetArgs([]string{
		"agent", "ping", "--dry-run",
		"--base-address", "localhost:9090",
	})
	assert.That(rootCmd.Execute() != nil)
}

func TestGetEnvName(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	assert.Equal(getEnvName("", "config"), "FDC_CONFIG")
	assert.Equal(getEnvName("agent", "STORAGE_KEY"), "FDC_AGENT_STORAGE_KEY")
	assert.Equal(flagInfo("server port", "agent", "SERVER_PORT"), "server port, FDC_AGENT_SERVER_PORT")
}

func TestPrintTree(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	var buf bytes.Buffer
	printTree(&buf, AgentCmd, "", 0, true)
	assert.Equal(buf.String(), "└── agent\n    ├── ping\n    └── start\n")
}
