package cmd

import (
	"log"
	"os"
	"time"

	"github.com/findy-network/findy-didcomm/agent/utils"
	"github.com/findy-network/findy-didcomm/cmds/agent"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/spf13/cobra"
)

// AgentCmd represents the agent command
var AgentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Parent command for starting and pinging the agent",
	Long: `
Parent command for starting and pinging the agent
	`,
	Run: func(cmd *cobra.Command, args []string) {
		SubCmdNeeded(cmd)
	},
}

var agentStartEnvs = map[string]string{
	"host-address":      "HOST_ADDRESS",
	"host-scheme":       "HOST_SCHEME",
	"host-port":         "HOST_PORT",
	"server-port":       "SERVER_PORT",
	"service-name":      "SERVICE_NAME",
	"storage-path":      "STORAGE_PATH",
	"storage-key":       "STORAGE_KEY",
	"wallets":           "WALLETS",
	"workers":           "WORKERS",
	"exchange-capacity": "EXCHANGE_CAPACITY",
	"exchange-ttl":      "EXCHANGE_TTL",
	"sweep-interval":    "SWEEP_INTERVAL",
	"timeout":           "TIMEOUT",
	"await-timeout":     "AWAIT_TIMEOUT",
	"invitation":        "INVITATION",
}

// startAgentCmd represents the agent start subcommand
var startAgentCmd = &cobra.Command{
	Use:   "start",
	Short: "Command for starting the agent",
	Long: `
Starts the agent's HTTP endpoint and opens its wallets. The wallets are
created when they don't exist.

Example
	findy-didcomm agent start \
		--wallets alice,bob \
		--storage-key 15308490f1e4026284594dd08d31291bc8ef2aeac730d0daf6ff87bb92d4336c \
		--invitation
	`,
	PreRunE: func(cmd *cobra.Command, args []string) (err error) {
		return BindEnvs(agentStartEnvs, "AGENT")
	},
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer err2.Handle(&err)

		try.To(aCmd.Validate())
		if !rootFlags.dryRun {
			cmd.SilenceUsage = true
			try.To1(aCmd.Exec(os.Stdout))
		}
		return nil
	},
}

var agentPingEnvs = map[string]string{
	"base-address": "PING_BASE_ADDRESS",
}

// pingAgentCmd represents the agent ping subcommand
var pingAgentCmd = &cobra.Command{
	Use:   "ping",
	Short: "Command for pinging the agent",
	Long: `
Pings the agent.
If the agent works fine, ping ok with the agent's version is printed.

Example
	findy-didcomm agent ping \
		--base-address http://localhost:8080
	`,
	PreRunE: func(cmd *cobra.Command, args []string) (err error) {
		return BindEnvs(agentPingEnvs, "AGENT")
	},
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer err2.Handle(&err)

		try.To(paCmd.Validate())
		if !rootFlags.dryRun {
			cmd.SilenceUsage = true
			try.To1(paCmd.Exec(os.Stdout))
		}
		return nil
	},
}

var (
	aCmd  = agent.Cmd{}
	paCmd = agent.PingCmd{}
)

const (
	defaultExchangeTTL   = 24 * time.Hour
	defaultSweepInterval = 10 * time.Minute
)

func init() {
	defer err2.Catch(func(err error) error {
		log.Println(err)
		return nil
	})

	aCmd.VersionInfo = "findy-didcomm v. " + utils.Version

	name := AgentCmd.Name()
	flags := startAgentCmd.Flags()
	flags.StringVar(&aCmd.HostAddr, "host-address", "localhost", flagInfo("host address", name, agentStartEnvs["host-address"]))
	flags.StringVar(&aCmd.HostScheme, "host-scheme", "http", flagInfo("scheme of the agent's host address", name, agentStartEnvs["host-scheme"]))
	flags.UintVar(&aCmd.HostPort, "host-port", 8080, flagInfo("host port", name, agentStartEnvs["host-port"]))
	flags.UintVar(&aCmd.ServerPort, "server-port", 8080, flagInfo("server port", name, agentStartEnvs["server-port"]))
	flags.StringVar(&aCmd.ServiceName, "service-name", "a2a", flagInfo("URL path of the DIDComm endpoint", name, agentStartEnvs["service-name"]))
	flags.StringVar(&aCmd.StoragePath, "storage-path", "", flagInfo("folder of the wallet files, default ~/.findy-didcomm", name, agentStartEnvs["storage-path"]))
	flags.StringVar(&aCmd.StorageKey, "storage-key", "", flagInfo("wallet storage key, 32 bytes in hex", name, agentStartEnvs["storage-key"]))
	flags.StringSliceVar(&aCmd.Wallets, "wallets", nil, flagInfo("names of the hosted wallets", name, agentStartEnvs["wallets"]))
	flags.IntVar(&aCmd.WorkerCount, "workers", 0, flagInfo("size of the dispatch worker pool, 0 is the default", name, agentStartEnvs["workers"]))
	flags.IntVar(&aCmd.ExchangeCapacity, "exchange-capacity", 0, flagInfo("max number of live exchanges, 0 is the default", name, agentStartEnvs["exchange-capacity"]))
	flags.DurationVar(&aCmd.ExchangeTTL, "exchange-ttl", defaultExchangeTTL, flagInfo("idle time after an exchange expires", name, agentStartEnvs["exchange-ttl"]))
	flags.DurationVar(&aCmd.SweepInterval, "sweep-interval", defaultSweepInterval, flagInfo("interval of the expired exchange sweep, 0 disables", name, agentStartEnvs["sweep-interval"]))
	flags.DurationVar(&aCmd.Timeout, "timeout", 0, flagInfo("timeout of the outbound HTTP calls", name, agentStartEnvs["timeout"]))
	flags.DurationVar(&aCmd.AwaitTimeout, "await-timeout", 0, flagInfo("default timeout of the awaited messages", name, agentStartEnvs["await-timeout"]))
	flags.BoolVar(&aCmd.Invitation, "invitation", false, flagInfo("print an invitation URL for each wallet", name, agentStartEnvs["invitation"]))

	p := pingAgentCmd.Flags()
	p.StringVar(&paCmd.BaseAddr, "base-address", "http://localhost:8080", flagInfo("base address of the agent", name, agentPingEnvs["base-address"]))

	rootCmd.AddCommand(AgentCmd)
	AgentCmd.AddCommand(startAgentCmd)
	AgentCmd.AddCommand(pingAgentCmd)
}
