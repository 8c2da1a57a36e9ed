// Package agent has the commands which start and ping the DIDComm agent.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/findy-network/findy-didcomm/agent/comm"
	"github.com/findy-network/findy-didcomm/agent/exchange"
	"github.com/findy-network/findy-didcomm/agent/storage/api"
	"github.com/findy-network/findy-didcomm/agent/utils"
	"github.com/findy-network/findy-didcomm/agent/wallet"
	"github.com/findy-network/findy-didcomm/cmds"
	_ "github.com/findy-network/findy-didcomm/protocol/basicmessage" // protocols needed
	_ "github.com/findy-network/findy-didcomm/protocol/issuecredential"
	"github.com/findy-network/findy-didcomm/protocol/outofband"
	_ "github.com/findy-network/findy-didcomm/protocol/presentproof"
	_ "github.com/findy-network/findy-didcomm/protocol/reportproblem"
	_ "github.com/findy-network/findy-didcomm/protocol/routing"
	_ "github.com/findy-network/findy-didcomm/protocol/trustping"
	"github.com/findy-network/findy-didcomm/server"
	"github.com/go-co-op/gocron"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

type Cmd struct {
	ServiceName string
	HostAddr    string
	HostScheme  string
	HostPort    uint
	ServerPort  uint

	StoragePath string
	StorageKey  string
	Wallets     []string

	WorkerCount      int
	ExchangeCapacity int
	ExchangeTTL      time.Duration
	SweepInterval    time.Duration
	Timeout          time.Duration
	AwaitTimeout     time.Duration

	// Invitation prints an out-of-band invitation URL for every wallet at
	// start.
	Invitation  bool
	VersionInfo string
}

// Agent is the running agent: its wallets, exchanges and the both
// directions of the transport.
type Agent struct {
	Wallets   *wallet.Registry
	Exchanges *exchange.LRU
	Receiver  *comm.Receiver
	Out       *comm.Dispatcher
}

var (
	cron = gocron.NewScheduler(time.Now().Location())
)

func (c *Cmd) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service name cannot be empty")
	}
	if c.HostAddr == "" {
		return errors.New("host address cannot be empty")
	}
	if c.ServerPort == 0 {
		return errors.New("server port cannot be zero")
	}
	if c.HostScheme != "http" && c.HostScheme != "https" {
		return fmt.Errorf("host scheme %q isn't http or https", c.HostScheme)
	}
	if len(c.Wallets) == 0 {
		return errors.New("at least one wallet is needed")
	}
	if err := cmds.ValidateKey(c.StorageKey); err != nil {
		return err
	}
	if c.SweepInterval < 0 || c.ExchangeTTL < 0 {
		return errors.New("durations cannot be negative")
	}
	return nil
}

func (c *Cmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "agent")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := try.To1(c.Setup())
	defer a.Close()
	try.To(c.Run(ctx, w, a))
	return nil, nil
}

// Setup sets the runtime settings and opens the wallets.
func (c *Cmd) Setup() (a *Agent, err error) {
	defer err2.Handle(&err, "setup")

	c.printStartupArgs()
	c.setRuntimeSettings()
	server.BuildHostAddr(c.HostScheme, c.HostPort)

	storagePath := utils.StorageDir()
	try.To(os.MkdirAll(storagePath, 0o700))

	wallets := wallet.NewRegistry()
	defer func() {
		if err != nil {
			_ = wallets.CloseAll()
		}
	}()
	for _, name := range c.Wallets {
		wallets.Add(try.To1(wallet.Open(wallet.Config{
			Name:     name,
			Endpoint: utils.Settings.ServiceEndpoint() + "/" + name,
			Storage: api.AgentStorageConfig{
				AgentKey: c.StorageKey,
				AgentID:  name,
				FilePath: storagePath,
			},
		})))
	}

	exchanges := exchange.NewLRU(utils.Settings.ExchangeCapacity(), utils.Settings.ExchangeTTL())
	out := &comm.Dispatcher{}
	return &Agent{
		Wallets:   wallets,
		Exchanges: exchanges,
		Receiver:  comm.NewReceiver(wallets, exchanges, out),
		Out:       out,
	}, nil
}

// Run serves the agent until the ctx is done.
func (c *Cmd) Run(ctx context.Context, w io.Writer, a *Agent) (err error) {
	defer err2.Handle(&err, "run")

	c.startSweep(a.Exchanges)
	defer cron.Stop()

	if c.Invitation {
		for _, wlt := range a.Wallets.All() {
			_, inv := try.To2(outofband.CreateInvitation(wlt, a.Exchanges, outofband.Options{
				GoalCode: "connect",
				Goal:     "connect to " + wlt.Name(),
			}))
			cmds.Fprintf(w, "%s: %s\n", wlt.Name(), outofband.URL(wlt.Endpoint(), inv))
		}
	}
	return server.StartHTTPServer(ctx, c.ServiceName, c.ServerPort, a.Receiver, a.Wallets)
}

func (c *Cmd) startSweep(exchanges *exchange.LRU) {
	if c.SweepInterval == 0 {
		return
	}
	glog.V(1).Infoln("exchange sweep interval:", c.SweepInterval)
	_, err := cron.Every(c.SweepInterval).Do(func() {
		if n := exchanges.Sweep(); n > 0 {
			glog.V(1).Infof("swept %d expired exchanges", n)
		}
	})
	if err != nil {
		glog.Warningln("exchange sweep start error:", err)
		return
	}
	cron.StartAsync()
}

// Close stops the dispatching and closes the wallets.
func (a *Agent) Close() {
	a.Receiver.Close()
	for _, ex := range a.Exchanges.All() {
		ex.Close()
	}
	if err := a.Wallets.CloseAll(); err != nil {
		glog.Errorln("close wallets:", err)
	}
}

func (c *Cmd) printStartupArgs() {
	fmt.Println(
		"Storage path:", c.StoragePath,
		"\nWallets:", c.Wallets,
		"\nHost address:", c.HostAddr,
		"\nHost port:", c.HostPort,
		"\nServer port:", c.ServerPort)
}

func (c *Cmd) setRuntimeSettings() {
	if c.HostPort == 0 {
		c.HostPort = c.ServerPort
	}
	utils.Settings.SetServiceName(c.ServiceName)
	utils.Settings.SetHostAddr(c.HostAddr)
	utils.Settings.SetVersionInfo(c.VersionInfo)
	utils.Settings.SetStoragePath(c.StoragePath)
	utils.Settings.SetStorageKey(c.StorageKey)
	utils.Settings.SetWorkerCount(c.WorkerCount)
	utils.Settings.SetExchangeCapacity(c.ExchangeCapacity)
	utils.Settings.SetExchangeTTL(c.ExchangeTTL)
	if c.Timeout > 0 {
		utils.Settings.SetTimeout(c.Timeout)
	}
	if c.AwaitTimeout > 0 {
		utils.Settings.SetAwaitTimeout(c.AwaitTimeout)
	}
}
