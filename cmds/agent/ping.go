package agent

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/findy-network/findy-didcomm/agent/utils"
	"github.com/findy-network/findy-didcomm/cmds"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// PingCmd checks that the agent answers at its base address.
type PingCmd struct {
	BaseAddr string
}

func (c PingCmd) Validate() error {
	if c.BaseAddr == "" {
		return errors.New("server url cannot be empty")
	}
	if !strings.HasPrefix(c.BaseAddr, "http://") && !strings.HasPrefix(c.BaseAddr, "https://") {
		return fmt.Errorf("server url %q isn't http(s)", c.BaseAddr)
	}
	return nil
}

func (c PingCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "ping %s", c.BaseAddr)

	client := &http.Client{Timeout: utils.Settings.Timeout()}
	resp := try.To1(client.Get(strings.TrimSuffix(c.BaseAddr, "/") + "/version"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %s", resp.Status)
	}
	version := try.To1(io.ReadAll(resp.Body))
	cmds.Fprintln(w, "ping ok.",
		"\nserver's host address:", c.BaseAddr,
		"\nversion info:", string(version))
	return nil, nil
}
