/*
Package protocol is the parent of the protocol processors. Each subpackage
registers its prot.Proc in init, so the agent speaks the protocols whose
packages it imports:

	import _ "github.com/findy-network/findy-didcomm/protocol/trustping"

The message models are in the std packages. The processors send with the
helpers of agent/prot and keep their state in the exchange of the
connection.
*/
package protocol
