/*
Package main is an application package for the Findy DIDComm agent. The agent
speaks DIDComm v2 with its peers and falls back to DIDComm v1 with the legacy
ones. It hosts one or more wallets behind a single HTTP endpoint.

# Usage

	findy-didcomm agent start --wallets alice --storage-key <hex> --invitation
	findy-didcomm agent ping --base-address http://localhost:8080

Every flag can be given as an environment variable with the FDC_ prefix, e.g.
FDC_AGENT_STORAGE_KEY, or in the configuration file given by --config.

# Sub-packages

	agent    the framework packages: didcomm, exchange, sec2, wallet, ...
	cmd      the cobra commands of the CLI
	cmds     the commands behind the CLI, usable without cobra
	method   DID methods: did:peer, did:key and did:web
	protocol processors of the DIDComm protocols
	server   the HTTP endpoint
	std      the message models of the protocols
*/
package main
