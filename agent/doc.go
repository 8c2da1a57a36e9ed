/*
Package agent is a package for the DIDComm agent and its services. The agent
package is empty itself, all the functionality is inside sub-packages:

	comm       outbound HTTP calls, dispatching and the inbound receiver
	didcomm    DIDComm v2 and v1 messages and their endpoint envelopes
	exchange   messages of one conversation, futures to await replies
	packager   aries packager for the legacy DIDComm v1 envelopes
	pairwise   the connection between our DID and theirs
	pltype     protocol URIs and message types
	prot       protocol processors and their registry
	sec2       pack and unpack of the DIDComm v2 envelopes
	storage    encrypted bolt storage of the wallets
	utils      runtime settings and small helpers
	vdr        DID document resolution
	wallet     the identity holder: keys, DIDs and connections

A wallet is the local identity. The agent can host several of them behind the
same endpoint, the path tells which one the inbound message is for.
*/
package agent
