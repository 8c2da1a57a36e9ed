// Package pltype has the protocol URIs and message types the agent speaks.
package pltype

// DIDComm protocol family base.
const DIDCommOrg = "https://didcomm.org"

// Protocol URIs
const (
	ProtocolTrustPingV1       = DIDCommOrg + "/trust_ping/1.0"
	ProtocolTrustPingV2       = DIDCommOrg + "/trust-ping/2.0"
	ProtocolBasicMessageV1    = DIDCommOrg + "/basicmessage/1.0"
	ProtocolBasicMessageV2    = DIDCommOrg + "/basicmessage/2.0"
	ProtocolOutOfBandV1       = DIDCommOrg + "/out-of-band/1.1"
	ProtocolOutOfBandV2       = DIDCommOrg + "/out-of-band/2.0"
	ProtocolReportProblemV2   = DIDCommOrg + "/report-problem/2.0"
	ProtocolNotificationV1    = DIDCommOrg + "/notification/1.0"
	ProtocolRoutingV2         = DIDCommOrg + "/routing/2.0"
	ProtocolIssueCredentialV3 = DIDCommOrg + "/issue-credential/3.0"
	ProtocolPresentProofV3    = DIDCommOrg + "/present_proof/3.0"
)

// Trust ping
const (
	TrustPingV1         = ProtocolTrustPingV1 + "/ping"
	TrustPingResponseV1 = ProtocolTrustPingV1 + "/ping_response"
	TrustPingV2         = ProtocolTrustPingV2 + "/ping"
	TrustPingResponseV2 = ProtocolTrustPingV2 + "/ping-response"
)

// Basic message
const (
	BasicMessageV1 = ProtocolBasicMessageV1 + "/message"
	BasicMessageV2 = ProtocolBasicMessageV2 + "/message"
)

// Out-of-band
const (
	OutOfBandInvitationV1 = ProtocolOutOfBandV1 + "/invitation"
	OutOfBandInvitationV2 = ProtocolOutOfBandV2 + "/invitation"
)

// Report problem and routing
const (
	ProblemReport   = ProtocolReportProblemV2 + "/problem-report"
	ProblemReportV1 = ProtocolNotificationV1 + "/problem-report"
	RoutingForward  = ProtocolRoutingV2 + "/forward"
)

// Issue credential 3.0
const (
	IssueCredentialPropose = ProtocolIssueCredentialV3 + "/propose-credential"
	IssueCredentialOffer   = ProtocolIssueCredentialV3 + "/offer-credential"
	IssueCredentialRequest = ProtocolIssueCredentialV3 + "/request-credential"
	IssueCredentialIssue   = ProtocolIssueCredentialV3 + "/issue-credential"
	IssueCredentialAck     = ProtocolIssueCredentialV3 + "/ack"
)

// Present proof 3.0
const (
	PresentProofPropose      = ProtocolPresentProofV3 + "/propose-presentation"
	PresentProofRequest      = ProtocolPresentProofV3 + "/request-presentation"
	PresentProofPresentation = ProtocolPresentProofV3 + "/presentation"
	PresentProofAck          = ProtocolPresentProofV3 + "/ack"
)

// IsInvitation tells if the message type is some out-of-band invitation.
func IsInvitation(msgType string) bool {
	return msgType == OutOfBandInvitationV1 || msgType == OutOfBandInvitationV2
}
