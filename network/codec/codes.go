package codec

import (
	"github.com/riffcc/pact/model/messages"
)

// Message codes are the one-byte envelope prefix identifying the payload
// type of a datagram.
const (
	CodeMin uint8 = iota + 1

	// bilateral ladder
	CodeCommitment
	CodeDoubleProof
	CodeTripleProof
	CodeReceiptHalf

	// threshold rounds
	CodeProposal
	CodeShare
	CodeCommit

	CodeMax
)

// MessageCodeFromInterface returns the code and canonical name for the
// underlying type of message v.
func MessageCodeFromInterface(v interface{}) (uint8, string, error) {
	switch v.(type) {
	case *messages.Commitment:
		return CodeCommitment, "messages.Commitment", nil
	case *messages.DoubleProof:
		return CodeDoubleProof, "messages.DoubleProof", nil
	case *messages.TripleProof:
		return CodeTripleProof, "messages.TripleProof", nil
	case *messages.ReceiptHalf:
		return CodeReceiptHalf, "messages.ReceiptHalf", nil
	case *messages.Proposal:
		return CodeProposal, "messages.Proposal", nil
	case *messages.Share:
		return CodeShare, "messages.Share", nil
	case *messages.Commit:
		return CodeCommit, "messages.Commit", nil
	default:
		return 0, "", NewUnknownMsgTypeErr(v)
	}
}

// InterfaceFromMessageCode returns a zero value of the message type the
// given code maps to, ready to be decoded into.
func InterfaceFromMessageCode(code uint8) (interface{}, string, error) {
	switch code {
	case CodeCommitment:
		return &messages.Commitment{}, "messages.Commitment", nil
	case CodeDoubleProof:
		return &messages.DoubleProof{}, "messages.DoubleProof", nil
	case CodeTripleProof:
		return &messages.TripleProof{}, "messages.TripleProof", nil
	case CodeReceiptHalf:
		return &messages.ReceiptHalf{}, "messages.ReceiptHalf", nil
	case CodeProposal:
		return &messages.Proposal{}, "messages.Proposal", nil
	case CodeShare:
		return &messages.Share{}, "messages.Share", nil
	case CodeCommit:
		return &messages.Commit{}, "messages.Commit", nil
	default:
		return nil, "", NewUnknownMsgCodeErr(code)
	}
}
