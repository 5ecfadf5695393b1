package transfer

import (
	"errors"
)

var (
	// No ACK_INIT arrived within the handshake timeout
	ErrHandshakeTimeout = errors.New("handshake timeout")
	// The caller declined to retry the handshake
	ErrAborted = errors.New("transfer aborted")
	// The server went silent for the whole transfer timeout
	ErrTransferTimeout = errors.New("transfer timeout")
	// Nothing arrived within one heartbeat interval while waiting for INIT
	ErrNoClient = errors.New("no client")
	// A DATA frame failed its CRC32 check; recovered with RETRANSMIT_ONE
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// Fragments did not arrive in time; recovered with RETRANSMIT_MANY
	ErrFragmentLoss = errors.New("fragment loss")
	// The peer stopped answering keep-alives
	ErrHeartbeatFailure = errors.New("heartbeat failure")
)

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTimeout
	OutcomeAborted
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeAborted:
		return "aborted"
	}
	return "failed"
}

// OutcomeOf classifies the error returned by Client.Send.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrTransferTimeout):
		return OutcomeTimeout
	case errors.Is(err, ErrAborted):
		return OutcomeAborted
	}
	return OutcomeFailed
}
