package transfer

import (
	"datagram-arq/protocol"
	"datagram-arq/transport"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultFragmentSize          = 1024
	defaultHandshakeTimeout      = 5 * time.Second
	defaultTransferTimeout       = 60 * time.Second
	defaultHeartbeatInterval     = 10 * time.Second
	defaultHeartbeatReplyTimeout = 3 * time.Second
	defaultDataTimeout           = 3 * time.Second
	defaultPaceEvery             = 3
	defaultPaceDelay             = 50 * time.Microsecond
	defaultQueueBacklog          = 256

	// The heartbeat pauses this much less than the interval between beats
	// so the peer hears from us before its own liveness timeout fires.
	heartbeatSlack = 2 * time.Second
)

// RetryFunc decides whether to resend INIT after the nth handshake timeout.
type RetryFunc func(attempt int) bool

// RetryN retries the handshake up to n times.
func RetryN(n int) RetryFunc {
	return func(attempt int) bool {
		return attempt <= n
	}
}

type Config struct {
	// Fragment size used when a request does not set one
	FragmentSize int

	// Client: wait for ACK_INIT before asking Retry
	HandshakeTimeout time.Duration
	// Client: control-plane silence after which a transfer fails
	TransferTimeout time.Duration
	// Client: consulted on every handshake timeout, nil aborts on the first one
	Retry RetryFunc

	// Server: wait for INIT before giving up on a client.
	// Client: period of the keep-alive heartbeat.
	HeartbeatInterval time.Duration
	// Client: wait for a keep-alive reply before declaring the peer dead
	HeartbeatReplyTimeout time.Duration
	// Client: pause between keep-alive beats, derived from HeartbeatInterval if zero
	HeartbeatPause time.Duration

	// Server: silence during the data phase after which missing fragments are requested
	DataTimeout time.Duration

	// Sender pauses for PaceDelay after every PaceEvery fragments
	PaceEvery int
	PaceDelay time.Duration
	// Extra room in the pending queue for retransmissions
	QueueBacklog int

	Transport transport.Config

	// Optional logger, defaults to the package logger
	Logger *logrus.Logger
}

func DefaultConfig() Config {
	return Config{
		FragmentSize:          defaultFragmentSize,
		HandshakeTimeout:      defaultHandshakeTimeout,
		TransferTimeout:       defaultTransferTimeout,
		HeartbeatInterval:     defaultHeartbeatInterval,
		HeartbeatReplyTimeout: defaultHeartbeatReplyTimeout,
		DataTimeout:           defaultDataTimeout,
		PaceEvery:             defaultPaceEvery,
		PaceDelay:             defaultPaceDelay,
		QueueBacklog:          defaultQueueBacklog,
		Transport:             transport.DefaultConfig(),
		Logger:                log,
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.FragmentSize < protocol.MinFragmentSize || cfg.FragmentSize > protocol.MaxFragmentSize {
		cfg.FragmentSize = defaultFragmentSize
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.TransferTimeout <= 0 {
		cfg.TransferTimeout = defaultTransferTimeout
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	if cfg.HeartbeatReplyTimeout <= 0 {
		cfg.HeartbeatReplyTimeout = defaultHeartbeatReplyTimeout
	}
	if cfg.HeartbeatPause <= 0 {
		cfg.HeartbeatPause = cfg.HeartbeatInterval - heartbeatSlack
		if cfg.HeartbeatPause <= 0 {
			cfg.HeartbeatPause = cfg.HeartbeatInterval / 2
		}
	}
	if cfg.DataTimeout <= 0 {
		cfg.DataTimeout = defaultDataTimeout
	}
	if cfg.PaceEvery < 0 {
		cfg.PaceEvery = 0
	}
	if cfg.PaceDelay < 0 {
		cfg.PaceDelay = 0
	}
	if cfg.QueueBacklog < 1 {
		cfg.QueueBacklog = defaultQueueBacklog
	}
	if cfg.Logger == nil {
		cfg.Logger = log
	}
	return cfg
}
