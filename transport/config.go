package transport

const (
	defaultReadBufferSize = 65535
	defaultReadBacklog    = 1024
	defaultWriteBacklog   = 1024

	minReadBufferSize = 512
	minBacklog        = 1
)

type Config struct {
	// Size of the datagram receive buffer
	ReadBufferSize int
	// Frames queued per subscriber before newer ones are dropped
	ReadBacklog int
	// Outbound frames queued for the write routine
	WriteBacklog int
	// IPv4 time-to-live for outbound datagrams, zero keeps the system default.
	// Only applied when the socket is an IPv4 UDP socket.
	TTL int
}

func DefaultConfig() Config {
	return Config{
		ReadBufferSize: defaultReadBufferSize,
		ReadBacklog:    defaultReadBacklog,
		WriteBacklog:   defaultWriteBacklog,
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.ReadBufferSize < minReadBufferSize {
		cfg.ReadBufferSize = minReadBufferSize
	}
	if cfg.ReadBacklog < minBacklog {
		cfg.ReadBacklog = minBacklog
	}
	if cfg.WriteBacklog < minBacklog {
		cfg.WriteBacklog = minBacklog
	}
	if cfg.TTL < 0 || cfg.TTL > 255 {
		cfg.TTL = 0
	}
	return cfg
}
