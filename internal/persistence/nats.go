package persistence

import (
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/spec-kit/dispatch-service/internal/config"
)

// NATS wraps the broadcast connection.
type NATS struct {
	Conn *nats.Conn
}

// NewNATS connects when a URL is provided; broadcasting degrades to logs
// otherwise.
func NewNATS(cfg config.NATSConfig, logger *zap.Logger) (*NATS, error) {
	if cfg.URL == "" {
		logger.Warn("NATS_URL not provided; skipping broadcast connection")
		return &NATS{}, nil
	}
	conn, err := nats.Connect(cfg.URL, nats.Name(cfg.Name))
	if err != nil {
		return nil, err
	}
	logger.Info("connected to nats", zap.String("url", cfg.URL))
	return &NATS{Conn: conn}, nil
}

// Close drains and closes the connection.
func (n *NATS) Close() {
	if n != nil && n.Conn != nil {
		n.Conn.Close()
	}
}

// ConnHandle returns the underlying connection, possibly nil.
func (n *NATS) ConnHandle() *nats.Conn {
	if n == nil {
		return nil
	}
	return n.Conn
}
