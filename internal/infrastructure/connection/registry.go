package connection

import (
	"errors"
	"fmt"
	"sort"

	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
	pkgConfig "github.com/wekeepgrowing/stripe-cpq-connector/pkg/config"
	"go.uber.org/zap"
)

// ErrUnknownConnection is returned by Get for ids not present in the registry
var ErrUnknownConnection = errors.New("unknown connection")

// ErrNoConnections is returned by Load when the file has no connections section
var ErrNoConnections = errors.New("no connections configured")

// Registry holds the validated connection settings keyed by id
type Registry struct {
	connections map[string]*entity.Connection
}

// Load reads connector.yaml through the layered config loader. When path is
// set it is read directly instead. defaults.currency applies to connections
// that set no currency.
func Load(path string, logger *zap.Logger) (*Registry, error) {
	var (
		cfg pkgConfig.Config
		err error
	)
	if path != "" {
		cfg, err = pkgConfig.LoadFile("connector", path)
	} else {
		cfg, err = pkgConfig.Load("connector")
	}
	if err != nil {
		return nil, err
	}

	if !cfg.IsSet("connections") {
		return nil, ErrNoConnections
	}

	var connections []entity.Connection
	if err := cfg.UnmarshalKey("connections", &connections); err != nil {
		return nil, fmt.Errorf("failed to decode connections: %w", err)
	}
	if currency := cfg.GetString("defaults.currency"); currency != "" {
		for i := range connections {
			if connections[i].Currency == "" {
				connections[i].Currency = currency
			}
		}
	}

	registry, err := NewRegistry(connections)
	if err != nil {
		return nil, err
	}

	logger.Info("Connections loaded", zap.Strings("connections", registry.IDs()))
	return registry, nil
}

// NewRegistry validates every connection and rejects duplicate ids
func NewRegistry(connections []entity.Connection) (*Registry, error) {
	r := &Registry{connections: make(map[string]*entity.Connection, len(connections))}
	for i := range connections {
		conn := connections[i]
		if err := conn.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.connections[conn.ID]; exists {
			return nil, fmt.Errorf("duplicate connection id %s", conn.ID)
		}
		r.connections[conn.ID] = &conn
	}
	return r, nil
}

// Get returns the connection with the given id
func (r *Registry) Get(id string) (*entity.Connection, error) {
	conn, ok := r.connections[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownConnection, id)
	}
	return conn, nil
}

// IDs returns the sorted connection ids
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.connections))
	for id := range r.connections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
