package transport_test

import (
	"testing"

	"github.com/corsair-io/corsair/transport"
	"github.com/stretchr/testify/assert"
)

func TestNewServerTLSConfig_RejectsMissingMaterial(t *testing.T) {
	_, err := transport.NewServerTLSConfig(transport.ServerTLSConfig{})
	assert.ErrorIs(t, err, transport.ErrInvalidTLSMaterial)
}

func TestNewServerTLSConfig_RejectsMalformedPEM(t *testing.T) {
	_, err := transport.NewServerTLSConfig(transport.ServerTLSConfig{
		CertPEM: []byte("not a cert"),
		KeyPEM:  []byte("not a key"),
	})
	assert.ErrorIs(t, err, transport.ErrInvalidTLSMaterial)
}

func TestNewClientTLSConfig_DefaultsToSystemPool(t *testing.T) {
	cfg, err := transport.NewClientTLSConfig(transport.ClientTLSConfig{})
	assert.NoError(t, err)
	assert.Nil(t, cfg.RootCAs)
}

func TestNewClientTLSConfig_RejectsMalformedPEM(t *testing.T) {
	_, err := transport.NewClientTLSConfig(transport.ClientTLSConfig{CARootsPEM: []byte("garbage")})
	assert.ErrorIs(t, err, transport.ErrInvalidTLSMaterial)
}
