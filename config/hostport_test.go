package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostPortSet(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		wantAddr string
		wantPort int
		wantErr  bool
	}{
		{"missing address", ":27018", "localhost", 27018, false},
		{"missing port", "0.0.0.0", "0.0.0.0", 27017, false},
		{"fully specified", "10.0.0.5:1234", "10.0.0.5", 1234, false},
		{"invalid port", "localhost:notaport", "", 0, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := NewHostPort("localhost", 27017)
			err := h.Set(c.input)
			if c.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.wantAddr, h.Address)
			assert.Equal(t, c.wantPort, h.Port)
		})
	}
}

func TestAddrRendersHostColonPort(t *testing.T) {
	h := NewHostPort("localhost", 27017)
	assert.Equal(t, "localhost:27017", h.Addr())
}
