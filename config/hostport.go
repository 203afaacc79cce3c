package config

import (
	"fmt"
	"strconv"
	"strings"
)

// HostPort is an ADDRESS:PORT pair with per-field defaults, matching the
// honeypot prototype's parse_host: a missing address falls back to the
// default address, a missing port to the default port. It implements
// pflag.Value so it can be registered directly as a cobra flag.
type HostPort struct {
	Address    string
	Port       int
	defAddress string
	defPort    int
}

// NewHostPort builds a HostPort flag value pre-seeded with its defaults, so
// an unset flag still resolves to something usable.
func NewHostPort(defAddress string, defPort int) *HostPort {
	return &HostPort{
		Address:    defAddress,
		Port:       defPort,
		defAddress: defAddress,
		defPort:    defPort,
	}
}

// String renders the value as ADDRESS:PORT, satisfying pflag.Value.
func (h *HostPort) String() string {
	if h == nil || h.Address == "" {
		return fmt.Sprintf("%s:%d", h.defAddress, h.defPort)
	}
	return fmt.Sprintf("%s:%d", h.Address, h.Port)
}

// Set parses "ADDRESS:PORT" where either half may be empty, satisfying
// pflag.Value.
func (h *HostPort) Set(s string) error {
	address, sep, portStr := strings.Cut(s, ":")
	if !sep {
		portStr = ""
	}

	if address == "" {
		address = h.defAddress
	}

	port := h.defPort
	if portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("config: invalid port %q: %w", portStr, err)
		}
		port = p
	}

	h.Address = address
	h.Port = port
	return nil
}

// Type satisfies pflag.Value, naming the flag's value kind in --help output.
func (h *HostPort) Type() string { return "ADDRESS:PORT" }

// Addr renders the pair as a net.Dial-compatible "host:port" string.
func (h *HostPort) Addr() string {
	return fmt.Sprintf("%s:%d", h.Address, h.Port)
}
