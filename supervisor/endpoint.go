// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"fmt"
	"net"
	"strconv"
)

// Endpoint is the loopback address the bridge listens on.
type Endpoint struct {
	Host string
	Port int
}

// DefaultEndpoint is 127.0.0.1:27017, the address the translated
// document URL reaches with its default port.
var DefaultEndpoint = Endpoint{Host: "127.0.0.1", Port: 27017}

// Address returns host:port.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ParseEndpoint parses host:port and requires the host to be a loopback
// IP literal. The bridge authenticates with plaintext credentials, so
// it must never listen beyond loopback.
func ParseEndpoint(address string) (Endpoint, error) {
	host, portString, err := net.SplitHostPort(address)
	if err != nil {
		return Endpoint{}, fmt.Errorf("supervisor: parsing bridge address %q: %w", address, err)
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return Endpoint{}, fmt.Errorf("supervisor: bridge address %q is not a loopback IP", address)
	}
	port, err := strconv.Atoi(portString)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("supervisor: bridge address %q has invalid port", address)
	}
	return Endpoint{Host: host, Port: port}, nil
}
