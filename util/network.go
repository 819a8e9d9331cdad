package util

import (
	"fmt"
	"net"
	"strconv"
)

// JoinHostService builds a dialable "host:service" string, bracketing
// IPv6 literals.  The service part may be numeric ("15000") or a named
// service ("https"); both pass through untouched.
func JoinHostService(host, service string) string {
	return net.JoinHostPort(host, service)
}

// FormatAddr returns "host:port" for a numeric port.
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// IsNumericService reports whether service parses as a plain port
// number in the valid range.
func IsNumericService(service string) bool {
	n, err := strconv.Atoi(service)
	return err == nil && n > 0 && n < 65536
}

// FindFreePort returns an available TCP port on 127.0.0.1.
func FindFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
