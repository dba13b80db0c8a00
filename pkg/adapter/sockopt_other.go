//go:build !unix

package adapter

import "syscall"

// reuseAddr is a no-op on platforms without SO_REUSEADDR semantics.
func reuseAddr(network, address string, c syscall.RawConn) error {
	return nil
}
