//go:build !unix

package multicast

import "syscall"

func reuseAddr(network, address string, c syscall.RawConn) error {
	return nil
}
