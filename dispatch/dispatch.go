// Package dispatch binds the engine's five components to a filesystem
// callback surface, translating the engine's typed errors into the
// negated-errno convention a kernel bridge expects. The Dispatcher type
// itself has no dependency on any specific FUSE library — see
// dispatch_fuse.go, built only under the "fuse" tag, for the adapter that
// wires it into a real one.
package dispatch

import (
	"log"

	diskoerrors "github.com/PeterWang133/Project2/errors"
	"github.com/PeterWang133/Project2/fileio"
	"github.com/PeterWang133/Project2/namespace"
	"github.com/PeterWang133/Project2/nufs"
)

// Dispatcher implements the nine-operation callback table from spec.md
// §6.2 directly as plain Go methods, each returning 0 on success or a
// negated syscall.Errno value on failure — the calling convention a FUSE
// bridge's C-style operations table expects.
type Dispatcher struct {
	fs *nufs.Filesystem
}

// New returns a Dispatcher bound to an already-mounted filesystem.
func New(fs *nufs.Filesystem) *Dispatcher {
	return &Dispatcher{fs: fs}
}

// errno converts err into the negated-errno return value dispatch methods
// use; nil becomes 0.
func errno(err error) int {
	if err == nil {
		return 0
	}
	return -int(diskoerrors.Errno(err))
}

// Access reports whether path exists, ignoring mask: the engine enforces
// no permission bits.
func (d *Dispatcher) Access(path string, mask uint32) int {
	return errno(namespace.Access(d.fs.Table, path, mask))
}

// Getattr fills stat for path, returning 0 on success.
func (d *Dispatcher) Getattr(path string) (*namespace.Stat, int) {
	stat, err := namespace.Getattr(d.fs.Table, path)
	return stat, errno(err)
}

// Readdir lists path's entries (".", "..", then direct children).
func (d *Dispatcher) Readdir(path string) ([]string, int) {
	entries, err := namespace.Readdir(d.fs.Table, path)
	return entries, errno(err)
}

// Mknod creates a regular file at path.
func (d *Dispatcher) Mknod(path string, mode uint32) int {
	_, err := namespace.Mknod(d.fs.Table, path, mode)
	if err != nil {
		return errno(err)
	}
	log.Printf("dispatch: mknod(%s, %o)", path, mode)
	return 0
}

// Mkdir creates a directory at path.
func (d *Dispatcher) Mkdir(path string, mode uint32) int {
	_, err := namespace.Mkdir(d.fs.Table, path, mode)
	if err != nil {
		return errno(err)
	}
	log.Printf("dispatch: mkdir(%s, %o)", path, mode)
	return 0
}

// Unlink removes the regular file at path.
func (d *Dispatcher) Unlink(path string) int {
	node, err := d.fs.Table.Lookup(path)
	if err != nil {
		return errno(err)
	}
	if err := d.fs.Table.Unlink(node); err != nil {
		return errno(err)
	}
	log.Printf("dispatch: unlink(%s)", path)
	return 0
}

// Rename moves the inode at from to to.
func (d *Dispatcher) Rename(from, to string) int {
	if err := d.fs.Table.Rename(from, to); err != nil {
		return errno(err)
	}
	log.Printf("dispatch: rename(%s -> %s)", from, to)
	return 0
}

// Read copies up to len(buf) bytes from path at offset into buf, returning
// the byte count actually copied alongside the status code.
func (d *Dispatcher) Read(path string, buf []byte, offset int64) (int, int) {
	n, err := fileio.Read(d.fs.Device, d.fs.Table, path, buf, offset)
	if err != nil && n == 0 {
		return 0, errno(err)
	}
	return n, 0
}

// Write copies len(buf) bytes into path's data blocks at offset, returning
// the byte count actually written alongside the status code. A short
// write (fewer bytes than requested but more than zero) is reported as
// success with the partial count, per spec.md §7's propagation rule.
func (d *Dispatcher) Write(path string, buf []byte, offset int64) (int, int) {
	n, err := fileio.Write(d.fs.Device, d.fs.Table, path, buf, offset)
	if err != nil && n == 0 {
		return 0, errno(err)
	}
	return n, 0
}
