// Package nufs ties the block device and inode table together into a
// single mountable filesystem handle, matching the lifecycle of the
// original engine's storage_init/blocks_free pair: open or create the
// image, load whatever inodes are already on it, bootstrap a root
// directory if none exists, and release both resources together on
// unmount.
package nufs

import (
	"log"

	"github.com/PeterWang133/Project2/blockdev"
	"github.com/PeterWang133/Project2/inode"
)

// Filesystem is the mounted engine: a block device and the inode table
// mirrored to it. It is not safe for concurrent use from multiple
// goroutines — the engine assumes one dispatch callback runs to
// completion before the next begins (see the module's single-threaded
// dispatch model).
type Filesystem struct {
	Device *blockdev.Device
	Table  *inode.Table
}

// Mount opens (creating if absent) the image file at path, loads its
// inode table, and ensures a root directory inode exists. This mirrors
// storage_init: blocks_init + load_inodes + a root bootstrap if the image
// was empty.
func Mount(path string) (*Filesystem, error) {
	dev, err := blockdev.Open(path)
	if err != nil {
		return nil, err
	}

	table := inode.NewTable(dev)
	if err := table.Load(); err != nil {
		dev.Close()
		return nil, err
	}

	if _, err := table.Lookup("/"); err != nil {
		if _, err := table.Create("/", inode.ModeDir|0755); err != nil {
			dev.Close()
			return nil, err
		}
	}

	log.Printf("nufs: mounted %q", path)
	return &Filesystem{Device: dev, Table: table}, nil
}

// Unmount releases the underlying block device. Because the block device's
// own Close is idempotent, calling Unmount again after it has succeeded
// releases nothing further and returns nil.
func (fs *Filesystem) Unmount() error {
	log.Printf("nufs: unmounting")
	return fs.Device.Close()
}
