// Package fileio implements the block-indirect read and write algorithms:
// segmenting a byte range into block-aligned chunks against an inode's
// block list, allocating new blocks on demand for writes, and stopping
// short at end-of-file for reads.
package fileio

import (
	"time"

	"github.com/PeterWang133/Project2/blockdev"
	diskoerrors "github.com/PeterWang133/Project2/errors"
	"github.com/PeterWang133/Project2/inode"
)

// lookupRegular resolves path to a regular-file inode, failing IS_DIR for
// directories the same way spec.md's Read/Write entry points do.
func lookupRegular(table *inode.Table, path string) (*inode.Inode, error) {
	node, err := table.Lookup(path)
	if err != nil {
		return nil, err
	}
	if node.IsDir() {
		return nil, diskoerrors.ErrIsADirectory.WithMessage(path)
	}
	return node, nil
}

// Write copies len(buf) bytes from buf into path's data blocks starting at
// offset, allocating new blocks as needed, and returns the number of bytes
// actually written. A short write (fewer bytes than len(buf)) is returned
// without error when allocation runs out of space partway through; an
// allocation failure before any byte is written returns ErrNoSpaceOnDevice.
func Write(dev *blockdev.Device, table *inode.Table, path string, buf []byte, offset int64) (int, error) {
	node, err := lookupRegular(table, path)
	if err != nil {
		return 0, err
	}

	written := 0
	size := len(buf)
	for written < size {
		blockIndex := int((offset + int64(written)) / blockdev.BlockSize)
		blockOffset := int((offset + int64(written)) % blockdev.BlockSize)
		chunk := blockdev.BlockSize - blockOffset
		if remaining := size - written; chunk > remaining {
			chunk = remaining
		}

		if blockIndex >= int(node.BlockCount) {
			if _, err := table.AddBlock(node); err != nil {
				if written > 0 {
					return written, nil
				}
				return 0, err
			}
		}

		block, err := dev.BlockPtr(int(node.Blocks[blockIndex]))
		if err != nil {
			return written, err
		}
		copy(block[blockOffset:blockOffset+chunk], buf[written:written+chunk])
		written += chunk
	}

	if offset+int64(written) > node.Size {
		node.Size = offset + int64(written)
	}
	now := time.Now().Unix()
	node.Mtime, node.Ctime = now, now
	if err := table.Save(); err != nil {
		return written, err
	}
	return written, nil
}

// Read copies up to len(buf) bytes from path's data blocks starting at
// offset into buf, returning the number of bytes actually copied. Reading
// at or past end-of-file returns 0 with no error. A short read (fewer
// bytes than requested despite offset+want <= size) indicates the file's
// recorded block_count does not cover its recorded size, reachable only
// if the image is corrupt.
func Read(dev *blockdev.Device, table *inode.Table, path string, buf []byte, offset int64) (int, error) {
	node, err := lookupRegular(table, path)
	if err != nil {
		return 0, err
	}

	if offset >= node.Size {
		return 0, nil
	}
	want := len(buf)
	if avail := int(node.Size - offset); want > avail {
		want = avail
	}

	read := 0
	for read < want {
		blockIndex := int((offset + int64(read)) / blockdev.BlockSize)
		blockOffset := int((offset + int64(read)) % blockdev.BlockSize)
		chunk := blockdev.BlockSize - blockOffset
		if remaining := want - read; chunk > remaining {
			chunk = remaining
		}

		if blockIndex >= int(node.BlockCount) {
			break
		}

		block, err := dev.BlockPtr(int(node.Blocks[blockIndex]))
		if err != nil {
			return read, err
		}
		copy(buf[read:read+chunk], block[blockOffset:blockOffset+chunk])
		read += chunk
	}

	node.Atime = time.Now().Unix()
	if err := table.Save(); err != nil {
		return read, err
	}
	return read, nil
}
