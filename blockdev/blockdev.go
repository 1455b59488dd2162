// Package blockdev memory-maps a fixed-size disk image file and exposes it
// as N fixed-size blocks of B bytes, with a bitmap-backed allocator for the
// data region. This is the only component in the module that touches the
// file system or the mmap syscall directly; everything above it works in
// terms of block indices and byte slices.
package blockdev

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/sys/unix"

	"github.com/PeterWang133/Project2/bitmap"
	diskoerrors "github.com/PeterWang133/Project2/errors"
	"github.com/hashicorp/go-multierror"
)

const (
	// BlockCount is N, the total number of fixed-size blocks in the image.
	BlockCount = 256
	// BlockSize is B, the size in bytes of a single block.
	BlockSize = 4096
	// ImageSize is the exact required size of the backing image file.
	ImageSize = BlockCount * BlockSize

	// bitmapBlock holds both allocation bitmaps.
	bitmapBlock = 0
	// dataBitmapBytes is ceil(BlockCount/8), the size of each bitmap region.
	dataBitmapBytes = (BlockCount + 7) / 8

	// InodeMetaBlock stores the live inode count.
	InodeMetaBlock = 1
	// FirstInodeBlock and LastInodeBlock bound the packed inode records.
	FirstInodeBlock = 2
	LastInodeBlock  = 27

	// FirstDataBlock is the lowest block index the allocator will ever hand
	// out; everything below it is reserved by the fixed layout.
	FirstDataBlock = 28
)

// Device is the memory-mapped backing store for the filesystem image. It is
// not safe for concurrent use: the engine built on top of it assumes one
// callback runs to completion before the next begins (see the module's
// single-threaded dispatch model).
type Device struct {
	file *os.File
	data []byte
}

// Open opens (creating if absent) the image file at path, ensures it is
// exactly ImageSize bytes, and memory-maps it read/write. If the file was
// freshly created, block 0's bit is set in the data-block bitmap, since
// block 0 is never a free data block.
func Open(path string) (*Device, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, diskoerrors.ErrIOFailed.WrapError(err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, diskoerrors.ErrIOFailed.WrapError(err)
	}
	freshImage := info.Size() == 0

	if info.Size() != ImageSize {
		if err := file.Truncate(ImageSize); err != nil {
			file.Close()
			return nil, diskoerrors.ErrIOFailed.WrapError(err)
		}
	}

	data, err := unix.Mmap(int(file.Fd()), 0, ImageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, diskoerrors.ErrIOFailed.WrapError(err)
	}

	dev := &Device{file: file, data: data}
	if freshImage {
		bitmap.Wrap(dev.dataBitmap()).Put(0, 1)
	}

	log.Printf("blockdev: opened %q (%d blocks of %d bytes)", path, BlockCount, BlockSize)
	return dev, nil
}

// Close unmaps the image and closes the file descriptor. Both steps run
// regardless of whether the other fails, and any errors from either are
// combined rather than one silently hiding the other. Close is idempotent.
func (dev *Device) Close() error {
	var result *multierror.Error

	if dev.data != nil {
		if err := unix.Munmap(dev.data); err != nil {
			result = multierror.Append(result, diskoerrors.ErrIOFailed.WrapError(err))
		}
		dev.data = nil
	}
	if dev.file != nil {
		if err := dev.file.Close(); err != nil {
			result = multierror.Append(result, diskoerrors.ErrIOFailed.WrapError(err))
		}
		dev.file = nil
	}

	return result.ErrorOrNil()
}

// Flush issues a synchronous page flush against the entire mapped region.
func (dev *Device) Flush() error {
	if err := unix.Msync(dev.data, unix.MS_SYNC); err != nil {
		return diskoerrors.ErrIOFailed.WrapError(err)
	}
	return nil
}

// BlockPtr returns the B-byte region backing block b. The returned slice
// aliases the memory map directly; writes to it are writes to the image.
func (dev *Device) BlockPtr(b int) ([]byte, error) {
	if b < 0 || b >= BlockCount {
		return nil, diskoerrors.ErrIOFailed.WithMessage(
			fmt.Sprintf("block %d not in range [0, %d)", b, BlockCount))
	}
	start := b * BlockSize
	return dev.data[start : start+BlockSize], nil
}

// dataBitmap returns the data-block allocation bitmap, the first
// dataBitmapBytes bytes of block 0.
func (dev *Device) dataBitmap() []byte {
	block, _ := dev.BlockPtr(bitmapBlock)
	return block[:dataBitmapBytes]
}

// InodeBitmap returns the reserved-but-unused inode bitmap region, the next
// dataBitmapBytes bytes of block 0 after the data-block bitmap. Nothing in
// this engine allocates inode slots through it (the live prefix of the
// inode table does that job), but the region is named and left untouched so
// the on-disk layout matches the documented format byte for byte.
func (dev *Device) InodeBitmap() []byte {
	block, _ := dev.BlockPtr(bitmapBlock)
	return block[dataBitmapBytes : 2*dataBitmapBytes]
}

// BytesToBlocks returns ceil(n / BlockSize).
func BytesToBlocks(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + BlockSize - 1) / BlockSize
}

// AllocBlock scans the data-block bitmap in ascending order for the
// lowest-indexed free block at or above FirstDataBlock, marks it allocated,
// zeroes its contents, and returns its index.
func (dev *Device) AllocBlock() (int, error) {
	bm := bitmap.Wrap(dev.dataBitmap())
	for i := FirstDataBlock; i < BlockCount; i++ {
		if bm.Get(i) == 0 {
			bm.Put(i, 1)
			block, err := dev.BlockPtr(i)
			if err != nil {
				return 0, err
			}
			for j := range block {
				block[j] = 0
			}
			log.Printf("blockdev: alloc_block() -> %d", i)
			return i, nil
		}
	}
	return 0, diskoerrors.ErrNoSpaceOnDevice.WithMessage("no free data blocks")
}

// FreeBlock clears b's bit in the data-block bitmap and zeroes its content.
// Freeing a block that is already free returns ErrAlreadyFree; callers
// should treat this as non-fatal and continue.
func (dev *Device) FreeBlock(b int) error {
	if b < FirstDataBlock || b >= BlockCount {
		return diskoerrors.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("block %d not in range [%d, %d)", b, FirstDataBlock, BlockCount))
	}

	bm := bitmap.Wrap(dev.dataBitmap())
	if bm.Get(b) == 0 {
		return diskoerrors.ErrAlreadyFree.WithMessage(fmt.Sprintf("block %d is already free", b))
	}

	bm.Put(b, 0)
	block, err := dev.BlockPtr(b)
	if err != nil {
		return err
	}
	for j := range block {
		block[j] = 0
	}
	log.Printf("blockdev: free_block(%d)", b)
	return nil
}
