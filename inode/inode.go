// Package inode implements the fixed-capacity inode table: a contiguous
// in-memory array of fixed-layout records mirrored to the image's inode
// region, with lookup-by-path, create, rename, unlink, and block-append
// operations.
package inode

import (
	"bytes"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PeterWang133/Project2/blockdev"
	diskoerrors "github.com/PeterWang133/Project2/errors"
	"github.com/noxer/bytewriter"
)

const (
	// MaxFiles is the total number of inode records the table can hold.
	MaxFiles = 128
	// MaxBlocksPerFile is the number of direct block pointers an inode has.
	MaxBlocksPerFile = 128
	// PathFieldSize is the fixed width of the on-disk path buffer, including
	// its NUL terminator.
	PathFieldSize = 256

	// POSIX mode bits this engine cares about: file type and nothing else
	// is interpreted by the engine itself (permission bits pass through
	// unexamined, per the module's Non-goal of not enforcing permissions).
	ModeTypeMask = 0170000
	ModeDir      = 0040000
	ModeRegular  = 0100000
)

// Inode is the fixed-width on-disk record, identical in memory. Every field
// is a fixed-size value (no strings, slices, or pointers) so the whole
// struct can be marshaled with encoding/binary without padding surprises.
type Inode struct {
	Path       [PathFieldSize]byte
	Size       int64
	Blocks     [MaxBlocksPerFile]int32
	BlockCount int32
	Mode       uint32
	Atime      int64
	Mtime      int64
	Ctime      int64
}

// recordSize is the packed on-disk size of one Inode record.
var recordSize = binary.Size(Inode{})

// inodesPerBlock is the number of inode records that fit in one block.
var inodesPerBlock = blockdev.BlockSize / recordSize

// IsDir reports whether the inode's mode marks it as a directory.
func (n *Inode) IsDir() bool {
	return n.Mode&ModeTypeMask == ModeDir
}

// IsRegular reports whether the inode's mode marks it as a regular file.
func (n *Inode) IsRegular() bool {
	return n.Mode&ModeTypeMask == ModeRegular
}

// PathString returns the inode's path as a Go string, trimmed at the first
// NUL byte.
func (n *Inode) PathString() string {
	end := bytes.IndexByte(n.Path[:], 0)
	if end < 0 {
		end = len(n.Path)
	}
	return string(n.Path[:end])
}

func (n *Inode) setPath(path string) {
	for i := range n.Path {
		n.Path[i] = 0
	}
	if len(path) > PathFieldSize-1 {
		path = path[:PathFieldSize-1]
	}
	copy(n.Path[:], path)
}

// MarshalBinary packs the inode into its fixed-width on-disk form, using
// the host's native byte order.
func (n *Inode) MarshalBinary() ([]byte, error) {
	buf := make([]byte, recordSize)
	w := bytewriter.New(buf)
	if err := binary.Write(w, binary.NativeEndian, n); err != nil {
		return nil, diskoerrors.ErrIOFailed.WrapError(err)
	}
	return buf, nil
}

// UnmarshalBinary reads a fixed-width on-disk record into the inode.
func (n *Inode) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data[:recordSize])
	if err := binary.Read(r, binary.NativeEndian, n); err != nil {
		return diskoerrors.ErrIOFailed.WrapError(err)
	}
	return nil
}

// NormalizePath trims trailing slashes from path, leaving the root "/"
// alone.
func NormalizePath(path string) string {
	if path == "/" || path == "" {
		return "/"
	}
	trimmed := strings.TrimRight(path, "/")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}

// Table is the in-memory inode array mirrored to the image's inode region.
// It is written exclusively by the mutating methods below and is not safe
// for concurrent use, matching the engine's single-threaded dispatch model.
type Table struct {
	dev    *blockdev.Device
	inodes [MaxFiles]Inode
	count  int
}

// NewTable creates an empty table bound to dev. Callers must call Load (to
// pick up an existing image) or Create("/", ...) (for a brand new one)
// before using it.
func NewTable(dev *blockdev.Device) *Table {
	return &Table{dev: dev}
}

// Count returns the number of live inodes.
func (t *Table) Count() int {
	return t.count
}

// Live returns the live prefix of the inode array. The returned slice
// aliases the table's backing array; callers must not retain it across a
// mutating call.
func (t *Table) Live() []Inode {
	return t.inodes[:t.count]
}

// Load reads inode_count from the meta block, then reads that many inode
// records from the inode blocks into the in-memory array. The on-disk
// count is authoritative; remaining array slots are zeroed.
func (t *Table) Load() error {
	metaBlock, err := t.dev.BlockPtr(blockdev.InodeMetaBlock)
	if err != nil {
		return err
	}
	count := int(int32(binary.NativeEndian.Uint32(metaBlock[:4])))
	if count < 0 || count > MaxFiles {
		return diskoerrors.ErrIOFailed.WithMessage(
			fmt.Sprintf("corrupt inode count %d on disk", count))
	}

	t.inodes = [MaxFiles]Inode{}
	t.count = count

	read := 0
	blockNum := blockdev.FirstInodeBlock
	for read < t.count && blockNum <= blockdev.LastInodeBlock {
		n := t.count - read
		if n > inodesPerBlock {
			n = inodesPerBlock
		}

		block, err := t.dev.BlockPtr(blockNum)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			off := i * recordSize
			if err := t.inodes[read+i].UnmarshalBinary(block[off : off+recordSize]); err != nil {
				return err
			}
		}
		read += n
		blockNum++
	}

	log.Printf("inode: loaded %d inodes from disk", t.count)
	return nil
}

// Save writes the live inode array back to the image: inode_count into the
// meta block, then the live records packed sequentially into the inode
// blocks. A synchronous flush follows, giving crash consistency at the
// granularity of one completed mutation.
func (t *Table) Save() error {
	metaBlock, err := t.dev.BlockPtr(blockdev.InodeMetaBlock)
	if err != nil {
		return err
	}
	binary.NativeEndian.PutUint32(metaBlock[:4], uint32(t.count))

	written := 0
	blockNum := blockdev.FirstInodeBlock
	for written < t.count && blockNum <= blockdev.LastInodeBlock {
		n := t.count - written
		if n > inodesPerBlock {
			n = inodesPerBlock
		}

		block, err := t.dev.BlockPtr(blockNum)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			rec, err := t.inodes[written+i].MarshalBinary()
			if err != nil {
				return err
			}
			copy(block[i*recordSize:], rec)
		}
		written += n
		blockNum++
	}

	if err := t.dev.Flush(); err != nil {
		return err
	}
	log.Printf("inode: saved %d inodes to disk", t.count)
	return nil
}

// Lookup returns a pointer to the live inode at path, or ErrNotFound.
func (t *Table) Lookup(path string) (*Inode, error) {
	normalized := NormalizePath(path)
	for i := range t.inodes[:t.count] {
		if t.inodes[i].PathString() == normalized {
			return &t.inodes[i], nil
		}
	}
	return nil, diskoerrors.ErrNotFound.WithMessage(normalized)
}

// Create appends a new inode at path with the given mode. Fails with
// ErrTableFull if the table is already at MaxFiles. The path is truncated
// to PathFieldSize-1 bytes and NUL-terminated; size and block count start
// at zero and all three timestamps are set to now.
func (t *Table) Create(path string, mode uint32) (*Inode, error) {
	if t.count >= MaxFiles {
		return nil, diskoerrors.ErrTableFull.WithMessage(fmt.Sprintf("cannot create %q", path))
	}

	node := &t.inodes[t.count]
	*node = Inode{}
	node.setPath(NormalizePath(path))
	node.Mode = mode

	now := time.Now().Unix()
	node.Atime, node.Mtime, node.Ctime = now, now, now

	t.count++
	if err := t.Save(); err != nil {
		return nil, err
	}

	log.Printf("inode: created %q (mode %o)", node.PathString(), mode)
	return node, nil
}

// AddBlock allocates a new data block and appends it to node's block list.
// Fails with ErrNoSpaceOnDevice if node is already at MaxBlocksPerFile or
// the device has no free blocks.
func (t *Table) AddBlock(node *Inode) (int, error) {
	if node.BlockCount >= MaxBlocksPerFile {
		return 0, diskoerrors.ErrNoSpaceOnDevice.WithMessage("max blocks reached for inode")
	}

	idx, err := t.dev.AllocBlock()
	if err != nil {
		return 0, err
	}

	node.Blocks[node.BlockCount] = int32(idx)
	node.BlockCount++
	if err := t.Save(); err != nil {
		return 0, err
	}
	return idx, nil
}

// hasLiveChild reports whether any live inode's path is a direct or
// indirect child of dir, per the §4.5 containment rule restricted to "has
// any descendant at all" (full membership enumeration lives in namespace).
func (t *Table) hasLiveChild(dir string) bool {
	prefix := dir + "/"
	if dir == "/" {
		prefix = "/"
	}
	for i := range t.inodes[:t.count] {
		candidate := t.inodes[i].PathString()
		if candidate == dir {
			continue
		}
		if strings.HasPrefix(candidate, prefix) {
			return true
		}
	}
	return false
}

// Rename overwrites from's path field with to. Fails with ErrNotFound if
// from is absent, ErrExists if to is already present, ErrNameTooLong if to
// is too long to store. Renaming a directory that has any live descendant
// is refused with ErrNotSupported (see SPEC_FULL.md §9 for why this open
// question is resolved this way rather than rewriting every descendant).
func (t *Table) Rename(from, to string) error {
	normalizedFrom := NormalizePath(from)
	normalizedTo := NormalizePath(to)

	node, err := t.Lookup(normalizedFrom)
	if err != nil {
		return err
	}
	if _, err := t.Lookup(normalizedTo); err == nil {
		return diskoerrors.ErrExists.WithMessage(normalizedTo)
	}
	if len(normalizedTo) >= PathFieldSize {
		return diskoerrors.ErrNameTooLong.WithMessage(normalizedTo)
	}
	if node.IsDir() && t.hasLiveChild(normalizedFrom) {
		return diskoerrors.ErrNotSupported.WithMessage(
			fmt.Sprintf("rename of non-empty directory %q is not supported", normalizedFrom))
	}

	node.setPath(normalizedTo)
	now := time.Now().Unix()
	node.Mtime, node.Ctime = now, now

	if err := t.Save(); err != nil {
		return err
	}
	log.Printf("inode: rename(%s -> %s)", normalizedFrom, normalizedTo)
	return nil
}

// Unlink frees every block owned by node, then removes its slot from the
// table by shifting successors left by one, preserving the live prefix
// invariant. Directories cannot be unlinked (ErrIsADirectory).
func (t *Table) Unlink(node *Inode) error {
	if node.IsDir() {
		return diskoerrors.ErrIsADirectory.WithMessage(node.PathString())
	}

	for i := 0; i < int(node.BlockCount); i++ {
		if err := t.dev.FreeBlock(int(node.Blocks[i])); err != nil {
			if stderrors.Is(err, diskoerrors.ErrAlreadyFree) {
				log.Printf("inode: unlink: block %d already free", node.Blocks[i])
				continue
			}
			return err
		}
	}

	index := -1
	for i := 0; i < t.count; i++ {
		if &t.inodes[i] == node {
			index = i
			break
		}
	}
	if index < 0 {
		return diskoerrors.ErrNotFound.WithMessage("inode not present in table")
	}

	path := node.PathString()
	copy(t.inodes[index:t.count-1], t.inodes[index+1:t.count])
	t.inodes[t.count-1] = Inode{}
	t.count--

	if err := t.Save(); err != nil {
		return err
	}
	log.Printf("inode: unlink(%s)", path)
	return nil
}
