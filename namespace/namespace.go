// Package namespace derives directory membership from the path strings
// stored in inodes — there are no on-disk directory entries — and
// implements the operations layered directly on top of that: listing,
// attribute lookup, existence checks, and node creation.
package namespace

import (
	"path"
	"strings"

	"github.com/PeterWang133/Project2/blockdev"
	diskoerrors "github.com/PeterWang133/Project2/errors"
	"github.com/PeterWang133/Project2/inode"
)

// Stat mirrors the fields a caller's stat-like record needs filled in by
// Getattr; it carries no behavior of its own.
type Stat struct {
	Mode    uint32
	Size    int64
	Nlink   uint32
	Blocks  int64
	Blksize int64
	Atime   int64
	Mtime   int64
	Ctime   int64
}

// IsDirectChild reports whether p is a direct child of directory path d,
// per the containment rule: p must be prefixed by d (with "/" joined in
// unless d is already the root), and the remainder after that prefix must
// be non-empty and contain no further path separator.
func IsDirectChild(d, p string) bool {
	d = inode.NormalizePath(d)
	p = inode.NormalizePath(p)

	var prefix string
	if d == "/" {
		prefix = "/"
	} else {
		prefix = d + "/"
	}

	if !strings.HasPrefix(p, prefix) {
		return false
	}
	remainder := p[len(prefix):]
	return remainder != "" && !strings.Contains(remainder, "/")
}

// Readdir lists "." and ".." followed by the leaf name of every live inode
// that is a direct child of path. Fails NOT_FOUND if path has no inode,
// NOT_DIR if it is not a directory.
func Readdir(table *inode.Table, dirPath string) ([]string, error) {
	dir, err := table.Lookup(dirPath)
	if err != nil {
		return nil, err
	}
	if !dir.IsDir() {
		return nil, diskoerrors.ErrNotADirectory.WithMessage(dirPath)
	}

	normalized := inode.NormalizePath(dirPath)
	entries := []string{".", ".."}
	for _, node := range table.Live() {
		candidate := node.PathString()
		if IsDirectChild(normalized, candidate) {
			entries = append(entries, path.Base(candidate))
		}
	}
	return entries, nil
}

// Getattr fills in a Stat for path's inode. Directories report nlink=2,
// everything else reports nlink=1, matching the two link-count conventions
// ("." from itself plus a self-reference) this engine ever produces.
func Getattr(table *inode.Table, path string) (*Stat, error) {
	node, err := table.Lookup(path)
	if err != nil {
		return nil, err
	}

	nlink := uint32(1)
	if node.IsDir() {
		nlink = 2
	}

	return &Stat{
		Mode:    node.Mode,
		Size:    node.Size,
		Nlink:   nlink,
		Blocks:  int64(blockdev.BytesToBlocks(int(node.Size))),
		Blksize: blockdev.BlockSize,
		Atime:   node.Atime,
		Mtime:   node.Mtime,
		Ctime:   node.Ctime,
	}, nil
}

// Access reports whether path exists; the engine enforces no permission
// bits, so existence is the only check (mask is accepted for signature
// compatibility with a POSIX access() callback but is otherwise unused).
func Access(table *inode.Table, path string, mask uint32) error {
	_, err := table.Lookup(path)
	return err
}

// Mknod creates a regular file at path. Fails EXISTS if path is already
// present and NAME_TOO_LONG if the normalized path does not fit the inode's
// path field; table.Create itself fails TABLE_FULL (mapped to OUT_OF_SPACE
// at the dispatch boundary) as needed. If mode carries no file-type bits,
// the regular-file bit is set.
func Mknod(table *inode.Table, path string, mode uint32) (*inode.Inode, error) {
	if _, err := table.Lookup(path); err == nil {
		return nil, diskoerrors.ErrExists.WithMessage(path)
	}
	if len(inode.NormalizePath(path)) >= inode.PathFieldSize {
		return nil, diskoerrors.ErrNameTooLong.WithMessage(path)
	}
	if mode&inode.ModeTypeMask == 0 {
		mode |= inode.ModeRegular
	}
	return table.Create(path, mode)
}

// Mkdir creates a directory at path. Fails EXISTS if path is already
// present.
func Mkdir(table *inode.Table, path string, mode uint32) (*inode.Inode, error) {
	if _, err := table.Lookup(path); err == nil {
		return nil, diskoerrors.ErrExists.WithMessage(path)
	}
	return table.Create(path, (mode&^inode.ModeTypeMask)|inode.ModeDir)
}
