//go:build fuse

package dispatch

import (
	"context"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/PeterWang133/Project2/inode"
	"github.com/PeterWang133/Project2/namespace"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
)

// rootInodeID is the fixed inode number jacobsa/fuse requires the mount
// root to carry.
const rootInodeID = fuseops.RootInodeID

// FuseAdapter wires a Dispatcher into fuseutil.FileSystem. The engine
// itself has no notion of numeric inode IDs — paths are the only key the
// inode table understands — so this adapter owns a path<->InodeID table
// on the side, purely to satisfy jacobsa/fuse's calling convention.
type FuseAdapter struct {
	fuseutil.NotImplementedFileSystem

	d *Dispatcher

	mu       sync.Mutex
	nextID   fuseops.InodeID
	idToPath map[fuseops.InodeID]string
	pathToID map[string]fuseops.InodeID
}

// NewFuseAdapter returns a FuseAdapter bound to d, with its root registered
// as fuseops.RootInodeID.
func NewFuseAdapter(d *Dispatcher) *FuseAdapter {
	a := &FuseAdapter{
		d:        d,
		nextID:   rootInodeID + 1,
		idToPath: map[fuseops.InodeID]string{rootInodeID: "/"},
		pathToID: map[string]fuseops.InodeID{"/": rootInodeID},
	}
	return a
}

// idFor returns the stable InodeID for path, registering a new one if this
// is the first time the adapter has seen it.
func (a *FuseAdapter) idFor(path string) fuseops.InodeID {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id, ok := a.pathToID[path]; ok {
		return id
	}
	id := a.nextID
	a.nextID++
	a.pathToID[path] = id
	a.idToPath[id] = path
	return id
}

func (a *FuseAdapter) pathFor(id fuseops.InodeID) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.idToPath[id]
	return p, ok
}

func childPath(parent string, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

func toFuseAttr(stat *namespace.Stat) fuseops.InodeAttributes {
	mode := os.FileMode(stat.Mode & 0777)
	if stat.Mode&inode.ModeTypeMask == inode.ModeDir {
		mode |= os.ModeDir
	}
	return fuseops.InodeAttributes{
		Size:  uint64(stat.Size),
		Nlink: stat.Nlink,
		Mode:  mode,
		Atime: time.Unix(stat.Atime, 0),
		Mtime: time.Unix(stat.Mtime, 0),
		Ctime: time.Unix(stat.Ctime, 0),
	}
}

func toErrno(code int) error {
	if code == 0 {
		return nil
	}
	return syscall.Errno(-code)
}

func (a *FuseAdapter) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	parentPath, ok := a.pathFor(op.Parent)
	if !ok {
		return syscall.ENOENT
	}
	path := childPath(parentPath, op.Name)

	stat, code := a.d.Getattr(path)
	if code != 0 {
		return toErrno(code)
	}

	op.Entry.Child = a.idFor(path)
	op.Entry.Attributes = toFuseAttr(stat)
	return nil
}

func (a *FuseAdapter) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	path, ok := a.pathFor(op.Inode)
	if !ok {
		return syscall.ENOENT
	}
	stat, code := a.d.Getattr(path)
	if code != 0 {
		return toErrno(code)
	}
	op.Attributes = toFuseAttr(stat)
	return nil
}

func (a *FuseAdapter) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	path, ok := a.pathFor(op.Inode)
	if !ok {
		return syscall.ENOENT
	}
	return toErrno(a.d.Access(path, 0))
}

func (a *FuseAdapter) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	path, ok := a.pathFor(op.Inode)
	if !ok {
		return syscall.ENOENT
	}

	entries, code := a.d.Readdir(path)
	if code != 0 {
		return toErrno(code)
	}

	if int(op.Offset) >= len(entries) {
		return nil
	}

	written := 0
	for i := int(op.Offset); i < len(entries); i++ {
		name := entries[i]
		childID := a.idFor(childPath(path, name))
		if name == "." {
			childID = a.pathToID[path]
		}
		if name == ".." {
			childID = rootInodeID
		}

		n := fuseutil.WriteDirent(op.Dst[written:], fuseutil.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  childID,
			Name:   name,
			Type:   fuseutil.DT_File,
		})
		if n == 0 {
			break
		}
		written += n
	}
	op.BytesRead = written
	return nil
}

func (a *FuseAdapter) MkDir(ctx context.Context, op *fuseops.MkDirOp) error {
	parentPath, ok := a.pathFor(op.Parent)
	if !ok {
		return syscall.ENOENT
	}
	path := childPath(parentPath, op.Name)

	if code := a.d.Mkdir(path, uint32(op.Mode)); code != 0 {
		return toErrno(code)
	}

	stat, code := a.d.Getattr(path)
	if code != 0 {
		return toErrno(code)
	}
	op.Entry.Child = a.idFor(path)
	op.Entry.Attributes = toFuseAttr(stat)
	return nil
}

func (a *FuseAdapter) CreateFile(ctx context.Context, op *fuseops.CreateFileOp) error {
	parentPath, ok := a.pathFor(op.Parent)
	if !ok {
		return syscall.ENOENT
	}
	path := childPath(parentPath, op.Name)

	if code := a.d.Mknod(path, uint32(op.Mode)); code != 0 {
		return toErrno(code)
	}

	stat, code := a.d.Getattr(path)
	if code != 0 {
		return toErrno(code)
	}
	op.Entry.Child = a.idFor(path)
	op.Entry.Attributes = toFuseAttr(stat)
	return nil
}

func (a *FuseAdapter) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	path, ok := a.pathFor(op.Inode)
	if !ok {
		return syscall.ENOENT
	}
	return toErrno(a.d.Access(path, 0))
}

func (a *FuseAdapter) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	path, ok := a.pathFor(op.Inode)
	if !ok {
		return syscall.ENOENT
	}
	n, code := a.d.Read(path, op.Dst, op.Offset)
	if code != 0 {
		return toErrno(code)
	}
	op.BytesRead = n
	return nil
}

func (a *FuseAdapter) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	path, ok := a.pathFor(op.Inode)
	if !ok {
		return syscall.ENOENT
	}
	_, code := a.d.Write(path, op.Data, op.Offset)
	return toErrno(code)
}

func (a *FuseAdapter) Rename(ctx context.Context, op *fuseops.RenameOp) error {
	oldParent, ok := a.pathFor(op.OldParent)
	if !ok {
		return syscall.ENOENT
	}
	newParent, ok := a.pathFor(op.NewParent)
	if !ok {
		return syscall.ENOENT
	}
	from := childPath(oldParent, op.OldName)
	to := childPath(newParent, op.NewName)

	if code := a.d.Rename(from, to); code != 0 {
		return toErrno(code)
	}

	a.mu.Lock()
	if id, ok := a.pathToID[from]; ok {
		delete(a.pathToID, from)
		a.pathToID[to] = id
		a.idToPath[id] = to
	}
	a.mu.Unlock()
	return nil
}

func (a *FuseAdapter) Unlink(ctx context.Context, op *fuseops.UnlinkOp) error {
	parentPath, ok := a.pathFor(op.Parent)
	if !ok {
		return syscall.ENOENT
	}
	path := childPath(parentPath, op.Name)

	if code := a.d.Unlink(path); code != 0 {
		return toErrno(code)
	}

	a.mu.Lock()
	if id, ok := a.pathToID[path]; ok {
		delete(a.pathToID, path)
		delete(a.idToPath, id)
	}
	a.mu.Unlock()
	return nil
}

func (a *FuseAdapter) ForgetInode(ctx context.Context, op *fuseops.ForgetInodeOp) error {
	return nil
}
