package dispatch_test

import (
	"path/filepath"
	"syscall"
	"testing"

	"github.com/PeterWang133/Project2/dispatch"
	"github.com/PeterWang133/Project2/inode"
	"github.com/PeterWang133/Project2/nufs"
	"github.com/stretchr/testify/require"
)

func newDispatcher(t *testing.T) *dispatch.Dispatcher {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.bin")
	fs, err := nufs.Mount(path)
	require.NoError(t, err)
	t.Cleanup(func() { fs.Unmount() })
	return dispatch.New(fs)
}

func TestAccessRootSucceeds(t *testing.T) {
	d := newDispatcher(t)
	require.Equal(t, 0, d.Access("/", 0))
}

func TestAccessMissingReturnsNegatedENOENT(t *testing.T) {
	d := newDispatcher(t)
	require.Equal(t, -int(syscall.ENOENT), d.Access("/nope", 0))
}

func TestMknodThenGetattr(t *testing.T) {
	d := newDispatcher(t)
	require.Equal(t, 0, d.Mknod("/a.txt", inode.ModeRegular|0644))

	stat, code := d.Getattr("/a.txt")
	require.Equal(t, 0, code)
	require.EqualValues(t, 0, stat.Size)
}

func TestMknodExistingReturnsNegatedEEXIST(t *testing.T) {
	d := newDispatcher(t)
	require.Equal(t, 0, d.Mknod("/a.txt", inode.ModeRegular|0644))
	require.Equal(t, -int(syscall.EEXIST), d.Mknod("/a.txt", inode.ModeRegular|0644))
}

func TestWriteThenReadThroughDispatcher(t *testing.T) {
	d := newDispatcher(t)
	require.Equal(t, 0, d.Mknod("/a.txt", inode.ModeRegular|0644))

	n, code := d.Write("/a.txt", []byte("hello"), 0)
	require.Equal(t, 0, code)
	require.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, code = d.Read("/a.txt", buf, 0)
	require.Equal(t, 0, code)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))
}

func TestRenameThenReaddir(t *testing.T) {
	d := newDispatcher(t)
	require.Equal(t, 0, d.Mknod("/a.txt", inode.ModeRegular|0644))
	require.Equal(t, 0, d.Rename("/a.txt", "/b.txt"))

	entries, code := d.Readdir("/")
	require.Equal(t, 0, code)
	require.Contains(t, entries, "b.txt")
	require.NotContains(t, entries, "a.txt")
}

func TestUnlinkRemovesFile(t *testing.T) {
	d := newDispatcher(t)
	require.Equal(t, 0, d.Mknod("/a.txt", inode.ModeRegular|0644))
	require.Equal(t, 0, d.Unlink("/a.txt"))

	_, code := d.Getattr("/a.txt")
	require.Equal(t, -int(syscall.ENOENT), code)
}

func TestUnlinkDirectoryReturnsNegatedEISDIR(t *testing.T) {
	d := newDispatcher(t)
	require.Equal(t, 0, d.Mkdir("/d", 0755))
	require.Equal(t, -int(syscall.EISDIR), d.Unlink("/d"))
}

func TestMkdirThenReaddirHasDotEntries(t *testing.T) {
	d := newDispatcher(t)
	require.Equal(t, 0, d.Mkdir("/d", 0755))

	entries, code := d.Readdir("/d")
	require.Equal(t, 0, code)
	require.Equal(t, []string{".", ".."}, entries)
}
