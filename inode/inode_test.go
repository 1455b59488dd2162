package inode_test

import (
	"path/filepath"
	"testing"

	"github.com/PeterWang133/Project2/blockdev"
	diskoerrors "github.com/PeterWang133/Project2/errors"
	"github.com/PeterWang133/Project2/inode"
	"github.com/stretchr/testify/require"
)

func newTable(t *testing.T) (*inode.Table, *blockdev.Device) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.bin")
	dev, err := blockdev.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })

	table := inode.NewTable(dev)
	_, err = table.Create("/", inode.ModeDir|0755)
	require.NoError(t, err)
	return table, dev
}

func TestRootExistsAfterCreate(t *testing.T) {
	table, _ := newTable(t)
	root, err := table.Lookup("/")
	require.NoError(t, err)
	require.True(t, root.IsDir())
	require.Equal(t, 1, table.Count())
}

func TestCreateAndLookup(t *testing.T) {
	table, _ := newTable(t)
	_, err := table.Create("/a.txt", inode.ModeRegular|0644)
	require.NoError(t, err)

	found, err := table.Lookup("/a.txt")
	require.NoError(t, err)
	require.Equal(t, int64(0), found.Size)
	require.True(t, found.IsRegular())
}

func TestLookupNormalizesTrailingSlash(t *testing.T) {
	table, _ := newTable(t)
	_, err := table.Create("/d", inode.ModeDir|0755)
	require.NoError(t, err)

	found, err := table.Lookup("/d/")
	require.NoError(t, err)
	require.Equal(t, "/d", found.PathString())
}

func TestLookupMissing(t *testing.T) {
	table, _ := newTable(t)
	_, err := table.Lookup("/nope")
	require.ErrorIs(t, err, diskoerrors.ErrNotFound)
}

func TestCreateTableFull(t *testing.T) {
	table, _ := newTable(t)
	for i := 1; i < inode.MaxFiles; i++ {
		_, err := table.Create(fmt_file(i), inode.ModeRegular|0644)
		require.NoError(t, err)
	}
	_, err := table.Create("/overflow", inode.ModeRegular|0644)
	require.ErrorIs(t, err, diskoerrors.ErrTableFull)
}

func fmt_file(i int) string {
	return "/f" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := ""
	for i > 0 {
		digits = string(rune('0'+i%10)) + digits
		i /= 10
	}
	return digits
}

func TestAddBlockUpToMaxThenOutOfSpace(t *testing.T) {
	table, _ := newTable(t)
	node, err := table.Create("/big", inode.ModeRegular|0644)
	require.NoError(t, err)

	for i := 0; i < inode.MaxBlocksPerFile; i++ {
		_, err := table.AddBlock(node)
		require.NoError(t, err, "block %d should succeed", i)
	}

	_, err = table.AddBlock(node)
	require.ErrorIs(t, err, diskoerrors.ErrNoSpaceOnDevice)
}

func TestRenameSuccess(t *testing.T) {
	table, _ := newTable(t)
	_, err := table.Create("/a.txt", inode.ModeRegular|0644)
	require.NoError(t, err)

	require.NoError(t, table.Rename("/a.txt", "/b.txt"))

	_, err = table.Lookup("/a.txt")
	require.ErrorIs(t, err, diskoerrors.ErrNotFound)

	found, err := table.Lookup("/b.txt")
	require.NoError(t, err)
	require.Equal(t, "/b.txt", found.PathString())
}

func TestRenameToExistingFails(t *testing.T) {
	table, _ := newTable(t)
	_, err := table.Create("/a.txt", inode.ModeRegular|0644)
	require.NoError(t, err)
	_, err = table.Create("/b.txt", inode.ModeRegular|0644)
	require.NoError(t, err)

	err = table.Rename("/a.txt", "/b.txt")
	require.ErrorIs(t, err, diskoerrors.ErrExists)

	a, err := table.Lookup("/a.txt")
	require.NoError(t, err)
	require.Equal(t, "/a.txt", a.PathString())
}

func TestRenameMissingSourceFails(t *testing.T) {
	table, _ := newTable(t)
	err := table.Rename("/nope", "/b.txt")
	require.ErrorIs(t, err, diskoerrors.ErrNotFound)
}

func TestRenameDirectoryWithChildrenRefused(t *testing.T) {
	table, _ := newTable(t)
	_, err := table.Create("/d", inode.ModeDir|0755)
	require.NoError(t, err)
	_, err = table.Create("/d/x", inode.ModeRegular|0644)
	require.NoError(t, err)

	err = table.Rename("/d", "/e")
	require.ErrorIs(t, err, diskoerrors.ErrNotSupported)
}

func TestRenameEmptyDirectoryAllowed(t *testing.T) {
	table, _ := newTable(t)
	_, err := table.Create("/d", inode.ModeDir|0755)
	require.NoError(t, err)

	require.NoError(t, table.Rename("/d", "/e"))
	_, err = table.Lookup("/e")
	require.NoError(t, err)
}

func TestUnlinkFreesBlocksAndShrinksTable(t *testing.T) {
	table, dev := newTable(t)
	node, err := table.Create("/big", inode.ModeRegular|0644)
	require.NoError(t, err)

	b1, err := table.AddBlock(node)
	require.NoError(t, err)
	b2, err := table.AddBlock(node)
	require.NoError(t, err)

	before := table.Count()
	require.NoError(t, table.Unlink(node))
	require.Equal(t, before-1, table.Count())

	_, err = table.Lookup("/big")
	require.ErrorIs(t, err, diskoerrors.ErrNotFound)

	// Both blocks should be available for reallocation again.
	reused := map[int]bool{}
	for i := 0; i < 2; i++ {
		b, err := dev.AllocBlock()
		require.NoError(t, err)
		reused[b] = true
	}
	require.True(t, reused[b1])
	require.True(t, reused[b2])
}

func TestUnlinkDirectoryFails(t *testing.T) {
	table, _ := newTable(t)
	_, err := table.Create("/d", inode.ModeDir|0755)
	require.NoError(t, err)

	dirNode, err := table.Lookup("/d")
	require.NoError(t, err)

	err = table.Unlink(dirNode)
	require.ErrorIs(t, err, diskoerrors.ErrIsADirectory)
}

func TestUnlinkPreservesSuccessorOrder(t *testing.T) {
	table, _ := newTable(t)
	_, err := table.Create("/a", inode.ModeRegular|0644)
	require.NoError(t, err)
	nodeB, err := table.Create("/b", inode.ModeRegular|0644)
	require.NoError(t, err)
	_, err = table.Create("/c", inode.ModeRegular|0644)
	require.NoError(t, err)

	require.NoError(t, table.Unlink(nodeB))

	live := table.Live()
	require.Len(t, live, 3)
	require.Equal(t, "/a", live[1].PathString())
	require.Equal(t, "/c", live[2].PathString())

	_, err = table.Lookup("/a")
	require.NoError(t, err)
	_, err = table.Lookup("/c")
	require.NoError(t, err)
	_, err = table.Lookup("/b")
	require.ErrorIs(t, err, diskoerrors.ErrNotFound)
}

func TestLoadAfterSaveRoundTrips(t *testing.T) {
	table, dev := newTable(t)
	node, err := table.Create("/a.txt", inode.ModeRegular|0644)
	require.NoError(t, err)
	_, err = table.AddBlock(node)
	require.NoError(t, err)
	node.Size = 10

	reloaded := inode.NewTable(dev)
	require.NoError(t, reloaded.Load())
	require.Equal(t, table.Count(), reloaded.Count())

	found, err := reloaded.Lookup("/a.txt")
	require.NoError(t, err)
	require.EqualValues(t, 1, found.BlockCount)
}
