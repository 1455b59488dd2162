//go:build fuse

// Command mountnufs mounts a nufs disk image as a FUSE filesystem. The last
// argument is always the disk image path and the argument just before it is
// the mountpoint. Any earlier arguments are ignored: they are not passed to
// the FUSE library, and the mount always uses a default fuse.MountConfig.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/PeterWang133/Project2/dispatch"
	"github.com/PeterWang133/Project2/nufs"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatalf("usage: %s <mountpoint> <disk-image>", os.Args[0])
	}

	imagePath := os.Args[len(os.Args)-1]
	mountpoint := os.Args[len(os.Args)-2]

	log.Printf("mounting filesystem with disk image: %s", imagePath)
	fs, err := nufs.Mount(imagePath)
	if err != nil {
		log.Fatalf("mount: %v", err)
	}
	defer fs.Unmount()

	adapter := dispatch.NewFuseAdapter(dispatch.New(fs))
	server := fuseutil.NewFileSystemServer(adapter)

	mfs, err := fuse.Mount(mountpoint, server, &fuse.MountConfig{})
	if err != nil {
		log.Fatalf("fuse.Mount: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Printf("received interrupt, unmounting %s", mountpoint)
		fuse.Unmount(mountpoint)
	}()

	if err := mfs.Join(context.Background()); err != nil {
		log.Fatalf("Join: %v", err)
	}
	if err := fs.Unmount(); err != nil {
		log.Fatalf("unmount: %v", err)
	}
	log.Printf("storage for %s released successfully", imagePath)
}
