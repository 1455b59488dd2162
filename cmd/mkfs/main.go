// Command mkfs creates, inspects, or wipes a nufs disk image ahead of a
// mount.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/PeterWang133/Project2/blockdev"
	"github.com/PeterWang133/Project2/nufs"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Usage: "Create or inspect nufs disk images",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "Create a fresh, correctly-sized image with a root directory",
				Action:    formatImage,
				ArgsUsage: "IMAGE_PATH",
			},
			{
				Name:      "inspect",
				Usage:     "Print the inode table of an existing image",
				Action:    inspectImage,
				ArgsUsage: "IMAGE_PATH",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func formatImage(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("missing IMAGE_PATH", 1)
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return err
		}
	}

	fs, err := nufs.Mount(path)
	if err != nil {
		return err
	}
	defer fs.Unmount()

	fmt.Printf("formatted %s: %d blocks of %d bytes, root directory ready\n",
		path, blockdev.BlockCount, blockdev.BlockSize)
	return nil
}

func inspectImage(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("missing IMAGE_PATH", 1)
	}

	fs, err := nufs.Mount(path)
	if err != nil {
		return err
	}
	defer fs.Unmount()

	fmt.Printf("%-6s %-8s %-12s %s\n", "mode", "size", "blocks", "path")
	for _, node := range fs.Table.Live() {
		fmt.Printf("%06o %-8d %-12d %s\n", node.Mode, node.Size, node.BlockCount, node.PathString())
	}
	return nil
}
