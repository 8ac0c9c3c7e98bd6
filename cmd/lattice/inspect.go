package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lattice/internal/cellimage"
	"github.com/samcharles93/lattice/internal/lattice"
	"github.com/samcharles93/lattice/pkg/dsg"
)

func inspectCmd() *cli.Command {
	var (
		imagePath string
		decoded   bool
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Dump the regions of a cell image",
		ArgsUsage: "<image.dsg>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "decode",
				Aliases:     []string{"d"},
				Usage:       "print the decoded cell fields as JSON instead of raw words",
				Destination: &decoded,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			imagePath = cmd.Args().First()
			if imagePath == "" {
				return cli.Exit("error: image path required", 1)
			}
			f, err := cellimage.Open(imagePath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open %s: %v", imagePath, err), 1)
			}
			defer func() { _ = f.Close() }()

			if !decoded {
				return dsg.Dump(stdout(cmd), f.DSG(), lattice.RegionName)
			}
			contents, err := f.Contents()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: decode %s: %v", imagePath, err), 1)
			}
			data, err := json.MarshalIndent(contents, "", "  ")
			if err != nil {
				return err
			}
			printf(cmd, "%s\n", data)
			return nil
		},
	}
}
