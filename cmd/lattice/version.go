package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lattice/internal/version"
)

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			info := version.Resolve()
			printf(cmd, "version:    %s\n", info.Version)
			if info.Commit != "" {
				printf(cmd, "commit:     %s\n", info.Commit)
			}
			printf(cmd, "image abi:  dsg %s\n", info.ImageABI)
			if info.GoVersion != "" {
				printf(cmd, "go:         %s\n", info.GoVersion)
			}
			return nil
		},
	}
}
