package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/bundlekit/iconbundle/pkg/appearance"
	"github.com/bundlekit/iconbundle/pkg/icns"
	"github.com/docker/go-units"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "List the representations of an .icns container",
		ArgsUsage: "<path.icns>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("inspect takes exactly one container path")
			}
			path := c.Args().First()
			data, err := os.ReadFile(path)
			if err != nil {
				return errors.Wrap(err, "read container")
			}
			entries, err := icns.Inspect(data)
			if err != nil {
				return errors.Wrapf(err, "inspect %s", path)
			}

			table := tablewriter.NewWriter(c.App.Writer)
			table.SetHeader([]string{"appearance", "type", "size", "format", "pixels"})
			for _, e := range entries {
				table.Append([]string{
					e.Tag.String(),
					e.Type.String(),
					e.Size.String(),
					e.Format,
					strconv.Itoa(e.Width) + "x" + strconv.Itoa(e.Height),
				})
			}
			table.Render()
			fmt.Fprintf(c.App.Writer, "%d representations, %s.\n", len(entries), units.HumanSize(float64(len(data))))

			floor, err := appearance.Floor(icns.Tags(entries))
			if err != nil {
				return err
			}
			if floor == "" {
				fmt.Fprintln(c.App.Writer, "No OS floor: only default representations.")
			} else {
				fmt.Fprintf(c.App.Writer, "Requires macOS %s.\n", floor)
			}
			return nil
		},
	}
}
