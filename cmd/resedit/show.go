package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/EchoTools/resedit/pkg/structure"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const maxHexBytes = 16

func newDumpCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <file>",
		Short: "Print every field of a resource in offset order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.load(args[0])
			if err != nil {
				return err
			}
			printFields(cmd.OutOrStdout(), res.Root.Flatten())
			return nil
		},
	}
}

func newFindCommand(a *app) *cobra.Command {
	var (
		name   string
		offset string
	)
	cmd := &cobra.Command{
		Use:   "find <file>",
		Short: "Locate a field by offset or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (name == "") == (offset == "") {
				return fmt.Errorf("exactly one of --name and --offset is required")
			}
			res, err := a.load(args[0])
			if err != nil {
				return err
			}

			var f structure.Field
			if name != "" {
				f = res.Root.FieldByName(name, true)
			} else {
				off, err := strconv.ParseInt(offset, 0, 64)
				if err != nil {
					return fmt.Errorf("parse offset: %w", err)
				}
				f = res.Root.Locate(int(off), structure.Recursive())
			}
			if f == nil {
				return fmt.Errorf("no field matches")
			}

			fmt.Fprintln(cmd.OutOrStdout(), path(f))
			if n, ok := f.(*structure.Node); ok {
				printFields(cmd.OutOrStdout(), n.Flatten())
			} else {
				printFields(cmd.OutOrStdout(), []structure.Field{f})
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Field name, case insensitive")
	cmd.Flags().StringVar(&offset, "offset", "", "Absolute offset, decimal or 0x hex")
	return cmd
}

func printFields(w io.Writer, fields []structure.Field) {
	out := tablewriter.NewWriter(w)
	out.SetHeader([]string{"Offset", "Size", "Node", "Field", "Value"})
	out.SetAutoWrapText(false)
	out.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, f := range fields {
		owner := ""
		if p := f.Parent(); p != nil {
			owner = p.Name()
		}
		out.Append([]string{
			fmt.Sprintf("0x%06x", f.Offset()),
			strconv.Itoa(f.Size()),
			owner,
			f.Name(),
			value(f),
		})
	}
	out.Render()
}

func value(f structure.Field) string {
	switch v := f.(type) {
	case *structure.Number:
		return strconv.FormatInt(v.Value(), 10)
	case *structure.Text:
		return strconv.Quote(v.Value())
	case *structure.Bytes:
		data := v.Data()
		if len(data) > maxHexBytes {
			return hex.EncodeToString(data[:maxHexBytes]) + "..."
		}
		return hex.EncodeToString(data)
	case *structure.Node:
		return fmt.Sprintf("%d fields", v.Len())
	default:
		return ""
	}
}

// path returns the names from the root down to f.
func path(f structure.Field) string {
	names := []string{f.Name()}
	for p := f.Parent(); p != nil && len(names) <= structure.MaxDepth; p = p.Parent() {
		names = append(names, p.Name())
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, " / ")
}
