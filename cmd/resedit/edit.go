package main

import (
	"fmt"
	"strconv"

	"github.com/EchoTools/resedit/pkg/item"
	"github.com/EchoTools/resedit/pkg/resource"
	"github.com/EchoTools/resedit/pkg/structure"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newAddEffectCommand(a *app) *cobra.Command {
	var (
		opcode  uint16
		ability int
		output  string
	)
	cmd := &cobra.Command{
		Use:   "add-effect <file>",
		Short: "Append an effect to an item or to one of its abilities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.load(args[0])
			if err != nil {
				return err
			}
			if res.Format != resource.FormatItem {
				return fmt.Errorf("add-effect: %s resources have no effects", res.Format)
			}

			target, effect := res.Root, item.NewEffect(opcode)
			if ability >= 0 {
				abilities := item.Abilities(res.Root)
				if ability >= len(abilities) {
					return fmt.Errorf("ability %d of %d: %w", ability, len(abilities), structure.ErrIndexOutOfRange)
				}
				target, effect = abilities[ability], item.NewAbilityEffect(opcode)
			}

			idx, err := target.Insert(effect)
			if err != nil {
				return err
			}
			a.log.Info("effect added",
				zap.String("node", target.Name()),
				zap.Int("index", idx),
				zap.Int("offset", effect.Offset()),
				zap.Uint16("opcode", opcode))
			return a.save(out(args[0], output), res)
		},
	}
	cmd.Flags().Uint16Var(&opcode, "opcode", 0, "Effect opcode")
	cmd.Flags().IntVar(&ability, "ability", -1, "Ability index; the item itself when negative")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: overwrite input)")
	return cmd
}

func newRemoveCommand(a *app) *cobra.Command {
	var (
		offset    string
		recursive bool
		output    string
	)
	cmd := &cobra.Command{
		Use:   "remove <file>",
		Short: "Remove the innermost removable element covering an offset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			off, err := strconv.ParseInt(offset, 0, 64)
			if err != nil {
				return fmt.Errorf("parse offset: %w", err)
			}
			res, err := a.load(args[0])
			if err != nil {
				return err
			}

			n := removable(res.Root.Locate(int(off), structure.Recursive()))
			if n == nil {
				return fmt.Errorf("offset 0x%x: %w", off, structure.ErrNotRemovable)
			}
			if _, err := n.Parent().Remove(n, recursive); err != nil {
				return err
			}
			a.log.Info("element removed",
				zap.String("name", n.Name()),
				zap.Int("size", n.Size()),
				zap.Bool("recursive", recursive))
			return a.save(out(args[0], output), res)
		},
	}
	cmd.Flags().StringVar(&offset, "offset", "", "Absolute offset inside the element, decimal or 0x hex")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Remove nested elements first")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: overwrite input)")
	_ = cmd.MarkFlagRequired("offset")
	return cmd
}

// removable returns the closest node enclosing f, f included, that may be
// removed from its parent.
func removable(f structure.Field) *structure.Node {
	if f == nil {
		return nil
	}
	n, ok := f.(*structure.Node)
	if !ok {
		n = f.Parent()
	}
	for depth := 0; n != nil && depth <= structure.MaxDepth; depth++ {
		if n.CanRemove() && n.Parent() != nil {
			return n
		}
		n = n.Parent()
	}
	return nil
}

func newPackCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pack <in> <out>",
		Short: "Store a resource inside an archive envelope",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := a.codec()
			if err != nil {
				return err
			}
			res, err := a.load(args[0])
			if err != nil {
				return err
			}
			res.Archived = true
			res.Codec = codec
			return a.save(args[1], res)
		},
	}
}

func newUnpackCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unpack <in> <out>",
		Short: "Write the bare resource held by an archive envelope",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.load(args[0])
			if err != nil {
				return err
			}
			res.Archived = false
			return a.save(args[1], res)
		},
	}
}

func (a *app) save(path string, res *resource.Resource) error {
	return a.loader.Save(path, res)
}

func out(input, output string) string {
	if output == "" {
		return input
	}
	return output
}
