// Package item implements the item resource format on top of the structure
// engine: a header, a run of abilities each followed by its own effects, a
// run of global effects and an optional script.
package item

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/EchoTools/resedit/pkg/structure"
)

const (
	Signature = "ITM "
	Version   = "V1  "

	HeaderSize  = 0x48
	AbilitySize = 0x18
	EffectSize  = 0x30

	NameSize = 32
)

// Variant kinds used by the item format.
const (
	KindAbility structure.Kind = iota + 1
	KindEffect
	KindAbilityEffect
	KindScript
)

// AbilityType is the discriminator stored in the first byte of an ability.
type AbilityType uint8

const (
	AbilityDefault AbilityType = iota
	AbilityMelee
	AbilityRanged
	AbilityMagical
	AbilityLauncher
)

func (t AbilityType) String() string {
	switch t {
	case AbilityDefault:
		return "Default"
	case AbilityMelee:
		return "Melee"
	case AbilityRanged:
		return "Ranged"
	case AbilityMagical:
		return "Magical"
	case AbilityLauncher:
		return "Launcher"
	default:
		return fmt.Sprintf("AbilityType(%d)", uint8(t))
	}
}

// Valid reports whether t is a known ability type.
func (t AbilityType) Valid() bool {
	return t <= AbilityLauncher
}

// ErrNoScript is returned when a script operation needs an existing script.
var ErrNoScript = errors.New("item has no script")

// Parse decodes an item resource.
func Parse(buf []byte) (*structure.Node, error) {
	root := structure.NewNode("Item", structure.KindNone, itemLayout{})
	if _, err := root.Read(buf, 0); err != nil {
		return nil, fmt.Errorf("parse item: %w", err)
	}
	return root, nil
}

// New returns an empty item with the given name.
func New(name string) (*structure.Node, error) {
	buf := make([]byte, HeaderSize)
	copy(buf, Signature)
	copy(buf[4:], Version)
	root, err := Parse(buf)
	if err != nil {
		return nil, err
	}
	if err := root.FieldByName("Name", false).(*structure.Text).SetValue(name); err != nil {
		return nil, fmt.Errorf("new item: %w", err)
	}
	root.ClearChanged()
	return root, nil
}

// NewAbility returns a detached ability without effects.
func NewAbility(t AbilityType) (*structure.Node, error) {
	if !t.Valid() {
		return nil, &structure.ParseError{
			Reason: structure.UnknownVariant,
			Name:   "Type",
			Detail: fmt.Sprintf("no decoder for value %d", t),
		}
	}
	buf := make([]byte, AbilitySize)
	buf[0] = byte(t)
	n := newAbilityNode(t)
	if _, err := n.Read(buf, 0); err != nil {
		return nil, fmt.Errorf("new ability: %w", err)
	}
	return n, nil
}

// NewEffect returns a detached global effect.
func NewEffect(opcode uint16) *structure.Node {
	return newEffect(KindEffect, opcode)
}

// NewAbilityEffect returns a detached effect for insertion into an ability.
func NewAbilityEffect(opcode uint16) *structure.Node {
	return newEffect(KindAbilityEffect, opcode)
}

func newEffect(kind structure.Kind, opcode uint16) *structure.Node {
	buf := make([]byte, EffectSize)
	binary.LittleEndian.PutUint16(buf, opcode)
	n := newEffectNode(kind)
	// A zeroed buffer of the right size always decodes.
	_, _ = n.Read(buf, 0)
	return n
}

// Abilities returns the abilities of an item in list order.
func Abilities(item *structure.Node) []*structure.Node {
	return item.Children(KindAbility)
}

// Effects returns the global effects of an item or the effects of an ability.
func Effects(n *structure.Node) []*structure.Node {
	if n.Kind() == KindAbility {
		return n.Children(KindAbilityEffect)
	}
	return n.Children(KindEffect)
}

// Script returns the script payload of an item, or nil.
func Script(item *structure.Node) *structure.Code {
	nodes := item.Children(KindScript)
	if len(nodes) == 0 {
		return nil
	}
	code, _ := nodes[0].FieldByName("Source", false).(*structure.Code)
	return code
}

// SetScript replaces the script of an item with src.
func SetScript(item *structure.Node, src []byte) error {
	if err := RemoveScript(item); err != nil && !errors.Is(err, ErrNoScript) {
		return err
	}
	if len(src) == 0 {
		return nil
	}
	n := newScriptNode(len(src))
	if _, err := n.Read(src, 0); err != nil {
		return fmt.Errorf("set script: %w", err)
	}
	if _, err := item.Insert(n); err != nil {
		return fmt.Errorf("set script: %w", err)
	}
	scriptLength(item).SetValue(int64(len(src)))
	return nil
}

// RemoveScript detaches the script of an item.
func RemoveScript(item *structure.Node) error {
	nodes := item.Children(KindScript)
	if len(nodes) == 0 {
		return ErrNoScript
	}
	if _, err := item.Remove(nodes[0], false); err != nil {
		return fmt.Errorf("remove script: %w", err)
	}
	scriptLength(item).SetValue(0)
	if off := item.OffsetOf(KindScript); off.Value() != structure.Unset {
		off.SetValue(structure.Unset)
	}
	return nil
}

func scriptLength(item *structure.Node) *structure.Number {
	return item.FieldByName("Script length", false).(*structure.Number)
}

// Type returns the discriminator of an ability.
func Type(ability *structure.Node) AbilityType {
	n, ok := ability.FieldByName("Type", false).(*structure.Number)
	if !ok {
		return AbilityDefault
	}
	return AbilityType(n.Value())
}
