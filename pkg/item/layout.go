package item

import (
	"github.com/EchoTools/resedit/pkg/structure"
)

type itemLayout struct{}

func (itemLayout) Decode(d *structure.Decoder) (int, error) {
	d.Signature("Signature", Signature)
	d.Signature("Version", Version)
	d.Text("Name", NameSize)
	d.Uint("Flags", 4)
	d.Uint("Price", 4)
	abilOff := d.Offset("Abilities offset", 4, KindAbility)
	abilCount := d.Count("Abilities count", 2, KindAbility)
	effCount := d.Count("Effects count", 2, KindEffect)
	effOff := d.Offset("Effects offset", 4, KindEffect)
	scriptOff := d.Offset("Script offset", 4, KindScript)
	scriptLen := d.Uint("Script length", 4)
	d.Bytes("Unused", 4)
	if d.Err() != nil {
		return 0, d.Err()
	}

	if abilCount.Value() > 0 {
		d.Seek(int(abilOff.Value()))
		for i, n := int64(0), abilCount.Value(); i < n; i++ {
			off := d.Pos()
			t := AbilityType(d.PeekUint(off, 1))
			if d.Err() != nil {
				break
			}
			if !t.Valid() {
				d.UnknownVariant("Type", off, uint64(t))
				break
			}
			d.Add(newAbilityNode(t))
		}
	}
	if effCount.Value() > 0 {
		d.Seek(int(effOff.Value()))
		for i, n := int64(0), effCount.Value(); i < n; i++ {
			d.Add(newEffectNode(KindEffect))
		}
	}
	if scriptLen.Value() > 0 {
		d.Seek(int(scriptOff.Value()))
		d.Add(newScriptNode(int(scriptLen.Value())))
	}
	return len(d.Buffer()), d.Err()
}

func newAbilityNode(t AbilityType) *structure.Node {
	var opts []structure.NodeOption
	if t == AbilityDefault {
		opts = append(opts, structure.Mandatory())
	}
	return structure.NewNode(t.String()+" ability", KindAbility, abilityLayout{}, opts...)
}

// abilityLayout reads the ability header. Its effects follow at the absolute
// offset given by the header, normally right after it.
type abilityLayout struct{}

func (abilityLayout) Decode(d *structure.Decoder) (int, error) {
	d.Uint("Type", 1)
	d.Uint("Location", 1)
	d.Uint("Range", 2)
	d.Text("Icon", 8)
	d.Uint("Charges", 2)
	count := d.Count("Effects count", 2, KindAbilityEffect)
	off := d.Offset("Effects offset", 4, KindAbilityEffect)
	d.Uint("Flags", 4)
	if d.Err() != nil {
		return 0, d.Err()
	}
	if count.Value() > 0 {
		d.Seek(int(off.Value()))
		for i, n := int64(0), count.Value(); i < n; i++ {
			d.Add(newEffectNode(KindAbilityEffect))
		}
	}
	return d.Pos(), d.Err()
}

func newEffectNode(kind structure.Kind) *structure.Node {
	return structure.NewNode("Effect", kind, effectLayout{}, structure.Fixed())
}

type effectLayout struct{}

func (effectLayout) Decode(d *structure.Decoder) (int, error) {
	d.Uint("Opcode", 2)
	d.Uint("Target", 1)
	d.Uint("Power", 1)
	d.Uint("Parameter 1", 4)
	d.Uint("Parameter 2", 4)
	d.Uint("Timing", 2)
	d.Uint("Probability", 2)
	d.Uint("Duration", 4)
	d.Text("Resource", 8)
	d.Uint("Dice count", 4)
	d.Uint("Dice sides", 4)
	d.Uint("Save type", 4)
	d.Int("Save bonus", 4)
	d.Uint("Special", 4)
	return d.Pos(), d.Err()
}

func newScriptNode(size int) *structure.Node {
	return structure.NewNode("Script", KindScript, scriptLayout{size: size}, structure.Fixed())
}

type scriptLayout struct{ size int }

func (l scriptLayout) Decode(d *structure.Decoder) (int, error) {
	d.Code("Source", l.size)
	return d.Pos(), d.Err()
}
