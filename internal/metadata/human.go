package metadata

import (
	"encoding/hex"
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Names of Si0TypeDefPrimitive values, indexed by their SCALE discriminant.
var primitiveNames = []string{
	"Bool", "Char", "Str",
	"U8", "U16", "U32", "U64", "U128", "U256",
	"I8", "I16", "I32", "I64", "I128", "I256",
}

// humanizer renders decoded V14 metadata into ordered plain values. Numbers
// become decimal strings with thousands grouping ("1,024"), optional names
// become nil, and enums become either their variant name or a single-key
// object holding the payload.
type humanizer struct {
	p *message.Printer
}

// printer is safe for concurrent use; each Sprintf takes its own state.
var printer = message.NewPrinter(language.English)

// FormatNumber renders v with thousands grouping as human-form numbers
// appear, e.g. "1,024".
func FormatNumber(v uint64) string {
	return printer.Sprintf("%d", v)
}

func newHumanizer() *humanizer {
	return &humanizer{p: printer}
}

func (h *humanizer) number(v uint64) string {
	return h.p.Sprintf("%d", v)
}

func (h *humanizer) typeID(id types.Si1LookupTypeID) string {
	return h.number(uint64(id.Int64()))
}

func texts(ts []types.Text) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return out
}

func hexBytes(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func single(key string, value any) Object {
	o := newObject()
	o.Set(key, value)
	return o
}

func (h *humanizer) metadataV14(m *types.MetadataV14) (Object, error) {
	lookup, err := h.lookup(m.Lookup.Types)
	if err != nil {
		return nil, err
	}

	pallets := make([]any, 0, len(m.Pallets))
	for i := range m.Pallets {
		p, err := h.pallet(&m.Pallets[i])
		if err != nil {
			return nil, fmt.Errorf("pallet %s: %w", m.Pallets[i].Name, err)
		}
		pallets = append(pallets, p)
	}

	doc := newObject()
	doc.Set("lookup", lookup)
	doc.Set("pallets", pallets)
	doc.Set("extrinsic", h.extrinsic(&m.Extrinsic))
	doc.Set("type", h.typeID(m.Type))
	return doc, nil
}

func (h *humanizer) lookup(portable []types.PortableTypeV14) (Object, error) {
	list := make([]any, 0, len(portable))
	for _, pt := range portable {
		ty, err := h.si1Type(&pt.Type)
		if err != nil {
			return nil, fmt.Errorf("type %d: %w", pt.ID.Int64(), err)
		}
		entry := newObject()
		entry.Set("id", h.typeID(pt.ID))
		entry.Set("type", ty)
		list = append(list, entry)
	}
	return single("types", list), nil
}

func (h *humanizer) si1Type(t *types.Si1Type) (Object, error) {
	params := make([]any, 0, len(t.Params))
	for _, param := range t.Params {
		p := newObject()
		p.Set("name", string(param.Name))
		if param.HasType {
			p.Set("type", h.typeID(param.Type))
		} else {
			p.Set("type", nil)
		}
		params = append(params, p)
	}

	def, err := h.typeDef(&t.Def)
	if err != nil {
		return nil, err
	}

	path := make([]string, len(t.Path))
	for i, seg := range t.Path {
		path[i] = string(seg)
	}

	o := newObject()
	o.Set("path", path)
	o.Set("params", params)
	o.Set("def", def)
	o.Set("docs", texts(t.Docs))
	return o, nil
}

func (h *humanizer) typeDef(d *types.Si1TypeDef) (Object, error) {
	switch {
	case d.IsComposite:
		return single("Composite", single("fields", h.fields(d.Composite.Fields))), nil

	case d.IsVariant:
		variants := make([]any, 0, len(d.Variant.Variants))
		for _, v := range d.Variant.Variants {
			o := newObject()
			o.Set("name", string(v.Name))
			o.Set("fields", h.fields(v.Fields))
			o.Set("index", h.number(uint64(v.Index)))
			o.Set("docs", texts(v.Docs))
			variants = append(variants, o)
		}
		return single("Variant", single("variants", variants)), nil

	case d.IsSequence:
		return single("Sequence", single("type", h.typeID(d.Sequence.Type))), nil

	case d.IsArray:
		o := newObject()
		o.Set("len", h.number(uint64(d.Array.Len)))
		o.Set("type", h.typeID(d.Array.Type))
		return single("Array", o), nil

	case d.IsTuple:
		ids := make([]string, len(d.Tuple))
		for i, id := range d.Tuple {
			ids[i] = h.typeID(id)
		}
		return single("Tuple", ids), nil

	case d.IsPrimitive:
		kind := int(d.Primitive.Si0TypeDefPrimitive)
		if kind < 0 || kind >= len(primitiveNames) {
			return nil, fmt.Errorf("%w: primitive kind %d", ErrNotRepresentable, kind)
		}
		return single("Primitive", primitiveNames[kind]), nil

	case d.IsCompact:
		return single("Compact", single("type", h.typeID(d.Compact.Type))), nil

	case d.IsBitSequence:
		o := newObject()
		o.Set("bitStoreType", h.typeID(d.BitSequence.BitStoreType))
		o.Set("bitOrderType", h.typeID(d.BitSequence.BitOrderType))
		return single("BitSequence", o), nil

	case d.IsHistoricMetaCompat:
		return single("HistoricMetaCompat", string(d.HistoricMetaCompat)), nil
	}

	return nil, fmt.Errorf("%w: type definition with no known kind", ErrNotRepresentable)
}

func (h *humanizer) fields(fs []types.Si1Field) []any {
	out := make([]any, 0, len(fs))
	for _, f := range fs {
		o := newObject()
		if f.HasName {
			o.Set("name", string(f.Name))
		} else {
			o.Set("name", nil)
		}
		o.Set("type", h.typeID(f.Type))
		if f.HasTypeName {
			o.Set("typeName", string(f.TypeName))
		} else {
			o.Set("typeName", nil)
		}
		o.Set("docs", texts(f.Docs))
		out = append(out, o)
	}
	return out
}

func (h *humanizer) pallet(p *types.PalletMetadataV14) (Object, error) {
	var storage any
	if p.HasStorage {
		items := make([]any, 0, len(p.Storage.Items))
		for i := range p.Storage.Items {
			item, err := h.storageEntry(&p.Storage.Items[i])
			if err != nil {
				return nil, fmt.Errorf("storage %s: %w", p.Storage.Items[i].Name, err)
			}
			items = append(items, item)
		}
		s := newObject()
		s.Set("prefix", string(p.Storage.Prefix))
		s.Set("items", items)
		storage = s
	}

	constants := make([]any, 0, len(p.Constants))
	for _, c := range p.Constants {
		o := newObject()
		o.Set("name", string(c.Name))
		o.Set("type", h.typeID(c.Type))
		o.Set("value", hexBytes(c.Value))
		o.Set("docs", texts(c.Docs))
		constants = append(constants, o)
	}

	o := newObject()
	o.Set("name", string(p.Name))
	o.Set("storage", storage)
	o.Set("calls", h.typeRef(p.HasCalls, p.Calls.Type))
	o.Set("events", h.typeRef(p.HasEvents, p.Events.Type))
	o.Set("constants", constants)
	o.Set("errors", h.typeRef(p.HasErrors, p.Errors.Type))
	o.Set("index", h.number(uint64(p.Index)))
	return o, nil
}

// typeRef renders an optional {"type": id} reference.
func (h *humanizer) typeRef(has bool, id types.Si1LookupTypeID) any {
	if !has {
		return nil
	}
	return single("type", h.typeID(id))
}

func (h *humanizer) storageEntry(e *types.StorageEntryMetadataV14) (Object, error) {
	modifier, err := modifierName(e.Modifier)
	if err != nil {
		return nil, err
	}

	var entryType Object
	switch {
	case e.Type.IsPlainType:
		entryType = single("Plain", h.typeID(e.Type.AsPlainType))
	case e.Type.IsMap:
		hashers := make([]string, len(e.Type.AsMap.Hashers))
		for i, hasher := range e.Type.AsMap.Hashers {
			name, err := hasherName(hasher)
			if err != nil {
				return nil, err
			}
			hashers[i] = name
		}
		m := newObject()
		m.Set("hashers", hashers)
		m.Set("key", h.typeID(e.Type.AsMap.Key))
		m.Set("value", h.typeID(e.Type.AsMap.Value))
		entryType = single("Map", m)
	default:
		return nil, fmt.Errorf("%w: storage entry type with no known kind", ErrNotRepresentable)
	}

	o := newObject()
	o.Set("name", string(e.Name))
	o.Set("modifier", modifier)
	o.Set("type", entryType)
	o.Set("fallback", hexBytes(e.Fallback))
	o.Set("docs", texts(e.Documentation))
	return o, nil
}

func modifierName(m types.StorageFunctionModifierV0) (string, error) {
	switch {
	case m.IsOptional:
		return "Optional", nil
	case m.IsDefault:
		return "Default", nil
	case m.IsRequired:
		return "Required", nil
	}
	return "", fmt.Errorf("%w: storage modifier with no known kind", ErrNotRepresentable)
}

func hasherName(h types.StorageHasherV10) (string, error) {
	switch {
	case h.IsBlake2_128:
		return "Blake2_128", nil
	case h.IsBlake2_256:
		return "Blake2_256", nil
	case h.IsBlake2_128Concat:
		return "Blake2_128Concat", nil
	case h.IsTwox128:
		return "Twox128", nil
	case h.IsTwox256:
		return "Twox256", nil
	case h.IsTwox64Concat:
		return "Twox64Concat", nil
	case h.IsIdentity:
		return "Identity", nil
	}
	return "", fmt.Errorf("%w: storage hasher with no known kind", ErrNotRepresentable)
}

func (h *humanizer) extrinsic(e *types.ExtrinsicV14) Object {
	exts := make([]any, 0, len(e.SignedExtensions))
	for _, se := range e.SignedExtensions {
		o := newObject()
		o.Set("identifier", string(se.Identifier))
		o.Set("type", h.typeID(se.Type))
		o.Set("additionalSigned", h.typeID(se.AdditionalSigned))
		exts = append(exts, o)
	}

	o := newObject()
	o.Set("type", h.typeID(e.Type))
	o.Set("version", h.number(uint64(e.Version)))
	o.Set("signedExtensions", exts)
	return o
}
