package iotype

import "fmt"

// Field is a named member of a struct or enum variant.
type Field struct {
	Name     string
	Metadata []byte
}

// Variant is an enum variant. Variants of an enum either all have fields or none do.
type Variant struct {
	Name   string
	Fields []Field
}

func appendName(dst []byte, name string) []byte {
	if len(name) > 255 {
		panic(fmt.Sprintf("iotype: name %q is longer than 255 bytes", name))
	}
	return append(append(dst, byte(len(name))), name...)
}

func sizedTag(explicit, first Kind, firstCount, n int) ([]byte, bool) {
	if n >= firstCount && n <= 10 {
		return []byte{byte(first) + byte(n-firstCount)}, false
	}
	if n > 255 {
		panic(fmt.Sprintf("iotype: %d members do not fit the encoding", n))
	}
	return []byte{byte(explicit)}, true
}

// StructMetadata encodes a struct with named fields.
func StructMetadata(name string, fields ...Field) []byte {
	out, explicit := sizedTag(KindStruct, KindStruct0, 0, len(fields))
	out = appendName(out, name)
	if explicit {
		out = append(out, byte(len(fields)))
	}
	for _, f := range fields {
		out = appendName(out, f.Name)
		out = append(out, f.Metadata...)
	}
	return out
}

// TupleStructMetadata encodes a struct with unnamed fields.
func TupleStructMetadata(name string, fields ...[]byte) []byte {
	out, explicit := sizedTag(KindTupleStruct, KindTupleStruct1, 1, len(fields))
	out = appendName(out, name)
	if explicit {
		out = append(out, byte(len(fields)))
	}
	for _, f := range fields {
		out = append(out, f...)
	}
	return out
}

// EnumMetadata encodes an enum whose variants carry fields.
func EnumMetadata(name string, variants ...Variant) []byte {
	out, explicit := sizedTag(KindEnum, KindEnum1, 1, len(variants))
	out = appendName(out, name)
	if explicit {
		out = append(out, byte(len(variants)))
	}
	for _, v := range variants {
		out = appendName(out, v.Name)
		out = append(out, byte(len(v.Fields)))
		for _, f := range v.Fields {
			out = appendName(out, f.Name)
			out = append(out, f.Metadata...)
		}
	}
	return out
}

// EnumNoFieldsMetadata encodes a fieldless enum.
func EnumNoFieldsMetadata(name string, variants ...string) []byte {
	out, explicit := sizedTag(KindEnumNoFields, KindEnumNoFields1, 1, len(variants))
	out = appendName(out, name)
	if explicit {
		out = append(out, byte(len(variants)))
	}
	for _, v := range variants {
		out = appendName(out, v)
	}
	return out
}
