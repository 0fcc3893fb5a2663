package typesys

import (
	"fmt"

	json "github.com/json-iterator/go"
)

// wireType is the JSON shape of an inferredType annotation.
type wireType struct {
	Kind       string               `json:"kind"`
	Package    string               `json:"package,omitempty"`
	Name       string               `json:"name,omitempty"`
	Value      interface{}          `json:"value,omitempty"`
	Underlying *wireType            `json:"underlying,omitempty"`
	Properties map[string]*wireType `json:"properties,omitempty"`
	Signatures []wireSignature      `json:"signatures,omitempty"`
	Members    []*wireType          `json:"members,omitempty"`
}

type wireSignature struct {
	Params []wireParam `json:"params"`
	Return *wireType   `json:"return,omitempty"`
}

type wireParam struct {
	Name string    `json:"name"`
	Type *wireType `json:"type,omitempty"`
}

// Unmarshal decodes a single inferredType payload.
func Unmarshal(data []byte) (Type, error) {
	var w wireType
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode type annotation: %w", err)
	}
	return fromWire(&w)
}

// FromValue converts an already decoded JSON value (as produced by a generic
// decoder into interface{}) into a Type.
func FromValue(v interface{}) (Type, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode type annotation: %w", err)
	}
	return Unmarshal(raw)
}

// Marshal encodes t in the inferredType wire format.
func Marshal(t Type) ([]byte, error) {
	return json.Marshal(toWire(t))
}

func fromWire(w *wireType) (Type, error) {
	if w == nil {
		return nil, nil
	}
	switch w.Kind {
	case "nominative":
		if w.Name == "" {
			return nil, fmt.Errorf("nominative type without a name")
		}
		under, err := fromWire(w.Underlying)
		if err != nil {
			return nil, err
		}
		return &Nominative{Name: QualifiedName{Package: w.Package, Name: w.Name}, Underlying: under}, nil
	case "literal":
		switch w.Value.(type) {
		case string, float64, bool:
			return &Literal{Value: w.Value}, nil
		default:
			return nil, fmt.Errorf("unsupported literal value %T", w.Value)
		}
	case "primitive":
		switch PrimitiveName(w.Name) {
		case PrimitiveString, PrimitiveNumber, PrimitiveBoolean:
			return &Primitive{Name: PrimitiveName(w.Name)}, nil
		default:
			// Other primitives (symbol, bigint, undefined) are opaque to every rule.
			return Any, nil
		}
	case "object":
		obj := &Object{Properties: make(map[string]Type, len(w.Properties))}
		for name, pw := range w.Properties {
			pt, err := fromWire(pw)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", name, err)
			}
			obj.Properties[name] = pt
		}
		for _, sw := range w.Signatures {
			sig := Signature{Params: make([]Param, 0, len(sw.Params))}
			for _, p := range sw.Params {
				pt, err := fromWire(p.Type)
				if err != nil {
					return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
				}
				sig.Params = append(sig.Params, Param{Name: p.Name, Type: pt})
			}
			ret, err := fromWire(sw.Return)
			if err != nil {
				return nil, err
			}
			sig.Return = ret
			obj.Signatures = append(obj.Signatures, sig)
		}
		return obj, nil
	case "union":
		members := make([]Type, 0, len(w.Members))
		for _, mw := range w.Members {
			mt, err := fromWire(mw)
			if err != nil {
				return nil, err
			}
			members = append(members, mt)
		}
		return NewUnion(members...), nil
	case "any", "":
		return Any, nil
	default:
		return nil, fmt.Errorf("unknown type kind %q", w.Kind)
	}
}

func toWire(t Type) *wireType {
	switch v := t.(type) {
	case nil:
		return nil
	case *Nominative:
		return &wireType{Kind: "nominative", Package: v.Name.Package, Name: v.Name.Name, Underlying: toWire(v.Underlying)}
	case *Literal:
		return &wireType{Kind: "literal", Value: v.Value}
	case *Primitive:
		return &wireType{Kind: "primitive", Name: string(v.Name)}
	case *Object:
		w := &wireType{Kind: "object"}
		if len(v.Properties) > 0 {
			w.Properties = make(map[string]*wireType, len(v.Properties))
			for name, pt := range v.Properties {
				w.Properties[name] = toWire(pt)
			}
		}
		for _, sig := range v.Signatures {
			ws := wireSignature{Params: make([]wireParam, 0, len(sig.Params)), Return: toWire(sig.Return)}
			for _, p := range sig.Params {
				ws.Params = append(ws.Params, wireParam{Name: p.Name, Type: toWire(p.Type)})
			}
			w.Signatures = append(w.Signatures, ws)
		}
		return w
	case *Union:
		w := &wireType{Kind: "union"}
		for _, m := range v.Members {
			w.Members = append(w.Members, toWire(m))
		}
		return w
	default:
		return &wireType{Kind: "any"}
	}
}

func (n *Nominative) MarshalJSON() ([]byte, error) { return Marshal(n) }
func (l *Literal) MarshalJSON() ([]byte, error)    { return Marshal(l) }
func (p *Primitive) MarshalJSON() ([]byte, error)  { return Marshal(p) }
func (o *Object) MarshalJSON() ([]byte, error)     { return Marshal(o) }
func (u *Union) MarshalJSON() ([]byte, error)      { return Marshal(u) }
func (a AnyType) MarshalJSON() ([]byte, error)     { return Marshal(a) }
