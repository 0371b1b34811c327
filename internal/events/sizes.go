package events

import (
	"errors"
	"fmt"

	"oracleWatch/internal/codec"
	"oracleWatch/internal/metadata"
	"oracleWatch/internal/registry"
)

// ErrUnknownType is returned when an argument type cannot be sized.
var ErrUnknownType = errors.New("unknown type")

// UnknownTypeError names the type that could not be sized.
type UnknownTypeError struct {
	Name string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnknownType, e.Name)
}

func (e *UnknownTypeError) Unwrap() error {
	return ErrUnknownType
}

var primitiveWidths = map[string]int{
	"bool": 1,
	"u8":   1, "i8": 1, "Percent": 1,
	"u16": 2, "i16": 2,
	"u32": 4, "i32": 4,
	"BlockNumber": 4, "Index": 4, "AccountIndex": 4, "SessionIndex": 4, "EraIndex": 4,
	"Perbill": 4, "Permill": 4, "PropIndex": 4, "ReferendumIndex": 4, "EventIndex": 4,
	"u64": 8, "i64": 8, "Moment": 8,
	"u128": 16, "i128": 16, "Balance": 16,
	"u256": 32, "i256": 32,
	"AccountId": 32, "AccountId32": 32, "Hash": 32, "H256": 32, "AuthorityId": 32,
	"H160": 20,
	"H512": 64,
}

var byteStrings = map[string]struct{}{
	"Bytes":  {},
	"Text":   {},
	"String": {},
}

// skipType advances r past one value of type expr. Structural rules and
// built-in primitives take precedence over the registry.
func skipType(r *codec.Reader, expr metadata.TypeExpr, reg *registry.Registry) error {
	switch expr.Kind {
	case metadata.ExprVec:
		n, err := r.ReadCompact()
		if err != nil {
			return err
		}
		if width, ok := fixedWidth(expr.Elems[0], reg); ok {
			return skipFixed(r, n, width)
		}
		for i := uint64(0); i < n; i++ {
			if err := skipType(r, expr.Elems[0], reg); err != nil {
				return err
			}
		}
		return nil
	case metadata.ExprOption:
		tag, err := r.ReadByte()
		if err != nil {
			return err
		}
		if expr.Elems[0].Kind == metadata.ExprNamed && expr.Elems[0].Name == "bool" {
			if tag > 2 {
				return fmt.Errorf("invalid Option<bool> tag %d", tag)
			}
			return nil
		}
		switch tag {
		case 0:
			return nil
		case 1:
			return skipType(r, expr.Elems[0], reg)
		default:
			return fmt.Errorf("invalid Option tag %d", tag)
		}
	case metadata.ExprCompact:
		_, err := r.ReadCompact()
		return err
	case metadata.ExprTuple:
		for _, elem := range expr.Elems {
			if err := skipType(r, elem, reg); err != nil {
				return err
			}
		}
		return nil
	case metadata.ExprArray:
		if width, ok := fixedWidth(expr.Elems[0], reg); ok {
			return skipFixed(r, uint64(expr.Len), width)
		}
		for i := 0; i < expr.Len; i++ {
			if err := skipType(r, expr.Elems[0], reg); err != nil {
				return err
			}
		}
		return nil
	case metadata.ExprNamed:
		return skipNamed(r, expr.Name, reg)
	default:
		return &UnknownTypeError{Name: expr.String()}
	}
}

func skipNamed(r *codec.Reader, name string, reg *registry.Registry) error {
	if width, ok := primitiveWidths[name]; ok {
		_, err := r.ReadBytes(width)
		return err
	}
	if _, ok := byteStrings[name]; ok {
		return skipByteString(r)
	}
	rule, ok := reg.Resolve(name)
	if !ok {
		return &UnknownTypeError{Name: name}
	}
	switch rule.Kind {
	case registry.KindFixed:
		_, err := r.ReadBytes(rule.Width)
		return err
	case registry.KindCompact:
		_, err := r.ReadCompact()
		return err
	case registry.KindBytes:
		return skipByteString(r)
	default:
		return &UnknownTypeError{Name: name}
	}
}

func skipByteString(r *codec.Reader) error {
	n, err := r.ReadLength()
	if err != nil {
		return err
	}
	_, err = r.ReadBytes(n)
	return err
}

func skipFixed(r *codec.Reader, count uint64, width int) error {
	if width == 0 {
		return nil
	}
	if count > uint64(r.Remaining()/width) {
		return fmt.Errorf("%w: %d elements of %d bytes at %d, have %d", codec.ErrTruncated, count, width, r.Offset(), r.Remaining())
	}
	_, err := r.ReadBytes(int(count) * width)
	return err
}

// fixedWidth reports the constant encoded width of expr, when it has one.
func fixedWidth(expr metadata.TypeExpr, reg *registry.Registry) (int, bool) {
	switch expr.Kind {
	case metadata.ExprNamed:
		if width, ok := primitiveWidths[expr.Name]; ok {
			return width, true
		}
		if _, ok := byteStrings[expr.Name]; ok {
			return 0, false
		}
		if rule, ok := reg.Resolve(expr.Name); ok && rule.Kind == registry.KindFixed {
			return rule.Width, true
		}
		return 0, false
	case metadata.ExprTuple:
		total := 0
		for _, elem := range expr.Elems {
			width, ok := fixedWidth(elem, reg)
			if !ok {
				return 0, false
			}
			total += width
		}
		return total, true
	case metadata.ExprArray:
		width, ok := fixedWidth(expr.Elems[0], reg)
		if !ok {
			return 0, false
		}
		return width * expr.Len, true
	default:
		return 0, false
	}
}
