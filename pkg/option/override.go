package option

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/golobby/cast"

	"github.com/goliatone/go-optionform/pkg/mask"
	"github.com/goliatone/go-optionform/pkg/model"
)

// overrideValue types a constant override according to the descriptor:
// booleans and numbers are cast, composite values are parsed as JSON, and
// plain text passes through.
func overrideValue(d model.Descriptor, raw string) (mask.Value, error) {
	switch {
	case d.Kind == model.KindObject, d.Kind == model.KindGroup, d.Multiple():
		var v mask.Value
		if err := v.UnmarshalJSON([]byte(strings.TrimSpace(raw))); err != nil {
			return mask.Null(), fmt.Errorf("option: override for %q: %w", d.Name, err)
		}
		return v, nil
	case d.Kind == model.KindBool:
		out, err := cast.FromType(strings.TrimSpace(raw), reflect.TypeOf(false))
		if err != nil {
			return mask.Null(), fmt.Errorf("option: override for %q: %w", d.Name, err)
		}
		return mask.Bool(out.(bool)), nil
	case d.Kind == model.KindNumber && d.Float:
		out, err := cast.FromType(strings.TrimSpace(raw), reflect.TypeOf(float64(0)))
		if err != nil {
			return mask.Null(), fmt.Errorf("option: override for %q: %w", d.Name, err)
		}
		return mask.Float(out.(float64)), nil
	case d.Kind == model.KindNumber:
		out, err := cast.FromType(strings.TrimSpace(raw), reflect.TypeOf(int64(0)))
		if err != nil {
			return mask.Null(), fmt.Errorf("option: override for %q: %w", d.Name, err)
		}
		return mask.Int(out.(int64)), nil
	default:
		return mask.String(raw), nil
	}
}
