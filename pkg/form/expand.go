package form

import (
	"context"

	"github.com/goliatone/go-optionform/pkg/mask"
)

// Expand resolves every option into a nested map keyed by route segments,
// in outline order.
func (f *Form) Expand(ctx context.Context) (mask.Value, error) {
	return expandNode(ctx, f.tree.Root())
}

func expandNode(ctx context.Context, n *Node) (mask.Value, error) {
	out := mask.NewMap()
	for _, child := range n.children {
		if child.IsLeaf() {
			value, err := child.Option.Value(ctx)
			if err != nil {
				return mask.Null(), err
			}
			out.Set(child.Key, value)
			continue
		}
		nested, err := expandNode(ctx, child)
		if err != nil {
			return mask.Null(), err
		}
		out.Set(child.Key, nested)
	}
	return mask.FromMap(out), nil
}
