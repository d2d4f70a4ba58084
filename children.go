package territories

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/paulstuart/go-territories/dataset"
)

type childSet struct {
	order  []*Node
	byCode map[string]*Node
}

// Children in code order, built on first access
func (n *Node) Children() ([]*Node, error) {
	cs, err := n.kids.get(n.loadChildren)
	if err != nil {
		return nil, err
	}
	return cs.order, nil
}

// Child looks up a direct child, settlements placed by LocateSettlement included
func (n *Node) Child(code string) (*Node, error) {
	cs, err := n.kids.get(n.loadChildren)
	if err != nil {
		return nil, err
	}
	if c, ok := cs.byCode[code]; ok {
		return c, nil
	}
	n.mu.Lock()
	c, ok := n.adopted[code]
	n.mu.Unlock()
	if ok {
		return c, nil
	}
	return nil, fmt.Errorf("%s has no child %q: %w", n, code, ErrCodeNotFound)
}

func (n *Node) loadChildren() (*childSet, error) {
	byCode := make(map[string]*Node)
	child := capabilities[n.variant].child

	switch n.variant {
	case VariantWorld:
		for _, code := range n.env.countries.Distinct("Continent") {
			byCode[code] = n.newChild(child, code, nil, dataset.Row{})
		}
	case VariantContinent:
		countries := n.env.countries
		for _, r := range countries.Rows {
			if countries.Get(r, "Continent") != n.code {
				continue
			}
			code := countries.Get(r, "ISO")
			byCode[code] = n.newChild(child, code, countries, r)
		}
	case VariantCountry, VariantRegion, VariantCounty:
		t, err := n.settlements.Materialize()
		if err != nil {
			return nil, err
		}
		for _, code := range t.Distinct(capabilities[child].settlements) {
			byCode[code] = n.newChild(child, code, nil, dataset.Row{})
		}
	case VariantCommunity:
		t, err := n.settlements.Materialize()
		if err != nil {
			return nil, err
		}
		if t != nil {
			for _, r := range t.Rows {
				id := t.Get(r, "geonameid")
				byCode[id] = n.newChild(child, id, t, r)
			}
		}
	}

	codes := maps.Keys(byCode)
	slices.Sort(codes)
	cs := &childSet{order: make([]*Node, len(codes)), byCode: byCode}
	for i, code := range codes {
		cs.order[i] = byCode[code]
	}
	log.Debug().Object("node", n).Int("children", len(codes)).Msg("Children loaded")
	return cs, nil
}

// adopt registers a settlement that is not one of the node's own settlement rows
func (n *Node) adopt(t *dataset.Table, r dataset.Row) *Node {
	id := t.Get(r, "geonameid")
	n.mu.Lock()
	defer n.mu.Unlock()
	if c, ok := n.adopted[id]; ok {
		return c
	}
	if n.adopted == nil {
		n.adopted = make(map[string]*Node)
	}
	c := n.newChild(VariantSettlement, id, t, r)
	n.adopted[id] = c
	return c
}
