package result

import (
	"fmt"
	"strings"

	"github.com/mrzor/buildlens/internal/buildevent"
)

// Property is an evaluated property and its typed value.
type Property struct {
	Name  string
	Value any
}

// String renders the value; nil renders as the empty string.
func (p Property) String() string {
	if p.Value == nil {
		return ""
	}
	if s, ok := p.Value.(string); ok {
		return s
	}
	return fmt.Sprint(p.Value)
}

// Properties is an immutable, ordered property set. Lookups ignore case, as
// property names do in the build engine.
type Properties struct {
	list  []Property
	index map[string]int
}

// NewProperties builds a property set. A later duplicate (ignoring case)
// replaces the earlier value but keeps its position.
func NewProperties(raw []buildevent.Property) Properties {
	p := Properties{index: make(map[string]int, len(raw))}
	for _, r := range raw {
		key := strings.ToLower(r.Name)
		if i, ok := p.index[key]; ok {
			p.list[i].Value = r.Value
			continue
		}
		p.index[key] = len(p.list)
		p.list = append(p.list, Property{Name: r.Name, Value: r.Value})
	}
	return p
}

// Get returns the named property.
func (p Properties) Get(name string) (Property, bool) {
	i, ok := p.index[strings.ToLower(name)]
	if !ok {
		return Property{}, false
	}
	return p.list[i], true
}

// Value returns the string value of the named property, or "" when absent.
func (p Properties) Value(name string) string {
	prop, _ := p.Get(name)
	return prop.String()
}

// Len returns the number of properties.
func (p Properties) Len() int { return len(p.list) }

// All returns the properties in evaluation order.
func (p Properties) All() []Property {
	return append([]Property(nil), p.list...)
}

// Map returns the properties as name -> string value.
func (p Properties) Map() map[string]string {
	m := make(map[string]string, len(p.list))
	for _, prop := range p.list {
		m[prop.Name] = prop.String()
	}
	return m
}

// Item is one evaluated item: its spec (usually a path) and metadata.
type Item struct {
	Spec     string
	Metadata map[string]string
}

// Meta returns a metadata value, ignoring the case of the name.
func (i Item) Meta(name string) string {
	if v, ok := i.Metadata[name]; ok {
		return v
	}
	for k, v := range i.Metadata {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// ItemGroup holds every item of one item type.
type ItemGroup struct {
	Type  string
	Items []Item
}

// Items is an immutable, ordered collection of item groups.
type Items struct {
	groups []ItemGroup
	index  map[string]int
}

// NewItems groups raw items by type, keeping first-seen type order and item order.
func NewItems(raw []buildevent.Item) Items {
	it := Items{index: make(map[string]int)}
	for _, r := range raw {
		key := strings.ToLower(r.Type)
		i, ok := it.index[key]
		if !ok {
			i = len(it.groups)
			it.index[key] = i
			it.groups = append(it.groups, ItemGroup{Type: r.Type})
		}
		meta := make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		it.groups[i].Items = append(it.groups[i].Items, Item{Spec: r.Spec, Metadata: meta})
	}
	return it
}

// Get returns the items of the given type.
func (it Items) Get(itemType string) []Item {
	i, ok := it.index[strings.ToLower(itemType)]
	if !ok {
		return nil
	}
	return it.groups[i].Items
}

// Types returns the item types in first-seen order.
func (it Items) Types() []string {
	types := make([]string, len(it.groups))
	for i, g := range it.groups {
		types[i] = g.Type
	}
	return types
}

// Len returns the number of item types.
func (it Items) Len() int { return len(it.groups) }

// Specs returns item type -> item specs.
func (it Items) Specs() map[string][]string {
	m := make(map[string][]string, len(it.groups))
	for _, g := range it.groups {
		specs := make([]string, len(g.Items))
		for i, item := range g.Items {
			specs[i] = item.Spec
		}
		m[g.Type] = specs
	}
	return m
}

// PropertiesAndItems is the snapshot produced by one evaluation.
type PropertiesAndItems struct {
	Properties Properties
	Items      Items
}

// NewPropertiesAndItems converts raw event data into a snapshot.
func NewPropertiesAndItems(props []buildevent.Property, items []buildevent.Item) *PropertiesAndItems {
	return &PropertiesAndItems{
		Properties: NewProperties(props),
		Items:      NewItems(items),
	}
}

// TargetFramework returns the snapshot's target framework moniker, or "".
func (pi *PropertiesAndItems) TargetFramework() string {
	if pi == nil {
		return ""
	}
	return pi.Properties.Value("TargetFrameworkMoniker")
}
