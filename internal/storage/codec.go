package storage

import (
	"bytes"
	"database/sql"
	"encoding/json"

	"github.com/mrzor/buildlens/internal/buildevent"
	"github.com/mrzor/buildlens/internal/compiler"
	"github.com/mrzor/buildlens/internal/result"
)

type propertyRecord struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type itemRecord struct {
	Type     string            `json:"type"`
	Spec     string            `json:"spec"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type compilerRecord struct {
	Language         string   `json:"language"`
	Command          string   `json:"command"`
	Arguments        []string `json:"arguments"`
	CommandLine      string   `json:"commandLine"`
	WorkingDirectory string   `json:"workingDirectory"`
}

// encodeResult renders the snapshot and compiler columns of r. Arrays keep
// property and item order.
func encodeResult(r *result.Result) (props, items string, cmd sql.NullString, err error) {
	propList := make([]propertyRecord, 0, r.Properties().Len())
	for _, p := range r.Properties().All() {
		propList = append(propList, propertyRecord{Name: p.Name, Value: p.Value})
	}
	b, err := json.Marshal(propList)
	if err != nil {
		return "", "", cmd, err
	}
	props = string(b)

	itemList := []itemRecord{}
	all := r.Items()
	for _, typ := range all.Types() {
		for _, it := range all.Get(typ) {
			itemList = append(itemList, itemRecord{Type: typ, Spec: it.Spec, Metadata: it.Metadata})
		}
	}
	if b, err = json.Marshal(itemList); err != nil {
		return "", "", cmd, err
	}
	items = string(b)

	if c, ok := r.Compiler(); ok {
		b, err = json.Marshal(compilerRecord{
			Language:         c.Language.String(),
			Command:          c.Command,
			Arguments:        c.Arguments,
			CommandLine:      c.CommandLine,
			WorkingDirectory: c.WorkingDirectory,
		})
		if err != nil {
			return "", "", cmd, err
		}
		cmd = sql.NullString{String: string(b), Valid: true}
	}
	return props, items, cmd, nil
}

func decodeResult(projectFile, tfm, status, props, items string, cmd sql.NullString) (*result.Result, error) {
	var propList []propertyRecord
	if err := unmarshal(props, &propList); err != nil {
		return nil, err
	}
	rawProps := make([]buildevent.Property, len(propList))
	for i, p := range propList {
		rawProps[i] = buildevent.Property{Name: p.Name, Value: number(p.Value)}
	}

	var itemList []itemRecord
	if err := unmarshal(items, &itemList); err != nil {
		return nil, err
	}
	rawItems := make([]buildevent.Item, len(itemList))
	for i, it := range itemList {
		rawItems[i] = buildevent.Item{Type: it.Type, Spec: it.Spec, Metadata: it.Metadata}
	}

	var c *compiler.Command
	if cmd.Valid {
		var rec compilerRecord
		if err := unmarshal(cmd.String, &rec); err != nil {
			return nil, err
		}
		c = &compiler.Command{
			Language:         compiler.ParseLanguage(rec.Language),
			Command:          rec.Command,
			Arguments:        rec.Arguments,
			CommandLine:      rec.CommandLine,
			WorkingDirectory: rec.WorkingDirectory,
		}
	}

	data := result.NewPropertiesAndItems(rawProps, rawItems)
	return result.Restore(projectFile, tfm, result.ParseStatus(status), data, c), nil
}

func unmarshal(s string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	return dec.Decode(v)
}

// number turns decoded JSON numbers back into int64 when they are integral.
func number(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
