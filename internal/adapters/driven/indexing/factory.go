package indexing

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/revstore/internal/core/domain"
	"github.com/custodia-labs/revstore/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.RevisionFactory = (*Factory)(nil)

// Factory builds revisions from resources using a fixed set of definitions.
type Factory struct {
	defs *Definitions
	hash string
	now  func() time.Time
}

// NewFactory creates a factory over defs.
func NewFactory(defs *Definitions) (*Factory, error) {
	if defs == nil {
		return nil, fmt.Errorf("%w: definitions are nil", domain.ErrInvalidArgument)
	}
	return &Factory{defs: defs, hash: defs.Hash(), now: time.Now}, nil
}

// Create serializes resource and computes its index entries.
//
// Request metadata and claims come from the domain.RequestContext carried
// by ctx. Without one, the request is recorded as a PUT to Type/id.
func (f *Factory) Create(ctx context.Context, resource *domain.Resource, deleted bool) (*domain.ResourceRevision, error) {
	if resource == nil {
		return nil, fmt.Errorf("%w: resource is nil", domain.ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(resource)
	if err != nil {
		return nil, fmt.Errorf("serializing %s: %w", resource.Key(), err)
	}

	request := domain.ResourceRequest{Method: "PUT", URI: resource.Type + "/" + resource.ID}
	var claims []domain.Claim
	if rc, ok := domain.RequestContextFrom(ctx); ok {
		if rc.Method != "" {
			request.Method = rc.Method
		}
		if rc.URI != "" {
			request.URI = rc.URI
		}
		claims = append(claims, rc.Claims...)
	}

	body := resource.Body()
	entries := f.index(resource.Type, body)

	return &domain.ResourceRevision{
		ResourceID:          resource.ID,
		ResourceType:        resource.Type,
		Raw:                 domain.RawResource{Data: string(data), Format: domain.FormatJSON},
		Request:             request,
		LastModified:        f.now().UTC(),
		IsDeleted:           deleted,
		SearchIndices:       entries,
		CompartmentIndices:  f.compartments(resource.Type, entries),
		LastModifiedClaims:  claims,
		SearchParameterHash: f.hash,
	}, nil
}

// index extracts the entries of every applicable parameter.
func (f *Factory) index(resourceType string, body map[string]any) []domain.SearchIndexEntry {
	var entries []domain.SearchIndexEntry

	for _, def := range f.defs.For(resourceType) {
		valueType := f.defs.valueTypes[def.Code]
		param := domain.SearchParameterInfo{Code: def.Code, URL: def.URL, Type: valueType}

		var values []domain.SearchValue
		for _, raw := range extract(body, strings.Split(def.Path, ".")) {
			if v, ok := canonical(valueType, raw); ok {
				values = append(values, domain.SearchValue{Type: valueType, Value: v})
			}
		}
		if valueType.Sortable() {
			assignRoles(valueType, values)
		}

		for _, v := range values {
			entries = append(entries, domain.SearchIndexEntry{Param: param, Value: v})
		}
	}

	return entries
}

// compartments maps reference entries onto compartment memberships. A
// reference "Patient/123" places the resource in Patient compartment 123.
func (f *Factory) compartments(resourceType string, entries []domain.SearchIndexEntry) domain.CompartmentIndices {
	params := f.defs.compartmentParams(resourceType)
	if len(params) == 0 {
		return nil
	}

	out := make(domain.CompartmentIndices)
	for _, e := range entries {
		for _, compartmentType := range params[e.Param.Code] {
			targetType, id, ok := strings.Cut(e.Value.Value, "/")
			if !ok || targetType != compartmentType || id == "" {
				continue
			}
			if !containsString(out[compartmentType], id) {
				out[compartmentType] = append(out[compartmentType], id)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	for k := range out {
		sort.Strings(out[k])
	}
	return out
}

// extract walks path through node, flattening arrays on the way.
func extract(node any, path []string) []any {
	switch n := node.(type) {
	case []any:
		var out []any
		for _, item := range n {
			out = append(out, extract(item, path)...)
		}
		return out
	case nil:
		return nil
	}

	if len(path) == 0 {
		return []any{node}
	}
	m, ok := node.(map[string]any)
	if !ok {
		return nil
	}
	return extract(m[path[0]], path[1:])
}

// canonical renders a raw JSON value in the form stored for valueType.
func canonical(valueType domain.ValueType, raw any) (string, bool) {
	switch valueType {
	case domain.ValueToken:
		return tokenValue(raw)
	case domain.ValueReference:
		if m, ok := raw.(map[string]any); ok {
			ref, _ := m["reference"].(string)
			return ref, ref != ""
		}
		s, ok := raw.(string)
		return s, ok && s != ""
	case domain.ValueNumber:
		switch v := raw.(type) {
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		case string:
			if _, err := strconv.ParseFloat(v, 64); err == nil {
				return v, true
			}
		}
		return "", false
	case domain.ValueString:
		s, ok := raw.(string)
		return strings.ToLower(s), ok && s != ""
	default:
		s, ok := raw.(string)
		return s, ok && s != ""
	}
}

// tokenValue renders codes as "system|code". Identifier-shaped objects use
// their value field.
func tokenValue(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, v != ""
	case bool:
		return strconv.FormatBool(v), true
	case map[string]any:
		system, _ := v["system"].(string)
		code, _ := v["code"].(string)
		if code == "" {
			code, _ = v["value"].(string)
		}
		if code == "" {
			return "", false
		}
		if system == "" {
			return code, true
		}
		return system + "|" + code, true
	}
	return "", false
}

// assignRoles tags the lowest value Min and the highest Max. A parameter
// with a single value, or whose lowest and highest are the same entry, gets
// Both. Ties keep the first lowest and the last highest.
func assignRoles(valueType domain.ValueType, values []domain.SearchValue) {
	if len(values) == 0 {
		return
	}

	lo, hi := 0, 0
	for i := 1; i < len(values); i++ {
		if less(valueType, values[i].Value, values[lo].Value) {
			lo = i
		}
		if !less(valueType, values[i].Value, values[hi].Value) {
			hi = i
		}
	}

	if lo == hi {
		values[lo].Role = domain.RangeBoth
		return
	}
	values[lo].Role = domain.RangeMin
	values[hi].Role = domain.RangeMax
}

func less(valueType domain.ValueType, a, b string) bool {
	if valueType == domain.ValueNumber {
		x, errA := strconv.ParseFloat(a, 64)
		y, errB := strconv.ParseFloat(b, 64)
		if errA == nil && errB == nil {
			return x < y
		}
	}
	return a < b
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
