package transcode

import (
	"icstable/internal/model"
	"icstable/internal/value"
)

// PropertyToValue encodes one property as {name, value, params}. A missing
// value or parameter list becomes nothing rather than being left out.
func PropertyToValue(p model.Property, span value.Span) value.Value {
	v := value.Nothing(span)
	if p.Value != nil {
		v = value.String(*p.Value, span)
	}
	params := value.Nothing(span)
	if p.Params != nil {
		params = paramsToValue(p.Params, span)
	}

	r := value.NewRecord(3)
	r.Push("name", value.String(p.Name, span))
	r.Push("value", v)
	r.Push("params", params)
	return value.RecordOf(r, span)
}

func propertiesToValue(props []model.Property, span value.Span) value.Value {
	return listOf(props, span, PropertyToValue)
}

// paramsToValue builds {PARAM: [v1, v2, ...]}. Should a name occur twice
// in the slice, the lists are concatenated under the first position so no
// value is dropped.
func paramsToValue(params []model.Param, span value.Span) value.Value {
	r := value.NewRecord(len(params))
	for _, p := range params {
		vals := make([]value.Value, 0, len(p.Values))
		if prev, ok := r.Get(p.Name); ok {
			existing, _ := prev.AsList()
			vals = append(vals, existing...)
		}
		for _, s := range p.Values {
			vals = append(vals, value.String(s, span))
		}
		r.Insert(p.Name, value.List(vals, span))
	}
	return value.RecordOf(r, span)
}
