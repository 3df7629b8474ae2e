package insights

import "github.com/bytedance/sonic"

// api is the JSON codec for every request and response body.
var api = sonic.Config{
	SortMapKeys:      true,
	CompactMarshaler: true,
	ValidateString:   true,
}.Froze()

func marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

func unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// MarshalString renders v as compact JSON, for display of values that have
// no better textual form.
func MarshalString(v any) (string, error) {
	return api.MarshalToString(v)
}
