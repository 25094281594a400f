package document

import (
	"encoding/json"

	jsoniter "github.com/json-iterator/go"
	segjson "github.com/segmentio/encoding/json"
)

const indent = "    "

type stdLibrary struct{}

func (stdLibrary) Name() string { return "encoding/json" }

func (stdLibrary) MarshalIndent(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", indent)
}

func (stdLibrary) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

var jsoniterAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type jsoniterLibrary struct{}

func (jsoniterLibrary) Name() string { return "jsoniter" }

func (jsoniterLibrary) MarshalIndent(v any) ([]byte, error) {
	return jsoniterAPI.MarshalIndent(v, "", indent)
}

func (jsoniterLibrary) Unmarshal(data []byte, v any) error {
	return jsoniterAPI.Unmarshal(data, v)
}

type segmentioLibrary struct{}

func (segmentioLibrary) Name() string { return "segmentio" }

func (segmentioLibrary) MarshalIndent(v any) ([]byte, error) {
	return segjson.MarshalIndent(v, "", indent)
}

func (segmentioLibrary) Unmarshal(data []byte, v any) error {
	return segjson.Unmarshal(data, v)
}
