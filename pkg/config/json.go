package config

import (
	"encoding/json"
	"io"
)

// JSONDecode decodes strictly, keeping numbers as json.Number so that
// large seeds survive the trip through map[string]any.
func JSONDecode(j io.Reader, target any) error {
	decoder := json.NewDecoder(j)
	decoder.DisallowUnknownFields()
	decoder.UseNumber()
	return decoder.Decode(target)
}
