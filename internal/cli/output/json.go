package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter renders data as indented JSON. Tables are rendered as
// their underlying rows for scripting.
type JSONFormatter struct{}

// Format writes indented JSON.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	if t, ok := data.(*Table); ok {
		data = t.rowMaps()
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
