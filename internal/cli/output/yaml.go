package output

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter renders data as YAML.
type YAMLFormatter struct{}

// Format writes YAML.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	if t, ok := data.(*Table); ok {
		data = t.rowMaps()
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(data)
}
