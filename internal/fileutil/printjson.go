package fileutil

import (
	"bytes"
	"encoding/json"
	"io"
)

// PrintJSON writes value to w as indented JSON followed by a newline.
func PrintJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(value)
}

// EncodeJSON returns the bytes PrintJSON would write.
func EncodeJSON(value any) ([]byte, error) {
	var buf bytes.Buffer
	if err := PrintJSON(&buf, value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
