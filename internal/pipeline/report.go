package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteReport writes v as indented JSON followed by a newline.
func WriteReport(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
