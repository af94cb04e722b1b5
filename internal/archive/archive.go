// Package archive bundles a text reply and its synthesized audio into one
// downloadable zip stream.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
)

// Build writes reply.json and audio.<format> into a zip archive and returns
// it as a seekable reader positioned at offset zero. Both entries are always
// present, even for an empty reply.
func Build(replyText string, audio []byte, format string) (*bytes.Reader, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	textPayload, err := json.Marshal(map[string]string{"text": replyText})
	if err != nil {
		return nil, fmt.Errorf("marshal reply entry: %w", err)
	}

	w, err := zw.Create("reply.json")
	if err != nil {
		return nil, fmt.Errorf("create reply entry: %w", err)
	}
	if _, err := w.Write(textPayload); err != nil {
		return nil, fmt.Errorf("write reply entry: %w", err)
	}

	w, err = zw.Create("audio." + format)
	if err != nil {
		return nil, fmt.Errorf("create audio entry: %w", err)
	}
	if _, err := w.Write(audio); err != nil {
		return nil, fmt.Errorf("write audio entry: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return bytes.NewReader(buf.Bytes()), nil
}
