package snapshot

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// Supported snapshot extensions.
const (
	ExtJSON    = ".json"
	ExtGob     = ".gob"
	ExtJSONLZ4 = ".json.lz4"
)

// ErrUnknownExtension is returned when a snapshot path carries an extension
// no codec handles.
var ErrUnknownExtension = errors.New("unknown snapshot extension")

type codec interface {
	encode(w io.Writer, state *State) error
	decode(r io.Reader, state *State) error
}

func codecFor(ext string) (codec, error) {
	switch ext {
	case ExtJSON:
		return jsonCodec{}, nil
	case ExtGob:
		return gobCodec{}, nil
	case ExtJSONLZ4:
		return lz4Codec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtension, ext)
	}
}

// extensionOf returns the codec extension of path, treating the compound
// ".json.lz4" as one extension.
func extensionOf(path string) string {
	if strings.HasSuffix(path, ExtJSONLZ4) {
		return ExtJSONLZ4
	}

	if dot := strings.LastIndex(path, "."); dot >= 0 {
		return path[dot:]
	}

	return ""
}

// jsonCodec writes pretty-printed JSON for human inspection and diffing.
type jsonCodec struct{}

func (jsonCodec) encode(w io.Writer, state *State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")

	return enc.Encode(state)
}

func (jsonCodec) decode(r io.Reader, state *State) error {
	return json.NewDecoder(r).Decode(state)
}

// gobCodec is the compact binary form for frequent automated runs.
type gobCodec struct{}

func (gobCodec) encode(w io.Writer, state *State) error {
	return gob.NewEncoder(w).Encode(state)
}

func (gobCodec) decode(r io.Reader, state *State) error {
	return gob.NewDecoder(r).Decode(state)
}

// lz4Codec frames the JSON form with LZ4 for large long-range snapshots.
type lz4Codec struct{}

func (lz4Codec) encode(w io.Writer, state *State) error {
	zw := lz4.NewWriter(w)

	err := json.NewEncoder(zw).Encode(state)
	if err != nil {
		zw.Close()

		return err
	}

	return zw.Close()
}

func (lz4Codec) decode(r io.Reader, state *State) error {
	return json.NewDecoder(lz4.NewReader(r)).Decode(state)
}
