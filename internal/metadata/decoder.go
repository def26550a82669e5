// Package metadata turns the SCALE-encoded runtime metadata returned by
// state_getMetadata into plain structured values ready for JSON encoding.
package metadata

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/dmagro/substrate-meta/internal/config"
	"github.com/dmagro/substrate-meta/internal/rpc"
)

// LatestVersion is the newest metadata version this package renders.
const LatestVersion = 14

// magic is "meta" in little-endian order, the prefix of every metadata blob.
const magic = "6d657461"

var (
	// ErrUndecodable marks a blob that is not valid SCALE metadata.
	ErrUndecodable = errors.New("metadata: undecodable blob")
	// ErrUnsupportedVersion marks well-formed metadata of a version we cannot render.
	ErrUnsupportedVersion = errors.New("metadata: unsupported version")
	// ErrNotRepresentable marks a decoded value with no human form.
	ErrNotRepresentable = errors.New("metadata: value not representable")
)

// Object is an insertion-ordered JSON object.
type Object = *orderedmap.OrderedMap[string, any]

func newObject() Object {
	return orderedmap.New[string, any]()
}

// Decoder converts a 0x-prefixed metadata blob into a plain structured value
// (objects, arrays, strings, nil) that encoding/json can marshal.
type Decoder interface {
	Decode(blob string) (any, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(blob string) (any, error)

func (f DecoderFunc) Decode(blob string) (any, error) { return f(blob) }

// ForFormat returns the decoder behind an output format.
func ForFormat(format string) (Decoder, error) {
	switch format {
	case config.FormatHuman, "":
		return ScaleDecoder{}, nil
	case config.FormatRaw:
		return RawDecoder{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// ScaleDecoder decodes the blob and renders the latest metadata version the
// way polkadot.js prints metadata.asLatest.toHuman().
type ScaleDecoder struct{}

func (ScaleDecoder) Decode(blob string) (doc any, err error) {
	version, err := peekVersion(blob)
	if err != nil {
		return nil, err
	}
	if version != LatestVersion {
		return nil, fmt.Errorf("%w: v%d (only v%d is supported)", ErrUnsupportedVersion, version, LatestVersion)
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(blob, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if err := checkBounds(raw[5:]); err != nil {
		return nil, err
	}

	// checkBounds caps allocation sizes; any other decoder panic is still a
	// malformed blob.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("%w: %v", ErrUndecodable, r)
		}
	}()

	var meta types.Metadata
	if err := codec.Decode(raw, &meta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	return newHumanizer().metadataV14(&meta.AsMetadataV14)
}

// peekVersion checks the magic prefix and returns the version byte without
// decoding the rest of the blob.
func peekVersion(blob string) (int, error) {
	hexDigits := strings.TrimPrefix(blob, "0x")
	if len(hexDigits) < len(magic)+2 {
		return 0, fmt.Errorf("%w: %d hex digits is too short", ErrUndecodable, len(hexDigits))
	}
	if !strings.EqualFold(hexDigits[:len(magic)], magic) {
		return 0, fmt.Errorf("%w: missing metadata magic prefix", ErrUndecodable)
	}

	var version int
	if _, err := fmt.Sscanf(hexDigits[len(magic):len(magic)+2], "%02x", &version); err != nil {
		return 0, fmt.Errorf("%w: bad version byte: %v", ErrUndecodable, err)
	}
	return version, nil
}

// RawDecoder keeps the blob undecoded and wraps it in the JSON-RPC envelope
// that code generators read as their metadata input.
type RawDecoder struct{}

func (RawDecoder) Decode(blob string) (any, error) {
	if blob == "" {
		return nil, fmt.Errorf("%w: empty blob", ErrUndecodable)
	}
	return rpc.NewEnvelope(blob), nil
}
