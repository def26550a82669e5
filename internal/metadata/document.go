package metadata

import (
	"encoding/json"
	"fmt"

	"github.com/dmagro/substrate-meta/internal/rpc"
)

// Document is a typed view of the human form, used to summarize a metadata
// file without walking the untyped tree.
type Document struct {
	Lookup struct {
		Types []json.RawMessage `json:"types"`
	} `json:"lookup"`
	Pallets   []Pallet  `json:"pallets"`
	Extrinsic Extrinsic `json:"extrinsic"`
}

type Pallet struct {
	Name      string     `json:"name"`
	Storage   *Storage   `json:"storage"`
	Calls     *TypeRef   `json:"calls"`
	Events    *TypeRef   `json:"events"`
	Constants []Constant `json:"constants"`
	Errors    *TypeRef   `json:"errors"`
	Index     string     `json:"index"`
}

type Storage struct {
	Prefix string        `json:"prefix"`
	Items  []StorageItem `json:"items"`
}

type StorageItem struct {
	Name     string                     `json:"name"`
	Modifier string                     `json:"modifier"`
	Type     map[string]json.RawMessage `json:"type"`
	Fallback string                     `json:"fallback"`
	Docs     []string                   `json:"docs"`
}

// TypeRef points into the lookup table.
type TypeRef struct {
	Type string `json:"type"`
}

type Constant struct {
	Name  string   `json:"name"`
	Type  string   `json:"type"`
	Value string   `json:"value"`
	Docs  []string `json:"docs"`
}

type Extrinsic struct {
	Type             string `json:"type"`
	Version          string `json:"version"`
	SignedExtensions []struct {
		Identifier string `json:"identifier"`
	} `json:"signedExtensions"`
}

// ParseDocument reads either output format. A raw envelope is decoded with
// ScaleDecoder first.
func ParseDocument(data []byte) (*Document, error) {
	var env rpc.Envelope[string]
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse metadata document: %w", err)
	}
	if env.Result != "" {
		tree, err := ScaleDecoder{}.Decode(env.Result)
		if err != nil {
			return nil, err
		}
		if data, err = json.Marshal(tree); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotRepresentable, err)
		}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse metadata document: %w", err)
	}
	return &doc, nil
}
