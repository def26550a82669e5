package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
)

// GetMetadata calls state_getMetadata and returns the SCALE-encoded runtime
// metadata of the best block as a 0x-prefixed hex string.
func (c *Client) GetMetadata(ctx context.Context) (string, error) {
	resp, err := c.Call(ctx, "state_getMetadata")
	if err != nil {
		return "", err
	}

	var blob string
	if err := json.Unmarshal(resp.Result, &blob); err != nil {
		return "", fmt.Errorf("%w: state_getMetadata: %v", ErrMalformedResult, err)
	}
	if blob == "" || blob == "0x" {
		return "", fmt.Errorf("%w: state_getMetadata", ErrEmptyResult)
	}
	if !IsHex(blob) {
		return "", fmt.Errorf("%w: state_getMetadata result is not 0x-prefixed hex", ErrMalformedResult)
	}

	return blob, nil
}

// GetRuntimeVersion calls state_getRuntimeVersion for the best block.
//
//	{"specName":"node","implName":"substrate-node","authoringVersion":10,
//	 "specVersion":267,"implVersion":0,"apis":[["0xdf6acb689907609b",4]],
//	 "transactionVersion":2,"stateVersion":1}
func (c *Client) GetRuntimeVersion(ctx context.Context) (*types.RuntimeVersion, error) {
	resp, err := c.Call(ctx, "state_getRuntimeVersion")
	if err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil, fmt.Errorf("%w: state_getRuntimeVersion", ErrEmptyResult)
	}

	var version types.RuntimeVersion
	if err := json.Unmarshal(resp.Result, &version); err != nil {
		return nil, fmt.Errorf("%w: state_getRuntimeVersion: %v", ErrMalformedResult, err)
	}
	return &version, nil
}

// IsHex reports whether s is a 0x-prefixed string of an even number of hex digits.
func IsHex(s string) bool {
	if !strings.HasPrefix(s, "0x") {
		return false
	}
	digits := s[2:]
	if len(digits)%2 != 0 {
		return false
	}
	for i := 0; i < len(digits); i++ {
		switch ch := digits[i]; {
		case ch >= '0' && ch <= '9', ch >= 'a' && ch <= 'f', ch >= 'A' && ch <= 'F':
		default:
			return false
		}
	}
	return true
}
