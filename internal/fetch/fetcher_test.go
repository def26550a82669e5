package fetch

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmagro/substrate-meta/internal/config"
	"github.com/dmagro/substrate-meta/internal/metadata"
	"github.com/dmagro/substrate-meta/internal/rpc"
	"github.com/dmagro/substrate-meta/internal/rpc/rpctest"
)

// jsonBlob hex-encodes a JSON document so the fake node can serve it as a
// metadata blob; jsonDecoder reverses it.
func jsonBlob(doc string) string {
	return "0x" + hex.EncodeToString([]byte(doc))
}

var jsonDecoder = metadata.DecoderFunc(func(blob string) (any, error) {
	raw, err := hex.DecodeString(blob[2:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", metadata.ErrUndecodable, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", metadata.ErrUndecodable, err)
	}
	return doc, nil
})

func testConfig(t *testing.T, endpoint string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Node.Endpoint = endpoint
	cfg.Node.Timeout = 5 * time.Second
	cfg.Output.Path = filepath.Join(t.TempDir(), "meta.json")
	require.NoError(t, cfg.Validate())
	return cfg
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestRunWritesRenderedDocument(t *testing.T) {
	const doc = `{"pallets":[{"name":"System"}]}`
	srv := rpctest.NewServer(rpctest.Result(jsonBlob(doc)))
	defer srv.Close()

	cfg := testConfig(t, srv.Endpoint())
	res, err := New(jsonDecoder, nil).Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.JSONEq(t, doc, readFile(t, cfg.Output.Path))
	assert.Equal(t, cfg.Output.Path, res.Path)
	assert.Equal(t, len(doc), res.Bytes)
	assert.Nil(t, res.RuntimeVersion)
	assert.Equal(t, []string{"state_getMetadata"}, srv.Methods())
	assert.Equal(t, 1, srv.Connections())
}

func TestRunTwiceOverwrites(t *testing.T) {
	var calls int32
	srv := rpctest.NewServer(func(rpc.Request) rpctest.Reply {
		n := atomic.AddInt32(&calls, 1)
		return rpctest.Reply{Result: jsonBlob(fmt.Sprintf(`{"run":%d}`, n))}
	})
	defer srv.Close()

	cfg := testConfig(t, srv.Endpoint())
	f := New(jsonDecoder, nil)

	_, err := f.Run(context.Background(), cfg)
	require.NoError(t, err)
	_, err = f.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.JSONEq(t, `{"run":2}`, readFile(t, cfg.Output.Path))
}

func TestRunUnreachableLeavesFileUntouched(t *testing.T) {
	srv := rpctest.NewServer(rpctest.Result(jsonBlob(`{}`)))
	endpoint := srv.Endpoint()
	srv.Close()

	cfg := testConfig(t, endpoint)
	require.NoError(t, os.WriteFile(cfg.Output.Path, []byte("previous"), 0o644))

	_, err := New(jsonDecoder, nil).Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, KindConnection, KindOf(err))
	assert.Equal(t, 2, ExitCode(err))
	assert.Contains(t, err.Error(), "connection error: connect: dial")
	assert.Equal(t, "previous", readFile(t, cfg.Output.Path))
}

func TestRunFailuresWriteNothing(t *testing.T) {
	tests := []struct {
		name    string
		reply   rpctest.Reply
		decoder metadata.Decoder
		want    Kind
	}{
		{"empty result", rpctest.Reply{Result: ""}, jsonDecoder, KindRequest},
		{"null result", rpctest.Reply{Result: nil}, jsonDecoder, KindRequest},
		{"truncated frame", rpctest.Reply{Raw: []byte(`{"jsonrpc":"2.0","id":1,"result":"0x7b`)}, jsonDecoder, KindRequest},
		{"dropped connection", rpctest.Reply{Drop: true}, jsonDecoder, KindRequest},
		{"rpc error", rpctest.Reply{Error: &rpc.RPCError{Code: -32000, Message: "busy"}}, jsonDecoder, KindRequest},
		{"truncated blob", rpctest.Reply{Result: jsonBlob(`{"pallets":[`)}, jsonDecoder, KindRequest},
		{"unsupported version", rpctest.Reply{Result: "0x6d6574610d00"}, metadata.ScaleDecoder{}, KindSerialization},
		{"unmarshalable value", rpctest.Reply{Result: "0x00"}, metadata.DecoderFunc(func(string) (any, error) {
			return map[string]any{"bad": make(chan int)}, nil
		}), KindSerialization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := tt.reply
			srv := rpctest.NewServer(func(rpc.Request) rpctest.Reply { return reply })
			defer srv.Close()

			cfg := testConfig(t, srv.Endpoint())
			_, err := New(tt.decoder, nil).Run(context.Background(), cfg)
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err), err.Error())

			_, statErr := os.Stat(cfg.Output.Path)
			assert.True(t, errors.Is(statErr, os.ErrNotExist), "no output file on failure")
		})
	}
}

func TestRunTimeout(t *testing.T) {
	srv := rpctest.NewServer(func(rpc.Request) rpctest.Reply { return rpctest.Reply{Silent: true} })
	defer srv.Close()

	cfg := testConfig(t, srv.Endpoint())
	cfg.Node.Timeout = 50 * time.Millisecond

	_, err := New(jsonDecoder, nil).Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, KindRequest, KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunWritesRuntimeVersion(t *testing.T) {
	srv := rpctest.NewServer(func(req rpc.Request) rpctest.Reply {
		if req.Method == "state_getRuntimeVersion" {
			return rpctest.Reply{Result: map[string]any{
				"specName":    "node",
				"implName":    "substrate-node",
				"specVersion": 267,
				"apis":        [][]any{{"0xdf6acb689907609b", 4}},
			}}
		}
		return rpctest.Reply{Result: jsonBlob(`{"pallets":[]}`)}
	})
	defer srv.Close()

	cfg := testConfig(t, srv.Endpoint())
	cfg.Output.VersionPath = filepath.Join(filepath.Dir(cfg.Output.Path), "version.json")

	res, err := New(jsonDecoder, nil).Run(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, res.RuntimeVersion)
	assert.Equal(t, types.U32(267), res.RuntimeVersion.SpecVersion)
	assert.ElementsMatch(t, []string{"state_getMetadata", "state_getRuntimeVersion"}, srv.Methods())

	var written rpc.Envelope[types.RuntimeVersion]
	require.NoError(t, json.Unmarshal([]byte(readFile(t, cfg.Output.VersionPath)), &written))
	assert.Equal(t, "2.0", written.JSONRPC)
	assert.Equal(t, uint64(1), written.ID)
	assert.Equal(t, *res.RuntimeVersion, written.Result)
	assert.Equal(t, []types.RuntimeVersionAPI{{APIID: "0xdf6acb689907609b", Version: 4}}, written.Result.APIs)
}

func TestRunVersionWriteFailureKeepsMetadata(t *testing.T) {
	srv := rpctest.NewServer(func(req rpc.Request) rpctest.Reply {
		if req.Method == "state_getRuntimeVersion" {
			return rpctest.Reply{Result: map[string]any{"specName": "node", "specVersion": 267}}
		}
		return rpctest.Reply{Result: jsonBlob(`{"new":true}`)}
	})
	defer srv.Close()

	cfg := testConfig(t, srv.Endpoint())
	require.NoError(t, os.WriteFile(cfg.Output.Path, []byte("previous"), 0o644))
	cfg.Output.VersionPath = filepath.Join(t.TempDir(), "missing-dir", "version.json")

	_, err := New(jsonDecoder, nil).Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, KindIO, KindOf(err))
	assert.Equal(t, "previous", readFile(t, cfg.Output.Path))

	entries, err := os.ReadDir(filepath.Dir(cfg.Output.Path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestRunVersionFailureWritesNothing(t *testing.T) {
	srv := rpctest.NewServer(func(req rpc.Request) rpctest.Reply {
		if req.Method == "state_getRuntimeVersion" {
			return rpctest.Reply{Error: &rpc.RPCError{Code: -32601, Message: "Method not found"}}
		}
		return rpctest.Reply{Result: jsonBlob(`{}`)}
	})
	defer srv.Close()

	cfg := testConfig(t, srv.Endpoint())
	cfg.Output.VersionPath = filepath.Join(filepath.Dir(cfg.Output.Path), "version.json")

	_, err := New(jsonDecoder, nil).Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, KindRequest, KindOf(err))
	assert.Contains(t, err.Error(), "fetch runtime version")

	_, statErr := os.Stat(cfg.Output.Path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRunUnwritableOutput(t *testing.T) {
	srv := rpctest.NewServer(rpctest.Result(jsonBlob(`{}`)))
	defer srv.Close()

	cfg := testConfig(t, srv.Endpoint())
	cfg.Output.Path = filepath.Join(t.TempDir(), "missing-dir", "meta.json")

	_, err := New(jsonDecoder, nil).Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, KindIO, KindOf(err))
	assert.Equal(t, 5, ExitCode(err))
}

func TestPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	f := New(jsonDecoder, nil)

	require.NoError(t, f.Persist([]byte(`{"run":1}`), path))
	require.NoError(t, f.Persist([]byte(`{"run":2}`), path))
	assert.Equal(t, `{"run":2}`, readFile(t, path))

	err := f.Persist([]byte("{}"), filepath.Join(path, "nested.json"))
	require.Error(t, err)
	assert.Equal(t, KindIO, KindOf(err))
	assert.Equal(t, `{"run":2}`, readFile(t, path))
}

func TestRenderPretty(t *testing.T) {
	out, err := New(jsonDecoder, nil).Render(jsonBlob(`{"pallets":[{"name":"System"}]}`), true)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"pallets\": [\n    {\n      \"name\": \"System\"\n    }\n  ]\n}", string(out))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("bad flag"), 1},
		{&Error{Kind: KindConnection, Op: "connect", Err: errors.New("refused")}, 2},
		{&Error{Kind: KindRequest, Op: "fetch metadata", Err: errors.New("dropped")}, 3},
		{fmt.Errorf("wrapped: %w", &Error{Kind: KindSerialization, Op: "render", Err: errors.New("x")}), 4},
		{&Error{Kind: KindIO, Op: "write output", Err: errors.New("denied")}, 5},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
