// Package fetch runs the metadata pipeline: connect to the node, request the
// runtime metadata, render it, and write it to disk.
//
// A run makes exactly one attempt. Every step's failure is returned as an
// *Error carrying its Kind, and nothing is written unless every earlier step
// succeeded.
package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dmagro/substrate-meta/internal/config"
	"github.com/dmagro/substrate-meta/internal/logging"
	"github.com/dmagro/substrate-meta/internal/metadata"
	"github.com/dmagro/substrate-meta/internal/report"
	"github.com/dmagro/substrate-meta/internal/rpc"
)

// Fetcher holds the collaborators of a run.
type Fetcher struct {
	Decoder metadata.Decoder
	Log     logrus.FieldLogger
}

// New returns a Fetcher using decoder and log. A nil log discards output.
func New(decoder metadata.Decoder, log logrus.FieldLogger) *Fetcher {
	if log == nil {
		log = logging.NewNop()
	}
	return &Fetcher{Decoder: decoder, Log: log}
}

// Result describes a successful run.
type Result struct {
	Endpoint       string
	Path           string
	Bytes          int
	VersionPath    string
	RuntimeVersion *types.RuntimeVersion
	Elapsed        time.Duration
}

// Run executes connect → request → render → write against cfg.
//
// Parameters:
//   - ctx: Cancels the run; cfg.Node.Timeout, when > 0, adds a deadline
//     covering the dial and every request
//   - cfg: Validated configuration naming the node and the output files
//
// Returns:
//   - *Result: What was written, for the summary line
//   - error: An *Error whose Kind names the failed step
//
// Output guarantees:
//   - Nothing is written unless the metadata and, when output.version_path
//     is set, the runtime version were both fetched and rendered
//   - Both files are staged to temporary names before either is renamed
//     into place, so a write failure leaves every existing file untouched
//   - The runtime version file is written as a JSON-RPC envelope
//     ({"jsonrpc":"2.0","result":{...},"id":1}), the shape of a captured
//     state_getRuntimeVersion response
func (f *Fetcher) Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	start := time.Now()
	if cfg.Node.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Node.Timeout)
		defer cancel()
	}

	log := f.Log.WithField("endpoint", cfg.Node.Endpoint)

	conn, err := f.Connect(ctx, cfg.Node)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	log.Debug("connected")

	blob, version, err := f.fetchAll(ctx, conn, cfg.Output.VersionPath != "")
	if err != nil {
		return nil, err
	}
	log.WithField("bytes", len(blob)/2-1).Debug("metadata received")

	rendered, err := f.Render(blob, cfg.Output.Pretty)
	if err != nil {
		return nil, err
	}

	// The metadata file goes last so that it is replaced only once every
	// other file is in place.
	var files []report.File
	if version != nil {
		versionDoc, err := report.Marshal(rpc.NewEnvelope(version), cfg.Output.Pretty)
		if err != nil {
			return nil, &Error{Kind: KindSerialization, Op: "render runtime version", Err: err}
		}
		files = append(files, report.File{Path: cfg.Output.VersionPath, Data: versionDoc})
	}
	files = append(files, report.File{Path: cfg.Output.Path, Data: rendered})

	if err := f.persist(files...); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"path": cfg.Output.Path, "bytes": len(rendered)}).Debug("metadata written")
	if version != nil {
		log.WithFields(logrus.Fields{
			"path":      cfg.Output.VersionPath,
			"spec_name": version.SpecName,
			"version":   version.SpecVersion,
		}).Debug("runtime version written")
	}

	return &Result{
		Endpoint:       conn.URL(),
		Path:           cfg.Output.Path,
		Bytes:          len(rendered),
		VersionPath:    cfg.Output.VersionPath,
		RuntimeVersion: version,
		Elapsed:        time.Since(start),
	}, nil
}

// Connect opens the websocket session to the node.
func (f *Fetcher) Connect(ctx context.Context, node config.Node) (*rpc.Client, error) {
	conn, err := rpc.Dial(ctx, node.Endpoint, rpc.Options{HandshakeTimeout: node.HandshakeTimeout})
	if err != nil {
		return nil, &Error{Kind: KindConnection, Op: "connect", Err: err}
	}
	return conn, nil
}

// FetchMetadata issues state_getMetadata and returns the hex blob.
func (f *Fetcher) FetchMetadata(ctx context.Context, conn *rpc.Client) (string, error) {
	blob, err := conn.GetMetadata(ctx)
	if err != nil {
		return "", &Error{Kind: KindRequest, Op: "fetch metadata", Err: err}
	}
	return blob, nil
}

// fetchAll requests the metadata and, when asked, the runtime version
// concurrently on the same connection.
func (f *Fetcher) fetchAll(ctx context.Context, conn *rpc.Client, withVersion bool) (string, *types.RuntimeVersion, error) {
	var (
		blob    string
		version *types.RuntimeVersion
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		blob, err = f.FetchMetadata(gctx, conn)
		return err
	})
	if withVersion {
		g.Go(func() error {
			v, err := conn.GetRuntimeVersion(gctx)
			if err != nil {
				return &Error{Kind: KindRequest, Op: "fetch runtime version", Err: err}
			}
			version = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", nil, err
	}
	return blob, version, nil
}

// Render decodes the blob and encodes the result as JSON text. A blob that
// does not decode is the node's fault and reported as a request error;
// anything that decodes but cannot be expressed is a serialization error.
func (f *Fetcher) Render(blob string, pretty bool) ([]byte, error) {
	doc, err := f.Decoder.Decode(blob)
	if err != nil {
		kind := KindSerialization
		if errors.Is(err, metadata.ErrUndecodable) {
			kind = KindRequest
		}
		return nil, &Error{Kind: kind, Op: "decode metadata", Err: err}
	}

	out, err := report.Marshal(doc, pretty)
	if err != nil {
		return nil, &Error{Kind: KindSerialization, Op: "render metadata", Err: err}
	}
	return out, nil
}

// Persist replaces path with data in one step.
func (f *Fetcher) Persist(data []byte, path string) error {
	return f.persist(report.File{Path: path, Data: data})
}

func (f *Fetcher) persist(files ...report.File) error {
	if err := report.WriteAll(files...); err != nil {
		return &Error{Kind: KindIO, Op: "write output", Err: err}
	}
	return nil
}
