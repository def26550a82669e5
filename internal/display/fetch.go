package display

import (
	"fmt"
	"io"

	"github.com/dmagro/substrate-meta/internal/fetch"
	"github.com/dmagro/substrate-meta/internal/metadata"
)

// FetchFormatter reports the files a successful run wrote.
type FetchFormatter struct {
	Result *fetch.Result
}

// Format writes the summary lines to w.
func (f *FetchFormatter) Format(w io.Writer) error {
	r := f.Result
	fmt.Fprintf(w, "%s wrote %s (%s bytes) from %s in %dms\n",
		Green("✓"), Bold(r.Path), metadata.FormatNumber(uint64(r.Bytes)), r.Endpoint, r.Elapsed.Milliseconds())
	if r.RuntimeVersion != nil {
		fmt.Fprintf(w, "%s wrote %s (%s v%d)\n",
			Green("✓"), Bold(r.VersionPath), r.RuntimeVersion.SpecName, r.RuntimeVersion.SpecVersion)
	}
	return nil
}
