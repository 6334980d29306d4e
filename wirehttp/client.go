package wirehttp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/hupe1980/wirepatch/patch"
)

// Update is the consumer-side view of one negotiation round trip.
// Exactly one of NotModified, Patch, or Stream is meaningful.
type Update struct {
	// Token is the server's current version token.
	Token uint64

	// NotModified is true when the known version is already current.
	NotModified bool

	// Patch is set when the server answered with an incremental
	// update from the known version.
	Patch *patch.Patch

	// Stream holds a raw full chunk stream, to be fed through a
	// stream.Reader and dispatched.
	Stream []byte
}

// Fetch performs one negotiation round trip. known is the version
// token the caller already holds, or nil for none. Servers that only
// ever send full streams are handled transparently.
func Fetch(ctx context.Context, client *http.Client, url string, known *uint64) (*Update, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if known != nil {
		req.Header.Set(VersionHeader, strconv.FormatUint(*known, 16))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	update := &Update{}
	if v := resp.Header.Get(VersionHeader); v != "" {
		token, err := strconv.ParseUint(v, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid version header %q", v)
		}
		update.Token = token
	}

	switch resp.StatusCode {
	case http.StatusNotModified:
		update.NotModified = true
		return update, nil

	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.Header.Get("Content-Type") == ContentTypePatch {
			p, err := patch.UnmarshalBinary(body)
			if err != nil {
				return nil, err
			}
			update.Patch = p
			return update, nil
		}
		update.Stream = body
		return update, nil

	default:
		return nil, fmt.Errorf("artifact fetch failed: %s", resp.Status)
	}
}
