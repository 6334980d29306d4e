// Package wirehttp maps the negotiation exchange onto HTTP
// conditional-request semantics: the client sends the version token it
// holds, the server answers with its current token plus either nothing
// (unchanged), a serialized patch, or a full chunk stream.
//
// This is the single transport collaborator kept in-tree; framework
// routing and middleware belong to the embedding application.
package wirehttp

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/hupe1980/wirepatch"
	"github.com/hupe1980/wirepatch/stream"
)

const (
	// VersionHeader carries a version token in hex, in both
	// directions: the client's known version on requests, the
	// server's current version on responses.
	VersionHeader = "X-Artifact-Version"

	// ContentTypeStream marks a full chunk stream response body.
	ContentTypeStream = "application/x-wirepatch-stream"

	// ContentTypePatch marks a serialized patch response body.
	ContentTypePatch = "application/x-wirepatch-patch"
)

// SectionSource supplies the sections of the current artifact version
// for full stream responses. It must stay consistent with the binaries
// pushed into the store by the artifact builder.
type SectionSource func(r *http.Request) (stream.Sections, error)

// Handler serves artifact updates over HTTP.
type Handler struct {
	store    *wirepatch.Store
	sections SectionSource
	logger   *wirepatch.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the handler's logger.
func WithLogger(l *wirepatch.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHandler creates an http.Handler bridging store negotiation to
// HTTP. sections is required for full stream responses.
func NewHandler(store *wirepatch.Store, sections SectionSource, optFns ...HandlerOption) *Handler {
	h := &Handler{
		store:    store,
		sections: sections,
		logger:   wirepatch.NoopLogger(),
	}
	for _, fn := range optFns {
		fn(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clientToken := parseToken(r.Header.Get(VersionHeader))

	// Shallow: the full-response body is regenerated from the section
	// source, so the stored binary is never needed here.
	outcome, current, err := h.store.NegotiateShallow(r.Context(), clientToken)
	if err != nil {
		if errors.Is(err, wirepatch.ErrEmpty) {
			http.Error(w, "no artifact available", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(r.Context(), "negotiation failed", "error", err)
		http.Error(w, "negotiation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set(VersionHeader, strconv.FormatUint(current, 16))

	switch o := outcome.(type) {
	case wirepatch.NotModified:
		w.WriteHeader(http.StatusNotModified)

	case wirepatch.PatchUpdate:
		body, err := o.Patch.MarshalBinary()
		if err != nil {
			h.logger.ErrorContext(r.Context(), "patch serialization failed", "error", err)
			http.Error(w, "patch serialization failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", ContentTypePatch)
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(body)

	case wirepatch.FullBinary:
		sections, err := h.sections(r)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "section source failed", "error", err)
			http.Error(w, "artifact unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", ContentTypeStream)
		if r.Method == http.MethodHead {
			return
		}
		gen := stream.NewGenerator(sections)
		for {
			frame, ok := gen.Next()
			if !ok {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return // client went away
			}
		}
	}
}

func parseToken(s string) *uint64 {
	if s == "" {
		return nil
	}
	token, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		// A garbled token is treated like no token: negotiation
		// degrades to a full stream rather than erroring.
		return nil
	}
	return &token
}
