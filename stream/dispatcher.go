package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hupe1980/wirepatch/chunk"
	"github.com/hupe1980/wirepatch/internal/hash"
	"github.com/hupe1980/wirepatch/patch"
)

// ErrNoBase is returned when a patch chunk arrives but no cached base
// binary matches its base hash. The update cannot be applied; the
// caller must fall back to requesting a full stream.
var ErrNoBase = errors.New("no cached base for patch")

// TemplateRegistrar consumes layout section bytes.
type TemplateRegistrar interface {
	RegisterTemplates(ctx context.Context, layout []byte) error
}

// StateHydrator consumes state section bytes.
type StateHydrator interface {
	HydrateState(ctx context.Context, state []byte) error
}

// CodeLoader consumes code section bytes.
type CodeLoader interface {
	LoadCode(ctx context.Context, code []byte) error
}

// Dispatcher routes completed chunks to their consumers, applying
// patches against cached section bases as they arrive. Effects of
// already dispatched chunks are committed immediately and independent:
// a later failure withholds only the failing chunk's effect.
//
// Like Reader, a Dispatcher belongs to a single goroutine.
type Dispatcher struct {
	templates TemplateRegistrar
	hydrator  StateHydrator
	loader    CodeLoader

	onComplete func()
	logger     *slog.Logger

	// completed latches the completion callback so one stream fires
	// it exactly once, however often the driver polls after eof. A
	// chunk from the next stream re-arms it.
	completed bool

	meta []byte

	// Patchable section bases from the previous update, keyed by
	// their version token so a patch can find its target.
	layout      []byte
	layoutToken uint64
	code        []byte
	codeToken   uint64
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTemplateRegistrar sets the layout consumer.
func WithTemplateRegistrar(tr TemplateRegistrar) DispatcherOption {
	return func(d *Dispatcher) { d.templates = tr }
}

// WithStateHydrator sets the state consumer.
func WithStateHydrator(sh StateHydrator) DispatcherOption {
	return func(d *Dispatcher) { d.hydrator = sh }
}

// WithCodeLoader sets the code consumer.
func WithCodeLoader(cl CodeLoader) DispatcherOption {
	return func(d *Dispatcher) { d.loader = cl }
}

// WithCompletionFunc sets a callback invoked once per stream when the
// eof control signal is observed.
func WithCompletionFunc(fn func()) DispatcherOption {
	return func(d *Dispatcher) { d.onComplete = fn }
}

// WithLogger sets the logger. Nil disables logging.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithCachedLayout seeds the layout base used to resolve patches, e.g.
// restored from a local artifact cache on startup.
func WithCachedLayout(layout []byte) DispatcherOption {
	return func(d *Dispatcher) { d.setLayout(layout) }
}

// WithCachedCode seeds the code base used to resolve patches.
func WithCachedCode(code []byte) DispatcherOption {
	return func(d *Dispatcher) { d.setCode(code) }
}

// NewDispatcher creates a Dispatcher. Chunk types without a configured
// consumer are dropped.
func NewDispatcher(optFns ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{}
	for _, fn := range optFns {
		fn(d)
	}
	return d
}

// Metadata returns the body of the last header chunk, opaque to this
// layer.
func (d *Dispatcher) Metadata() []byte {
	return d.meta
}

// Dispatch routes one completed chunk to its owner.
func (d *Dispatcher) Dispatch(ctx context.Context, typ chunk.Type, body []byte) error {
	if typ != chunk.TypeEof {
		d.completed = false
	}

	switch typ {
	case chunk.TypeHeader:
		d.meta = body
		return nil

	case chunk.TypeLayout:
		d.setLayout(body)
		return d.registerTemplates(ctx, body)

	case chunk.TypeState:
		if d.hydrator == nil {
			d.drop(typ)
			return nil
		}
		return d.hydrator.HydrateState(ctx, body)

	case chunk.TypeCode:
		d.setCode(body)
		return d.loadCode(ctx, body)

	case chunk.TypePatch:
		return d.dispatchPatch(ctx, body)

	case chunk.TypeEof:
		// Readers never surface eof, but tolerate direct callers.
		d.complete()
		return nil
	}
	return &chunk.ProtocolError{Reason: fmt.Sprintf("dispatch of unknown chunk type 0x%02x", uint8(typ))}
}

// Drain feeds every completed chunk from r through Dispatch and fires
// the completion callback when the stream has finished.
func (d *Dispatcher) Drain(ctx context.Context, r *Reader) error {
	for {
		typ, body, ok := r.PollChunk()
		if !ok {
			break
		}
		if err := d.Dispatch(ctx, typ, body); err != nil {
			return err
		}
	}
	if r.Finished() {
		d.complete()
	}
	return nil
}

func (d *Dispatcher) complete() {
	if d.completed {
		return
	}
	d.completed = true
	if d.onComplete != nil {
		d.onComplete()
	}
}

// dispatchPatch reconstructs the targeted section and forwards it
// exactly as if that section's chunk had arrived directly.
func (d *Dispatcher) dispatchPatch(ctx context.Context, body []byte) error {
	p, err := patch.UnmarshalBinary(body)
	if err != nil {
		return err
	}

	if d.layout != nil && p.BaseHash == d.layoutToken {
		rebuilt, err := patch.Apply(d.layout, p)
		if err != nil {
			return err
		}
		d.setLayout(rebuilt)
		return d.registerTemplates(ctx, rebuilt)
	}

	if d.code != nil && p.BaseHash == d.codeToken {
		rebuilt, err := patch.Apply(d.code, p)
		if err != nil {
			return err
		}
		d.setCode(rebuilt)
		return d.loadCode(ctx, rebuilt)
	}

	return fmt.Errorf("%w: base %016x", ErrNoBase, p.BaseHash)
}

func (d *Dispatcher) registerTemplates(ctx context.Context, layout []byte) error {
	if d.templates == nil {
		d.drop(chunk.TypeLayout)
		return nil
	}
	return d.templates.RegisterTemplates(ctx, layout)
}

func (d *Dispatcher) loadCode(ctx context.Context, code []byte) error {
	if d.loader == nil {
		d.drop(chunk.TypeCode)
		return nil
	}
	return d.loader.LoadCode(ctx, code)
}

func (d *Dispatcher) setLayout(layout []byte) {
	d.layout = layout
	d.layoutToken = hash.Token(layout)
}

func (d *Dispatcher) setCode(code []byte) {
	d.code = code
	d.codeToken = hash.Token(code)
}

func (d *Dispatcher) drop(typ chunk.Type) {
	if d.logger != nil {
		d.logger.Debug("dropping chunk with no consumer", "type", typ.String())
	}
}
