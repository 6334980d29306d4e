// Package wirepatch delivers versioned binary application artifacts
// from a producer to consumers over an unreliable, arbitrarily
// fragmenting byte transport, and keeps both sides in sync cheaply as
// the artifact changes.
//
// # Producer side
//
//	store := wirepatch.New(wirepatch.WithCapacity(5))
//	token := store.Add(ctx, artifact)
//
//	outcome, current, _ := store.Negotiate(ctx, clientToken)
//	switch o := outcome.(type) {
//	case wirepatch.NotModified:
//	    // client is up to date
//	case wirepatch.PatchUpdate:
//	    gen, _ := stream.NewPatchGenerator(meta, o.Patch)
//	    send(gen)
//	case wirepatch.FullBinary:
//	    send(stream.NewGenerator(sectionsFor(o.Binary)))
//	}
//
// # Consumer side
//
//	r := stream.NewReader()
//	d := stream.NewDispatcher(
//	    stream.WithTemplateRegistrar(templates),
//	    stream.WithStateHydrator(state),
//	    stream.WithCodeLoader(loader),
//	)
//	for buf := range transport {
//	    if _, err := r.Feed(buf); err != nil { ... }
//	    if err := d.Drain(ctx, r); err != nil { ... }
//	}
//
// The reader is an incremental state machine: it produces the same
// chunk sequence no matter how the transport fragments the bytes, and
// it never blocks — insufficient data just means feeding again later.
//
// Payload contents (layout, state, code sections) are opaque to this
// module; compilers, template engines, and schedulers live elsewhere.
package wirepatch
