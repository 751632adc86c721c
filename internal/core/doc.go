// Package core provides the symbolization logic: finding addresses in log
// text, resolving them to source locations, cleaning up the result, and the
// registry of binaries conversions run against.
//
// The package has no knowledge of HTTP, storage engines or debug formats.
// Binaries are parsed behind [Resolver], persisted behind [ArtifactStore]
// and [OrderStore], and the web handlers and CLI drive everything through a
// [Session].
//
// # Conversion
//
// A conversion runs in three steps:
//
//  1. [ExtractAddresses] finds "0x" tokens followed by hex digits on each
//     line.
//  2. [SubstituteLines] asks an [AddressResolver] for each token's location
//     and appends " (<location>)" after it. Unresolvable tokens are left as
//     they are.
//  3. A [CleanupRule] rewrites the text to a fixed point, replacing each
//     match with the concatenation of its capture groups.
//
// [Converter] ties these together behind a [Backend], which is either
// [LocalBackend] (in-process resolution) or a remote service performing the
// whole exchange.
//
// # Registry
//
// [Registry] is the ordered list of uploaded binaries with one active
// selection, per-artifact tags and a tag filter. Every mutation is written
// to the stores before the in-memory state changes, and the order record is
// rewritten once per mutation.
//
// # Session
//
// [Session] serializes commands ([AddArtifacts], [SelectArtifact],
// [SetInput] and the rest) and runs conversions outside its lock. A
// conversion whose artifact is no longer active when it finishes is
// discarded with [ErrStaleConversion].
package core
