// Package tunnelgate provides typed, correlated procedure calls between two
// isolated execution contexts whose only connection is a raw, untyped,
// bidirectional message channel.
//
// The intended scenario is a spawned worker and its spawner, or two
// privilege-separated halves of a multi-process application: each side may
// have imports or capabilities unavailable to the other, so they cannot
// share an object reference, only a description of the interface. That
// description is the [Tunnel]: an immutable routing id plus the set of
// method names invoked synchronously, shareable verbatim by both sides.
//
// # Architecture
//
// A [Gate] wraps one physical channel, injected as a [Transport], and
// multiplexes any number of tunnels over it. One side registers a [Handler]
// for a tunnel via [Gate.Register]; the other side binds a proxy via
// [Gate.Establish] and invokes methods on it as if local. Each invocation
// becomes a call envelope with a fresh per-gate correlation id; the matching
// response or error envelope settles the caller's deferred [Call], however
// replies interleave with unrelated calls sharing the gate.
//
// Calls are asynchronous by default: [Established.Start] returns a [Call],
// and [Established.Invoke] suspends at [Call.Wait]. Methods a tunnel marks
// via [WithSync] instead block the caller until the reply is processed,
// which requires a transport that pumps inbound frames while the caller
// blocks (see [Pumper]); invoking a synchronous method over any other
// transport is a configuration error, surfaced fast as [KindSyncUnsupported]
// rather than deadlocking.
//
// # Failure model
//
// Every call envelope yields exactly one response or error envelope, or the
// gate closes first, failing all outstanding calls with
// [KindConnectionClosed]; a call is never silently forgotten. Remote-side
// routing and handler failures come back as *[Error] values carrying the
// original message and a coarse [ErrorKind]; the specific failure type does
// not survive the boundary. Malformed frames and stale replies are absorbed
// and diagnosed locally (see [WithLogger]), never thrown into unrelated
// callers. There is no cancellation message: abandoning a pending [Call]
// signals nothing remotely, and closing the gate is the only cancellation
// primitive.
//
// # Value domain
//
// Arguments and results are plain data: null, bool, number, string, and
// lists and maps thereof, as defined by [structpb.Value]. Numbers round-trip
// as float64. Values that cannot be serialized fail the call (caller side)
// or degrade to an error envelope (handler side) instead of crashing the
// receive path.
//
// # Single-threaded hosts
//
// Handlers are dispatched on their own goroutines, so a slow handler never
// blocks subsequent calls. Hosts whose handlers must run single-threaded
// (a JavaScript runtime, for instance) can serialize dispatch onto an event
// loop via [WithDispatchLoop]; the [Loop] interface is satisfied by
// [github.com/joeycumines/go-eventloop.Loop].
//
// [structpb.Value]: https://pkg.go.dev/google.golang.org/protobuf/types/known/structpb#Value
package tunnelgate
