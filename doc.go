/*
Package rsocket implements the core of the RSocket protocol: a peer-to-peer,
bidirectional, multiplexed messaging runtime built on top of a single
reliable byte-oriented transport.

RSocket supports four interaction models - fire-and-forget, request/response,
request/stream and request/channel - plus metadata-push, all multiplexed
over one connection with per-stream backpressure (Reactive-Streams-style
credit) and application-level liveness (keep-alive).

A Connection negotiates a SETUP frame with its peer, then demultiplexes
frames by stream id onto per-stream state machines owned by the stream
registry. Transport bytes are abstracted behind the transport package's
DuplexConnection interface; TCP, WebSocket and in-memory implementations are
provided there.
*/
package rsocket
