// Package server provides HTTP routing, middleware, and the Ampache-compatible handlers.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses httprouter internally for method matching, so unknown
// paths get 404 and known paths with the wrong method get 405.
//
// # Protocol
//
// [Dispatcher] serves /server/xml.server.php. The action query parameter is parsed into a closed
// [Action] set; handshake opens a session, ping extends it, songs pages through the collection.
// Anything else is an invalid request. Every reply is a <root> XML document; failures carry an
// <error code="N"> element and HTTP status N.
//
// # Playback
//
// [PlayHandler] serves /play/index.php. It checks the ssid session, then streams the track
// through a [stream.Responder], flushing after every chunk so memory per connection stays at one chunk.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
