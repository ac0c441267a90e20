// Package server implements the single-use loopback listener that completes an OAuth redirect for a desktop
// application.
//
// # Launcher
//
// [Launcher.Start] binds 127.0.0.1 on a fixed port that is registered with the identity provider as part of the
// redirect URI. There is no retry and no fallback port. When the bind fails the caller gets an error wrapping
// [shared.ErrBindFailed] and nothing runs in the background. When it succeeds a single worker goroutine takes
// ownership of the socket and Start returns the [Flow] at once.
//
// # Two-phase callback
//
// Browsers never send the URL fragment to a server, so the worker captures the redirect in two steps:
//
//  1. The identity provider redirects the browser to the listener. Any request that is not for [CallbackPath] is
//     answered with a bridge page whose script POSTs window.location.href back to the same port in the
//     [FullURLHeader] header.
//  2. The script's request for [CallbackPath] carries the complete URL. The worker publishes it as the
//     [CallbackEvent] event on the [Emitter], answers 200 with an empty body and stops.
//
// The worker accepts at most [MaxAttempts] connections. Malformed requests and callbacks without the header are
// dropped without a response. When the budget is spent without a delivery, [Flow.Done] reports
// [shared.ErrAttemptsExhausted]; nothing is published on the Emitter in that case.
//
// Requests are read into a buffer of at most [MaxRequestSize] bytes and parsed by hand: only the request line and
// one header are inspected. A head that does not end within the buffer, or is cut short by EOF, is dropped.
//
// # Cancellation
//
// A started flow cannot be stopped. Accept and read have no deadline; the two connection budget bounds the work
// but not the time. Hosts enforce their own timeout on [Flow.Done] and the socket is released when the process
// exits or the budget is spent.
package server
