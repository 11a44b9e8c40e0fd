// Package eventlog collects hub events asynchronously and fans them out
// to registered forwarders.
//
// The Sink decouples event consumers from the controller's processing
// loop: Record never blocks, events queue into a bounded buffer, and a
// single worker goroutine delivers them in order to every forwarder.
// When the buffer is full the oldest pending behaviour is to drop the
// new event and count it; the control loop is never stalled by a slow
// consumer.
//
// The sink also keeps a bounded ring of the most recent events for the
// monitoring API's history endpoint.
package eventlog
