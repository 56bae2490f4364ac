// Package mailer decouples "a module wants to send an email" from "an email
// is delivered": producers drop messages on an unbounded FIFO queue and a
// single background worker drains it, so request handlers never block on
// mail-transport I/O.
package mailer

// Message is one outbound email. It has no identity beyond its queue
// position. From is optional — the transport falls back to its configured
// sender when it is empty.
type Message struct {
	To      string
	Subject string
	Body    string
	From    string
}
