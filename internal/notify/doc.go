// Package notify provides the outbound notification transports for the
// events pipeline.
//
// Email delivery is modeled as one EmailSender capability with two concrete
// providers (Resend and SendGrid) selected by configuration. Telegram
// delivery goes through the Bot API. All sends are retried with bounded
// backoff; a send failure is reported to the caller but never fails a
// pipeline run.
package notify
