// Package cli implements the datatalk-events command-line interface: a
// one-shot pipeline run, a cron-scheduled daemon with a metrics listener,
// and small administrative commands for events, runs, and subscribers.
package cli
