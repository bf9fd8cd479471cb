// Package cli implements remindctl, the MailReminder operator command line.
//
// Local commands talk to the database directly:
//   - register: create an account, reading both passwords without echo
//   - sweep: run one dispatcher sweep in this process
//
// Remote commands log in to the gRPC API first:
//   - list, schedule, delete <id>
//   - remote-sweep: ask the running server for an on-demand sweep
//   - export: download a JSON export of the active reminders
//
// Run builds only the dependencies the chosen command needs.
package cli
