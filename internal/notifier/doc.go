// Package notifier sends the daily placeholder-listing update to a Telegram chat.
//
// A run is strictly sequential: header, one message per region, summary, with
// fixed pauses in between. Failed sends are logged and counted but never stop
// the run; only a failure of the sequence itself (cancellation or a panic)
// ends it early, after a best-effort error message to the chat.
package notifier
