// Package logx wraps zerolog for listingbot.
//
// A Service owns the outputs (console, JSON file, rate-limited Telegram
// sink) and can swap them at runtime with Apply. Logger values are cheap to
// copy and carry their own fields.
package logx
