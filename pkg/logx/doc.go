// Package logx is the poster's structured logging: a small Logger wrapper on
// zerolog with three sinks.
//
//   - console: human readable, short timestamp and file:line caller
//   - file: JSON lines
//   - telegram: lines at or above a minimum level, rate limited, sent to an
//     operator chat through the same Bot API sender that publishes posts
package logx
