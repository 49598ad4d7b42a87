// Package logging sets up structured slog logging for amanfind.
//
// Logs are JSON lines written to a size-rotated file under
// ~/.amanfind/logs/. The --debug flag lowers the level to debug and mirrors
// output to stderr. The viewer reads those files back for `amanfind logs`.
package logging
