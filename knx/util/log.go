// Licensed under the MIT license which can be found in the LICENSE file.

package util

import (
	"io"
	"log"
)

// Logger is the package-level logger. It discards everything by default;
// point it somewhere useful to see what the library is doing.
var Logger = log.New(io.Discard, "", log.LstdFlags)

// Log writes a log entry attributed to the given context value.
func Log(ctx any, format string, args ...any) {
	Logger.Printf("%T %p: "+format, append([]any{ctx, ctx}, args...)...)
}
