// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPTimeout bounds R2 uploads and Gemini calls. Image generation can take
// well over a minute.
const HTTPTimeout = 180 * time.Second

// HTTPClient is used by the Gemini client.
var HTTPClient = &http.Client{
	Timeout: HTTPTimeout,
}
