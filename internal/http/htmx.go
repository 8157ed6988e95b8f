package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

const (
	hxRequest        = "Hx-Request"
	hxHistoryRestore = "Hx-History-Restore-Request"
	hxRedirect       = "Hx-Redirect"
	hxTrigger        = "Hx-Trigger"
)

func headerTrue(r *http.Request, name string) bool {
	return strings.EqualFold(r.Header.Get(name), "true")
}

// IsHTMX reports whether htmx issued the request.
func IsHTMX(r *http.Request) bool { return headerTrue(r, hxRequest) }

// WantsPartial reports whether only the section fragment and out-of-band chrome should be sent.
// A history restore after a cache miss swaps the whole body, so it gets the full page.
func WantsPartial(r *http.Request) bool {
	return IsHTMX(r) && !headerTrue(r, hxHistoryRestore)
}

// SetHXRedirect makes htmx perform a full browser navigation to url.
func SetHXRedirect(w http.ResponseWriter, url string) { w.Header().Set(hxRedirect, url) }

// SetHXTrigger fires event on the client after the swap.
// payload becomes the event detail; nil sends true.
func SetHXTrigger(w http.ResponseWriter, event string, payload any) {
	var detail any = true
	if payload != nil {
		detail = payload
	}
	b, err := json.Marshal(map[string]any{event: detail})
	if err != nil {
		b, _ = json.Marshal(map[string]bool{event: true})
	}
	w.Header().Set(hxTrigger, string(b))
}
