// AngelaMos | 2026
// live.go

package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carterperez-dev/tailorbook/internal/metrics"
)

const livePing = 25 * time.Second

// liveView is the part of a mounted dashboard the stream needs.
type liveView interface {
	Changes() <-chan struct{}
	Done() <-chan struct{}
}

// CustomerLive streams re-rendered dashboard sections to the open page.
func (h *Handler) CustomerLive(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	c := b.Customer()
	if c == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	tab := tabOf(r, "orders", "orders", "appointments", "measurements")
	h.stream(w, r, b, c, "dashboard", "customer-live", func() any {
		data := h.livePage(r, b)
		data.View = customerData(c, tab)
		return data
	})
}

func (h *Handler) AdminLive(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	a := b.Admin()
	if a == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	filter := statusFilter(r)
	tab := tabOf(r, "orders", "orders", "appointments", "messages", "new")
	h.stream(w, r, b, a, "admin", "admin-live", func() any {
		data := h.livePage(r, b)
		data.View = adminData(a, filter, tab)
		return data
	})
}

// livePage is the page data for fragments, with Path pointing at the page
// the stream belongs to so forms inside fragments return there.
func (h *Handler) livePage(r *http.Request, b *Bundle) page {
	data := h.page(r, b, "")
	data.Path = strings.TrimSuffix(r.URL.Path, "/live")
	return data
}

func (h *Handler) stream(
	w http.ResponseWriter,
	r *http.Request,
	b *Bundle,
	v liveView,
	page, fragment string,
	data func() any,
) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Streams outlive the server's write timeout.
	//nolint:errcheck // unsupported writers keep the server deadline
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.WebLiveStreams.Inc()
	defer metrics.WebLiveStreams.Dec()

	ticker := time.NewTicker(livePing)
	defer ticker.Stop()

	ctx := r.Context()
	var buf bytes.Buffer

	for {
		select {
		case <-ctx.Done():
			return
		case <-v.Done():
			return
		case <-ticker.C:
			b.touch(h.bundles.now())
			fmt.Fprint(w, ": ping\n\n") //nolint:errcheck // broken pipes end the loop via ctx
		case <-v.Changes():
			buf.Reset()
			if err := h.tmpl.Fragment(&buf, page, fragment, data()); err != nil {
				h.logger.Error("render live fragment", "page", page, "error", err)
				continue
			}
			writeEvent(w, "view", buf.String())
		case <-b.Toasts():
			buf.Reset()
			if err := h.tmpl.Fragment(&buf, page, "toasts", h.livePage(r, b)); err != nil {
				h.logger.Error("render toasts", "error", err)
				continue
			}
			writeEvent(w, "toasts", buf.String())
		}
		flusher.Flush()
	}
}

// writeEvent sends one SSE event. Each line of a multi-line payload goes
// in its own data field.
func writeEvent(w http.ResponseWriter, event, payload string) {
	var sb strings.Builder
	sb.WriteString("event: ")
	sb.WriteString(event)
	sb.WriteByte('\n')
	for line := range strings.SplitSeq(payload, "\n") {
		sb.WriteString("data: ")
		sb.WriteString(strings.TrimRight(line, "\r"))
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	fmt.Fprint(w, sb.String()) //nolint:errcheck // see stream
}
