package http

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

// qr renders a PNG QR code pointing players at the room's join URL.
func (h *Handlers) qr(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	state, err := h.service.GetState(r.Context(), ps.ByName("code"))
	if err != nil {
		writeError(w, err)
		return
	}

	png, err := qrcode.Encode(h.joinURL(r, state.RoomID), qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// joinURL prefers the configured public URL and otherwise derives one from
// the request, respecting X-Forwarded-Proto.
func (h *Handlers) joinURL(r *http.Request, code string) string {
	base := strings.TrimSuffix(h.publicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/rooms/" + code
}
