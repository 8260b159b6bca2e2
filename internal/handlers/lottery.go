package handlers

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/jackpot/internal/services"
)

// ==================== Pages ====================

// IndexPageData is passed to the dashboard template
type IndexPageData struct {
	Status *services.Status
}

func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	st, err := h.Lottery.Status(r.Context())
	if err != nil && !stderrors.Is(err, services.ErrNotInitialized) {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	h.templates.Index.Execute(w, IndexPageData{Status: st})
}

// ==================== Status ====================

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, err := h.Lottery.Status(r.Context())
	switch {
	case err == nil:
		respondOK(w, HealthResponse{Status: "ok", Initialized: true})
	case stderrors.Is(err, services.ErrNotInitialized):
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "uninitialized"})
	default:
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "error"})
	}
}

func (h *Handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.Lottery.Status(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, st)
}

// ==================== Participants ====================

func (h *Handlers) handleParticipants(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Lottery.Participants(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, ParticipantsResponse{Participants: entries, Count: len(entries)})
}

func (h *Handlers) handleParticipant(w http.ResponseWriter, r *http.Request) {
	info, err := h.Lottery.Participant(r.Context(), chi.URLParam(r, "identity"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, info)
}

func (h *Handlers) handleParticipantContributions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", services.DefaultPageSize)
	if err != nil {
		respondError(w, err)
		return
	}
	identity := chi.URLParam(r, "identity")
	list, err := h.History.ListContributions(r.Context(), identity, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, ContributionsResponse{Participant: identity, Contributions: list})
}

// ==================== Entries ====================

func (h *Handlers) handleEnter(w http.ResponseWriter, r *http.Request) {
	var req EntryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if strings.TrimSpace(req.Identity) == "" {
		respondError(w, BadRequest("identity is required"))
		return
	}

	res, err := h.Lottery.Enter(r.Context(), req.Identity, req.Contribution)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, res)
}

// handleEntryQR renders a PNG QR code linking to the public entry page
func (h *Handlers) handleEntryQR(w http.ResponseWriter, r *http.Request) {
	png, err := qrcode.Encode(h.entryURL(r), qrcode.Medium, 256)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write(png)
}

func (h *Handlers) entryURL(r *http.Request) string {
	base := strings.TrimRight(h.opts.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/#enter"
}

// ==================== History ====================

func (h *Handlers) handleListDraws(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", services.DefaultPageSize)
	if err != nil {
		respondError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondError(w, err)
		return
	}

	page, err := h.History.ListDraws(r.Context(), limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, page)
}

func (h *Handlers) handleGetDraw(w http.ResponseWriter, r *http.Request) {
	d, err := h.History.GetDraw(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, d)
}

func (h *Handlers) handleListPayouts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", services.DefaultPageSize)
	if err != nil {
		respondError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondError(w, err)
		return
	}

	payouts, err := h.History.ListPayouts(r.Context(), limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, PayoutsResponse{Payouts: payouts, Limit: limit, Offset: offset})
}
