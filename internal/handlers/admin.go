package handlers

import "net/http"

// ==================== Tickets ====================

func (h *Handlers) handleGrantTickets(w http.ResponseWriter, r *http.Request) {
	var req GrantTicketsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	res, err := h.Lottery.GrantTickets(r.Context(), caller(r), req.Identity, req.Tickets)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, res)
}

// ==================== Draws & Payouts ====================

func (h *Handlers) handleDraw(w http.ResponseWriter, r *http.Request) {
	d, err := h.Lottery.Draw(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, d)
}

func (h *Handlers) handlePayout(w http.ResponseWriter, r *http.Request) {
	p, err := h.Lottery.Payout(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, p)
}

func (h *Handlers) handleCrank(w http.ResponseWriter, r *http.Request) {
	res, err := h.Lottery.RunCrank(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, res)
}

func (h *Handlers) handleSetWinners(w http.ResponseWriter, r *http.Request) {
	var req WinnersRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	st, err := h.Lottery.SetWinners(r.Context(), caller(r), req.Main, req.Minor)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, st)
}

// ==================== Configuration ====================

func (h *Handlers) handleTogglePause(w http.ResponseWriter, r *http.Request) {
	st, err := h.Lottery.TogglePause(r.Context(), caller(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, st)
}

func (h *Handlers) handleUpdateFees(w http.ResponseWriter, r *http.Request) {
	var req FeesRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	st, err := h.Lottery.UpdateFees(r.Context(), caller(r), req.FeesAccumulated)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, st)
}

func (h *Handlers) handleConfigureTiming(w http.ResponseWriter, r *http.Request) {
	var req TimingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	timing, err := req.Timing()
	if err != nil {
		respondError(w, err)
		return
	}

	st, err := h.Lottery.ConfigureTiming(r.Context(), caller(r), timing)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, st)
}

func (h *Handlers) handleSetPrizePool(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	st, err := h.Lottery.SetPrizePool(r.Context(), caller(r), req.Amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, st)
}

func (h *Handlers) handleFundJackpot(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	st, err := h.Lottery.FundJackpot(r.Context(), caller(r), req.Amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, st)
}

func (h *Handlers) handleSetSchedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	st, err := h.Lottery.SetSchedule(r.Context(), caller(r), req.Schedule)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, st)
}
