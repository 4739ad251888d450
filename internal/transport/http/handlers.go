package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"keypears/internal/domain"
	"keypears/internal/dto"
	"keypears/internal/federation"
	obsmw "keypears/internal/observability/middleware"
	"keypears/internal/service"
)

// SessionTokenHeader carries the raw session token on authenticated calls.
const SessionTokenHeader = "X-Session-Token"

type Services struct {
	Vaults   *service.VaultService
	Sessions *service.SessionService
	Pow      *service.PowService
	Keys     *service.KeyService
	Exchange *service.ExchangeService
	Messages *service.MessageService
}

type handler struct {
	svc    Services
	apiURL string
}

type ctxKey string

const ctxKeyVault ctxKey = "vault"

func vaultFrom(ctx context.Context) *domain.Vault {
	v, _ := ctx.Value(ctxKeyVault).(*domain.Vault)
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindBadRequest:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a service error onto the wire. Internal errors are logged
// with the request id and returned without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	msg := err.Error()
	if kind == domain.KindInternal {
		slog.Error("request failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", obsmw.RequestIDFromContext(r.Context()),
		)
		msg = "internal error"
	}
	writeJSON(w, statusFor(kind), errorBody{Error: msg, Kind: kind.String()})
}

// decode reads a JSON body into req. An entirely empty body is allowed for
// procedures whose parameters are all optional.
func decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, domain.BadRequest("malformed request body"))
		return false
	}
	return true
}

// requireSession authenticates the session token header and puts the vault
// on the request context.
func (h *handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vault, err := h.svc.Sessions.Authenticate(r.Context(), r.Header.Get(SessionTokenHeader))
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyVault, vault)))
	})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) discovery(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, federation.Document{Version: 1, APIURL: h.apiURL})
}

func (h *handler) checkNameAvailability(w http.ResponseWriter, r *http.Request) {
	var req dto.CheckNameAvailabilityRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Vaults.CheckNameAvailability(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) registerVault(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterVaultRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Vaults.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Sessions.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Sessions.Logout(r.Context(), r.Header.Get(SessionTokenHeader)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.LogoutResponse{LoggedOut: true})
}

func (h *handler) getPowChallenge(w http.ResponseWriter, r *http.Request) {
	var req dto.GetPowChallengeRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.svc.Pow.CreateChallenge(r.Context(), req.Difficulty)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.GetPowChallengeResponse{
		ChallengeID: c.ID.String(),
		Algorithm:   c.Algorithm,
		Header:      c.Header,
		Target:      c.Target,
		Difficulty:  c.Difficulty,
		ExpiresAt:   c.ExpiresAt,
	})
}

func (h *handler) getCounterpartyEngagementKey(w http.ResponseWriter, r *http.Request) {
	var req dto.GetCounterpartyEngagementKeyRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Exchange.GetCounterpartyEngagementKey(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) verifyEngagementKeyOwnership(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyEngagementKeyOwnershipRequest
	if !decode(w, r, &req) {
		return
	}
	valid, err := h.svc.Keys.VerifyOwnership(r.Context(), req.Address, req.PublicKey)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.VerifyEngagementKeyOwnershipResponse{Valid: valid})
}

func (h *handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req dto.SendMessageRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Messages.SendMessage(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getEngagementKeyForSending(w http.ResponseWriter, r *http.Request) {
	var req dto.GetEngagementKeyForSendingRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Keys.GetEngagementKeyForSending(r.Context(), vaultFrom(r.Context()), req.CounterpartyAddress)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getDerivationPrivKey(w http.ResponseWriter, r *http.Request) {
	var req dto.GetDerivationPrivKeyRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Keys.GetDerivationPrivKey(r.Context(), vaultFrom(r.Context()), req.EngagementKeyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getChannels(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Messages.GetChannels(r.Context(), vaultFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getChannelMessages(w http.ResponseWriter, r *http.Request) {
	var req dto.GetChannelMessagesRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Messages.GetChannelMessages(r.Context(), vaultFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) updateChannelMinDifficulty(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateChannelMinDifficultyRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Messages.UpdateChannelMinDifficulty(r.Context(), vaultFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) markMessagesRead(w http.ResponseWriter, r *http.Request) {
	var req dto.MarkMessagesReadRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Messages.MarkMessagesRead(r.Context(), vaultFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
