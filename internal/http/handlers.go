package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"villaledger/internal/auth"
	"villaledger/internal/core"
	applog "villaledger/internal/log"
	"villaledger/internal/report"
	"villaledger/internal/services"
)

const maxBodyBytes = 64 << 10

type sessionBody struct {
	Email         string `json:"email"`
	VillaID       string `json:"villa_id"`
	IsBoardMember bool   `json:"is_board_member"`
}

type loginRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type loginResponse struct {
	Token   string      `json:"token"`
	Session sessionBody `json:"session"`
}

// flexString accepts a JSON string or number, so that amounts and villa
// ids may be sent either way.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected a string or a number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

type paymentRequest struct {
	VillaID flexString `json:"villa_id"`
	Month   string     `json:"month"`
	Amount  flexString `json:"amount"`
	Mode    string     `json:"mode"`
	Remarks string     `json:"remarks"`
}

type expenseRequest struct {
	Title  string     `json:"title"`
	Amount flexString `json:"amount"`
	Date   string     `json:"date"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", services.ErrValidation, err)
	}
	return nil
}

// authenticated resolves the bearer token into a session before calling h.
func (s *Server) authenticated(h func(http.ResponseWriter, *http.Request, core.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeError(w, r, auth.ErrMissingToken)
			return
		}
		claims, err := s.tokens.Validate(strings.TrimSpace(token))
		if err != nil {
			writeError(w, r, err)
			return
		}
		h(w, r, claims.Session(s.facade.Snapshot()))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

// handleReady reports 503 until the first snapshot is installed.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	st := s.facade.Status()
	code := http.StatusOK
	if s.facade.State() != report.StateReady {
		code = http.StatusServiceUnavailable
	}
	NewResponse().Status(code).JSON(st).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if s.facade.State() != report.StateReady {
		writeError(w, r, fmt.Errorf("login: roster not loaded: %w", core.ErrSourceUnavailable))
		return
	}

	token, session, err := s.tokens.Login(s.facade.Snapshot(), req.Email, req.Phone)
	if err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Login failed", applog.FieldOperation, applog.OpLogin)
		writeError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Login succeeded",
		applog.FieldOperation, applog.OpLogin,
		applog.FieldUser, session.Email,
		applog.FieldVillaID, session.VillaID)
	NewResponse().JSON(loginResponse{Token: token, Session: toSessionBody(session)}).Write(w)
}

// handleDues serves the missed-months report. Residents may only see their
// own villa; villa_id defaults to the caller's villa.
func (s *Server) handleDues(w http.ResponseWriter, r *http.Request, session core.Session) {
	villaID := strings.TrimSpace(r.URL.Query().Get("villa_id"))
	if villaID == "" {
		villaID = session.VillaID
	}
	if !session.IsBoardMember && villaID != session.VillaID {
		writeError(w, r, core.ErrForbidden)
		return
	}
	NewResponse().JSON(s.facade.DuesReport(session, villaID)).Write(w)
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request, session core.Session) {
	month := core.MonthOfTime(s.now())
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		m, err := core.ParseMonth(v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		month = m
	}
	NewResponse().JSON(s.facade.MonthDetail(session, month)).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, session core.Session) {
	year := s.now().Year()
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			writeError(w, r, fmt.Errorf("%w: invalid year %q", services.ErrValidation, v))
			return
		}
		year = y
	}
	NewResponse().JSON(s.facade.FinancialSummary(session, year)).Write(w)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request, session core.Session) {
	if !session.IsBoardMember {
		writeError(w, r, core.ErrForbidden)
		return
	}
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.ledger.RecordPayment(r.Context(), session, services.PaymentInput{
		VillaID: string(req.VillaID),
		Month:   req.Month,
		Amount:  string(req.Amount),
		Mode:    req.Mode,
		Remarks: req.Remarks,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).
		Header("Location", "/payments/"+p.ID).
		JSON(p).
		Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, session core.Session) {
	if !session.IsBoardMember {
		writeError(w, r, core.ErrForbidden)
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.ledger.AddExpense(r.Context(), session, services.ExpenseInput{
		Title:  req.Title,
		Amount: string(req.Amount),
		Date:   req.Date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).
		Header("Location", "/expenses/"+e.ID).
		JSON(e).
		Write(w)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request, session core.Session) {
	if err := s.ledger.DeletePayment(r.Context(), session, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, session core.Session) {
	if err := s.ledger.DeleteExpense(r.Context(), session, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, session core.Session) {
	if !session.IsBoardMember {
		writeError(w, r, core.ErrForbidden)
		return
	}
	NewResponse().JSON(s.facade.Status()).Write(w)
}

// handleReload forces a reload. On failure the previous snapshot stays
// installed and 503 is returned.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request, session core.Session) {
	if !session.IsBoardMember {
		writeError(w, r, core.ErrForbidden)
		return
	}
	if err := s.facade.Reload(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Manual reload",
		applog.FieldOperation, applog.OpReload,
		applog.FieldUser, session.Email,
		applog.FieldGeneration, s.facade.Generation())
	NewResponse().JSON(s.facade.Status()).Write(w)
}

func toSessionBody(s core.Session) sessionBody {
	return sessionBody{Email: s.Email, VillaID: s.VillaID, IsBoardMember: s.IsBoardMember}
}
