package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/duotrip/backend/internal/domain"
)

// CoupleResponse is the API shape of a couple.
type CoupleResponse struct {
	ID         uuid.UUID  `json:"id"`
	User1ID    uuid.UUID  `json:"user1_id"`
	User2ID    *uuid.UUID `json:"user2_id,omitempty"`
	InviteCode string     `json:"invite_code"`
	Paired     bool       `json:"paired"`
	CreatedAt  time.Time  `json:"created_at"`
}

// JoinCoupleRequest is the body of POST /couples/join.
type JoinCoupleRequest struct {
	InviteCode string `json:"invite_code"`
}

// CreateCouple handles POST /couples. The caller becomes the first member
// and receives the invite code to share.
func (s *Server) CreateCouple(w http.ResponseWriter, r *http.Request) {
	c, err := s.couples.Create(r.Context(), userID(r))
	if err != nil {
		s.serviceError(w, r, "couple", err)
		return
	}
	writeJSON(w, http.StatusCreated, coupleToResponse(c))
}

// JoinCouple handles POST /couples/join.
func (s *Server) JoinCouple(w http.ResponseWriter, r *http.Request) {
	var body JoinCoupleRequest
	if !decodeBody(w, r, &body) {
		return
	}
	c, err := s.couples.Join(r.Context(), userID(r), body.InviteCode)
	if err != nil {
		s.serviceError(w, r, "invite code", err)
		return
	}
	writeJSON(w, http.StatusOK, coupleToResponse(c))
}

// GetMyCouple handles GET /couples/me.
func (s *Server) GetMyCouple(w http.ResponseWriter, r *http.Request) {
	c, err := s.couples.Mine(r.Context(), userID(r))
	if err != nil {
		s.serviceError(w, r, "couple", err)
		return
	}
	writeJSON(w, http.StatusOK, coupleToResponse(c))
}

func coupleToResponse(c domain.Couple) CoupleResponse {
	return CoupleResponse{
		ID:         c.ID,
		User1ID:    c.User1ID,
		User2ID:    c.User2ID,
		InviteCode: c.InviteCode,
		Paired:     c.Paired(),
		CreatedAt:  c.CreatedAt,
	}
}
