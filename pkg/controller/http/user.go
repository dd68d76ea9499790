package http

import (
	"net/http"
	"strings"

	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/secmon-lab/instaflow/pkg/domain/types"
	"github.com/secmon-lab/instaflow/pkg/usecase"
)

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := usecase.ParseUserView(q.Get("view"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	users, err := s.uc.User.ListUsers(r.Context(), usecase.UserQuery{
		View:   view,
		Search: q.Get("search"),
		Filter: model.UserFilter{
			AccountSource:  q.Get("accountSource"),
			FollowedBy:     q.Get("followedBy"),
			FollowedBack:   q.Get("followedBack"),
			DMSent:         q.Get("dmSent"),
			ResponseStatus: q.Get("responseStatus"),
			Unfollowed:     q.Get("unfollowed"),
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"users": users})
}

// userRequest is the body of POST /api/users
type userRequest struct {
	Username       string               `json:"username"`
	AccountSource  string               `json:"accountSource"`
	FollowedBy     []string             `json:"followedBy"`
	FollowedBack   bool                 `json:"followedBack"`
	DMSent         bool                 `json:"dmSent"`
	ResponseStatus types.ResponseStatus `json:"responseStatus"`
	Notes          string               `json:"notes"`
}

func (s *Server) addUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.uc.User.AddUser(r.Context(), &model.User{
		Username:       req.Username,
		AccountSource:  req.AccountSource,
		FollowedBy:     req.FollowedBy,
		FollowedBack:   req.FollowedBack,
		DMSent:         req.DMSent,
		ResponseStatus: req.ResponseStatus,
		Notes:          req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

// bulkRequest accepts either a newline separated text block or a list
type bulkRequest struct {
	Text          string   `json:"text"`
	Usernames     []string `json:"usernames"`
	AccountSource string   `json:"accountSource"`
}

func (s *Server) bulkAddUsers(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	usernames := req.Usernames
	if strings.TrimSpace(req.Text) != "" {
		usernames = append(usernames, usecase.ParseUsernames(req.Text)...)
	}

	result, err := s.uc.User.BulkAddUsers(r.Context(), usernames, req.AccountSource)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.uc.User.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch model.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.uc.User.UpdateUser(r.Context(), id, &patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.uc.User.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) blacklistUser(w http.ResponseWriter, r *http.Request) {
	s.setBlacklisted(w, r, true)
}

func (s *Server) unblacklistUser(w http.ResponseWriter, r *http.Request) {
	s.setBlacklisted(w, r, false)
}

func (s *Server) setBlacklisted(w http.ResponseWriter, r *http.Request, blacklisted bool) {
	id, err := userIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var user *model.User
	if blacklisted {
		user, err = s.uc.User.BlacklistUser(r.Context(), id)
	} else {
		user, err = s.uc.User.UnblacklistUser(r.Context(), id)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.uc.User.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}

func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	export, err := s.uc.User.ExportCSV(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFile(w, r, "text/csv; charset=utf-8", export.FileName, export.Data)
}
