package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.io/infrasutra/orgmail/internal/auth"
	"github.io/infrasutra/orgmail/internal/imagepick"
	"github.io/infrasutra/orgmail/internal/pagination"
	"github.io/infrasutra/orgmail/internal/store"
	"github.io/infrasutra/orgmail/internal/view"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileResponse struct {
	store.UserProfile
	FirstName string `json:"firstName"`
}

func toProfileResponse(profile store.UserProfile) profileResponse {
	return profileResponse{UserProfile: profile, FirstName: auth.FirstName(profile.Name)}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := decodeJSON(r, &payload); err != nil {
		s.respondError(w, r, err)
		return
	}
	prompt := view.AuthPrompt{Open: true, Mode: view.ModeLogin, Email: payload.Email, Password: payload.Password}
	profile, err := prompt.Submit(r.Context(), s.store)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toProfileResponse(profile))
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var payload store.SignupRequest
	if err := decodeJSON(r, &payload); err != nil {
		s.respondError(w, r, err)
		return
	}
	prompt := view.AuthPrompt{
		Open:       true,
		Mode:       view.ModeSignup,
		Name:       payload.Name,
		Email:      payload.Email,
		Password:   payload.Password,
		Department: payload.Department,
	}
	profile, err := prompt.Submit(r.Context(), s.store)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, toProfileResponse(profile))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Logout(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.store.Profile()
	if !ok {
		s.respondError(w, r, store.ErrNotLoggedIn)
		return
	}
	s.respondJSON(w, http.StatusOK, toProfileResponse(profile))
}

func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	s.bodyLimit(w, r)
	editor := view.NewProfileEditor(s.picker)
	if err := editor.Enter(s.store); err != nil {
		s.respondError(w, r, err)
		return
	}

	var update store.ProfileUpdate
	if err := decodeJSON(r, &update); err != nil {
		s.respondError(w, r, err)
		return
	}
	editor.Edit(update)

	profile, err := editor.Save(r.Context(), s.store)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toProfileResponse(profile))
}

func (s *Server) handleProfileDelete(w http.ResponseWriter, r *http.Request) {
	editor := view.NewProfileEditor(s.picker)
	if err := editor.Enter(s.store); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := editor.Delete(r.Context(), s.store); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pageResponse struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasNext bool `json:"hasNext"`
}

func newPageResponse(p pagination.Params, total int) pageResponse {
	return pageResponse{Page: p.Page, Limit: p.Limit, Total: total, HasNext: pagination.GetHasNext(p, total)}
}

type mailListResponse struct {
	Records []store.MailRecord `json:"records"`
	Sort    view.SortOrder     `json:"sort"`
	pageResponse
}

func mailBox(r *http.Request) (store.MailType, error) {
	return store.ParseMailType(chi.URLParam(r, "box"))
}

func (s *Server) handleMailList(w http.ResponseWriter, r *http.Request) {
	t, err := mailBox(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	params := pagination.GetPaginationParams(r.URL.Query())
	rows := view.Mailbox(s.store.Mailbox(t), view.SortOrder(params.Sort))
	s.respondJSON(w, http.StatusOK, mailListResponse{
		Records:      pagination.Apply(rows, params),
		Sort:         view.SortOrder(params.Sort),
		pageResponse: newPageResponse(params, len(rows)),
	})
}

type mailRequest struct {
	Number  string `json:"number"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
	Notes   string `json:"notes"`
	Image   string `json:"image"`
}

// handleMailAdd accepts the add-letter form either as JSON with an already
// encoded image or as multipart with an "image" file.
func (s *Server) handleMailAdd(w http.ResponseWriter, r *http.Request) {
	t, err := mailBox(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s.bodyLimit(w, r)
	form := view.NewMailForm(t, s.picker)

	if isMultipart(r) {
		if err := parseMultipart(r); err != nil {
			s.respondError(w, r, err)
			return
		}
		form.Number = r.FormValue("number")
		form.Name = r.FormValue("name")
		form.Subject = r.FormValue("subject")
		form.Date = r.FormValue("date")
		form.Notes = r.FormValue("notes")

		file, header, err := r.FormFile("image")
		switch {
		case err == nil:
			defer file.Close()
			if _, err := imagepick.Await(r.Context(), form.PickImage(r.Context(), file, header.Header.Get("Content-Type"))); err != nil {
				s.respondError(w, r, err)
				return
			}
		case !errors.Is(err, http.ErrMissingFile):
			s.respondError(w, r, fmt.Errorf("%w: %v", errInvalidMultipart, err))
			return
		}
	} else {
		var payload mailRequest
		if err := decodeJSON(r, &payload); err != nil {
			s.respondError(w, r, err)
			return
		}
		form.Number = payload.Number
		form.Name = payload.Name
		form.Subject = payload.Subject
		form.Date = payload.Date
		form.Notes = payload.Notes
		form.Image.Set(payload.Image)
	}

	record, err := form.Submit(r.Context(), s.store)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, record)
}

func (s *Server) handleMailArchive(w http.ResponseWriter, r *http.Request) {
	t, err := mailBox(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	record, err := s.store.ArchiveMail(r.Context(), store.MailRecord{ID: chi.URLParam(r, "id"), Type: t})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, record)
}

type dashboardResponse struct {
	view.DashboardModel
	pageResponse
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	model := view.Dashboard(s.store.Snapshot())
	params := pagination.GetPaginationParams(r.URL.Query())
	total := len(model.Archived)
	model.Archived = pagination.Apply(model.Archived, params)
	s.respondJSON(w, http.StatusOK, dashboardResponse{
		DashboardModel: model,
		pageResponse:   newPageResponse(params, total),
	})
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.RestoreMail(r.Context(), store.MailRecord{ID: chi.URLParam(r, "id")})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, record)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		http.Error(w, "multipart image upload required", http.StatusBadRequest)
		return
	}
	s.bodyLimit(w, r)
	if err := parseMultipart(r); err != nil {
		s.respondError(w, r, err)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "image file required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	dataURL, err := imagepick.Await(r.Context(), s.picker.Pick(r.Context(), file, header.Header.Get("Content-Type")))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"dataUrl": dataURL})
}
