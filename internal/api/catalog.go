package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/safar/go-ticket-desk/internal/models"
	"github.com/shopspring/decimal"
)

const (
	defaultEventsPageSize = 20
	maxEventsPageSize     = 100
)

type CreateEventRequest struct {
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	CityID         int64           `json:"city_id"`
	Date           string          `json:"date"`
	Time           string          `json:"time"`
	Price          decimal.Decimal `json:"price"`
	AvailableSeats int             `json:"available_seats"`
	CoverImageURL  string          `json:"cover_image_url,omitempty"`
}

type CreateCityRequest struct {
	Name string `json:"name"`
}

type CreateTemplateRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	TicketImageURL string `json:"ticket_image_url,omitempty"`
}

type CreateLinkRequest struct {
	EventTemplateID int64  `json:"event_template_id"`
	CityID          int64  `json:"city_id"`
	EventDate       string `json:"event_date"`
	EventTime       string `json:"event_time"`
	AvailableSeats  int    `json:"available_seats,omitempty"`
	VenueAddress    string `json:"venue_address,omitempty"`
}

// SetActiveRequest toggles a link or template.
type SetActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

func parseID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > maxEventsPageSize {
		pageSize = defaultEventsPageSize
	}

	events, err := s.store.ListEvents(r.Context(), page, pageSize)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid event id")
		return
	}

	event, err := s.store.GetEvent(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleGetEventBySlug(w http.ResponseWriter, r *http.Request) {
	event, err := s.store.GetEventBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := s.store.ListCities(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cities)
}

func (s *Server) handleGetLink(w http.ResponseWriter, r *http.Request) {
	link, err := s.store.GetActiveLinkByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (s *Server) handleListAdminEvents(w http.ResponseWriter, r *http.Request) {
	admin := adminFromContext(r.Context())
	events, err := s.store.ListEventsByAdmin(r.Context(), admin.AdminID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	admin := adminFromContext(r.Context())
	event, err := s.catalog.CreateEvent(r.Context(), admin.AdminID, models.Event{
		Name:           req.Name,
		Description:    req.Description,
		CityID:         req.CityID,
		Date:           req.Date,
		Time:           req.Time,
		Price:          req.Price,
		AvailableSeats: req.AvailableSeats,
		CoverImageURL:  req.CoverImageURL,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (s *Server) handleCreateCity(w http.ResponseWriter, r *http.Request) {
	var req CreateCityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required", Code: codeValidationFailed, Field: "name"})
		return
	}

	city, err := s.store.CreateCity(r.Context(), name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, city)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.ListTemplates(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required", Code: codeValidationFailed, Field: "name"})
		return
	}

	tpl, err := s.store.CreateTemplate(r.Context(), models.EventTemplate{
		Name:           name,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		TicketImageURL: req.TicketImageURL,
		IsActive:       true,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

func (s *Server) handleListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := s.store.ListLinks(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	link, err := s.catalog.CreateLink(r.Context(), models.GeneratedLink{
		EventTemplateID: req.EventTemplateID,
		CityID:          req.CityID,
		EventDate:       req.EventDate,
		EventTime:       req.EventTime,
		AvailableSeats:  req.AvailableSeats,
		VenueAddress:    req.VenueAddress,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (s *Server) handleSetLinkActive(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid link id")
		return
	}

	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "is_active is required")
		return
	}

	if err := s.store.SetLinkActive(r.Context(), id, *req.IsActive); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
