package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/safar/go-ticket-desk/internal/models"
)

type UpdateLinkRequest struct {
	VenueAddress   string `json:"venue_address"`
	AvailableSeats *int   `json:"available_seats"`
}

type AddTemplateImageRequest struct {
	ImageURL string `json:"image_url"`
}

type TemplateAddressRequest struct {
	CityID       int64  `json:"city_id"`
	VenueAddress string `json:"venue_address"`
}

type ReplaceTemplateAddressesRequest struct {
	Addresses []TemplateAddressRequest `json:"addresses"`
}

func validationFailed(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: codeValidationFailed, Field: field})
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid event id")
		return
	}

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	admin := adminFromContext(r.Context())
	event, err := s.catalog.UpdateEvent(r.Context(), admin.AdminID, models.Event{
		ID:             id,
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
	writeJSON(w, http.StatusOK, event)
}

// handleDeleteEvent refuses with 409 while orders still point at the event.
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid event id")
		return
	}

	admin := adminFromContext(r.Context())
	if err := s.catalog.DeleteEvent(r.Context(), admin.AdminID, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCity(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid city id")
		return
	}

	if err := s.store.DeleteCity(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid template id")
		return
	}

	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		validationFailed(w, "name", "name is required")
		return
	}

	tpl, err := s.store.UpdateTemplate(r.Context(), models.EventTemplate{
		ID:             id,
		Name:           name,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		TicketImageURL: req.TicketImageURL,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleSetTemplateActive(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid template id")
		return
	}

	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "is_active is required")
		return
	}

	if err := s.store.SetTemplateActive(r.Context(), id, *req.IsActive); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTemplateImages(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid template id")
		return
	}

	images, err := s.store.ListTemplateImages(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, images)
}

func (s *Server) handleAddTemplateImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid template id")
		return
	}

	var req AddTemplateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	imageURL := strings.TrimSpace(req.ImageURL)
	if imageURL == "" {
		validationFailed(w, "image_url", "image_url is required")
		return
	}

	image, err := s.store.AddTemplateImage(r.Context(), id, imageURL)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, image)
}

func (s *Server) handleDeleteTemplateImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid template id")
		return
	}
	imageID, ok := parseID(r, "imageID")
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid image id")
		return
	}

	if err := s.store.DeleteTemplateImage(r.Context(), id, imageID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTemplateAddresses(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid template id")
		return
	}

	addresses, err := s.store.ListTemplateAddresses(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, addresses)
}

// handlePutTemplateAddresses replaces the whole per-city venue list; an
// empty list clears it.
func (s *Server) handlePutTemplateAddresses(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid template id")
		return
	}

	var req ReplaceTemplateAddressesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	seen := make(map[int64]bool, len(req.Addresses))
	addresses := make([]models.TemplateAddress, 0, len(req.Addresses))
	for _, a := range req.Addresses {
		venue := strings.TrimSpace(a.VenueAddress)
		switch {
		case a.CityID < 1:
			validationFailed(w, "city_id", "city_id is required")
			return
		case seen[a.CityID]:
			validationFailed(w, "city_id", "city_id must be unique")
			return
		case venue == "":
			validationFailed(w, "venue_address", "venue_address is required")
			return
		}
		seen[a.CityID] = true
		addresses = append(addresses, models.TemplateAddress{EventTemplateID: id, CityID: a.CityID, VenueAddress: venue})
	}

	if err := s.store.ReplaceTemplateAddresses(r.Context(), id, addresses); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	stored, err := s.store.ListTemplateAddresses(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleUpdateLink(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid link id")
		return
	}

	var req UpdateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AvailableSeats == nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "available_seats is required")
		return
	}

	link, err := s.catalog.UpdateLink(r.Context(), id, req.VenueAddress, *req.AvailableSeats)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// handleDeleteLink refuses with 409 once orders were placed through the link;
// deactivate it instead.
func (s *Server) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid link id")
		return
	}

	if err := s.store.DeleteLink(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
