package web

import (
	"net/http"

	"github.com/vbonduro/shopexplore/internal/geo"
	"github.com/vbonduro/shopexplore/internal/service"
)

func (s *Server) handleListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := s.shops.ListShops(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newShopList(shops), s.log(r))
}

// handleNearbyShops requires a location. Results keep creation order unless
// sort=distance is given.
func (s *Server) handleNearbyShops(w http.ResponseWriter, r *http.Request) {
	logger := s.log(r)
	loc, err := parseLocation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), logger)
		return
	}
	if loc == nil {
		writeError(w, http.StatusBadRequest, "lat and lng are required", logger)
		return
	}
	radius, err := parseRadius(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), logger)
		return
	}

	results, err := s.shops.NearbyShops(r.Context(), *loc, radius)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if r.URL.Query().Get("sort") == "distance" {
		geo.SortByDistance(results)
	}
	writeJSON(w, http.StatusOK, newNearbyList(results), logger)
}

// handleDiscover serves the home listing: nearby shops when the client sent
// its location, every shop otherwise.
func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	logger := s.log(r)
	loc, err := parseLocation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), logger)
		return
	}
	radius, err := parseRadius(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), logger)
		return
	}

	discovery, err := s.shops.Discover(r.Context(), geo.Fix{Coordinate: loc}, radius)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if r.URL.Query().Get("sort") == "distance" && discovery.Mode == service.ModeNearby {
		geo.SortByDistance(discovery.Results)
	}
	writeJSON(w, http.StatusOK, newDiscoverResponse(discovery), logger)
}

func (s *Server) handleSearchShops(w http.ResponseWriter, r *http.Request) {
	shops, err := s.shops.SearchShops(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newShopList(shops), s.log(r))
}

// handleGetShop adds distanceKm when the request carries a location.
func (s *Server) handleGetShop(w http.ResponseWriter, r *http.Request) {
	logger := s.log(r)
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid shop id", logger)
		return
	}
	loc, err := parseLocation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), logger)
		return
	}
	if loc != nil {
		if err := geo.Validate(*loc); err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), logger)
			return
		}
	}

	shop, err := s.shops.GetShop(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if shop == nil {
		writeError(w, http.StatusNotFound, "Shop not found", logger)
		return
	}

	resp := newShopResponse(shop)
	if loc != nil {
		d := geo.Distance(*loc, shop.Location)
		resp.DistanceKm = &d
	}
	writeJSON(w, http.StatusOK, resp, logger)
}

func (s *Server) handleCreateShop(w http.ResponseWriter, r *http.Request) {
	var req shopRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	input, fields := req.toInput()
	if fields != nil {
		writeFieldErrors(w, fields, s.log(r))
		return
	}

	actor, _ := userID(r.Context())
	shop, err := s.shops.CreateShop(r.Context(), &actor, input)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newShopResponse(shop), s.log(r))
}

func (s *Server) handleUpdateShop(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid shop id", s.log(r))
		return
	}
	var req shopRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	input, fields := req.toInput()
	if fields != nil {
		writeFieldErrors(w, fields, s.log(r))
		return
	}

	actor, _ := userID(r.Context())
	shop, err := s.shops.UpdateShop(r.Context(), actor, id, input)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newShopResponse(shop), s.log(r))
}

func (s *Server) handleDeleteShop(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid shop id", s.log(r))
		return
	}

	actor, _ := userID(r.Context())
	if err := s.shops.DeleteShop(r.Context(), actor, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
