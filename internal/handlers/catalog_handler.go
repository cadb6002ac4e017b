package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ysrn87/meetandgo-sub000/internal/database"
	"github.com/ysrn87/meetandgo-sub000/internal/models"
)

// CatalogHandler handles the tour catalog: packages, departures and groups.
// Reads are public; writes sit behind the admin route group.
type CatalogHandler struct {
	packageRepo   *database.TourPackageRepository
	departureRepo *database.DepartureRepository
	logger        *logrus.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(packageRepo *database.TourPackageRepository, departureRepo *database.DepartureRepository, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{
		packageRepo:   packageRepo,
		departureRepo: departureRepo,
		logger:        logger,
	}
}

// ListPackages returns active tour packages
// @Summary List tour packages
// @Tags Catalog
// @Produce json
// @Success 200 {array} models.TourPackage
// @Router /packages [get]
func (h *CatalogHandler) ListPackages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	packages, err := h.packageRepo.List(limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"packages": packages, "count": len(packages)})
}

// GetPackage returns one tour package
// @Summary Get tour package
// @Tags Catalog
// @Produce json
// @Param id path string true "Package ID"
// @Success 200 {object} models.TourPackage
// @Router /packages/{id} [get]
func (h *CatalogHandler) GetPackage(c *gin.Context) {
	packageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid package id"})
		return
	}

	pkg, err := h.packageRepo.GetByID(packageID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if pkg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "tour package not found"})
		return
	}

	c.JSON(http.StatusOK, pkg)
}

// ListDepartures returns upcoming departures for a package
// @Summary List departures
// @Tags Catalog
// @Produce json
// @Param id path string true "Package ID"
// @Success 200 {array} models.Departure
// @Router /packages/{id}/departures [get]
func (h *CatalogHandler) ListDepartures(c *gin.Context) {
	packageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid package id"})
		return
	}

	departures, err := h.departureRepo.ListByPackage(packageID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"departures": departures, "count": len(departures)})
}

// ListGroups returns the private-trip groups of a departure, including
// whether each one is still free
// @Summary List departure groups
// @Tags Catalog
// @Produce json
// @Param id path string true "Departure ID"
// @Success 200 {array} models.DepartureGroup
// @Router /departures/{id}/groups [get]
func (h *CatalogHandler) ListGroups(c *gin.Context) {
	departureID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid departure id"})
		return
	}

	groups, err := h.departureRepo.ListGroups(departureID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": groups, "count": len(groups)})
}

// GetAvailability reports remaining pooled seats on a departure
// @Summary Get departure availability
// @Tags Catalog
// @Produce json
// @Param id path string true "Departure ID"
// @Success 200 {object} map[string]interface{}
// @Router /departures/{id}/availability [get]
func (h *CatalogHandler) GetAvailability(c *gin.Context) {
	departureID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid departure id"})
		return
	}

	departure, err := h.departureRepo.GetByID(departureID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if departure == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "departure not found"})
		return
	}

	taken, err := h.departureRepo.ActiveSeatCount(departureID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	available := departure.MaxParticipants - taken
	if available < 0 {
		available = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"departure_id":     departure.ID,
		"max_participants": departure.MaxParticipants,
		"taken":            taken,
		"available":        available,
	})
}

// ============================================================================
// ADMIN OPERATIONS
// ============================================================================

// CreatePackage adds a catalog entry
// @Summary Create tour package
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body models.CreateTourPackageRequest true "Package details"
// @Success 201 {object} models.TourPackage
// @Router /admin/packages [post]
func (h *CatalogHandler) CreatePackage(c *gin.Context) {
	var req models.CreateTourPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	pkg := &models.TourPackage{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		TripType:    req.TripType,
		IsActive:    true,
	}
	if err := h.packageRepo.Create(pkg); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, pkg)
}

// CreateDeparture schedules a departure for a package
// @Summary Create departure
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body models.CreateDepartureRequest true "Departure details"
// @Success 201 {object} models.Departure
// @Router /admin/departures [post]
func (h *CatalogHandler) CreateDeparture(c *gin.Context) {
	var req models.CreateDepartureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	packageID, err := uuid.Parse(req.PackageID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid package id"})
		return
	}

	pkg, err := h.packageRepo.GetByID(packageID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if pkg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "tour package not found"})
		return
	}

	departure := &models.Departure{
		PackageID:       packageID,
		DepartureDate:   req.DepartureDate,
		ReturnDate:      req.ReturnDate,
		PricePerPerson:  req.PricePerPerson,
		MaxParticipants: req.MaxParticipants,
	}
	if err := h.departureRepo.Create(departure); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, departure)
}

// CreateGroup adds a private-trip slot to a departure
// @Summary Create departure group
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Departure ID"
// @Param request body models.CreateDepartureGroupRequest true "Group details"
// @Success 201 {object} models.DepartureGroup
// @Router /admin/departures/{id}/groups [post]
func (h *CatalogHandler) CreateGroup(c *gin.Context) {
	departureID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid departure id"})
		return
	}

	var req models.CreateDepartureGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
		return
	}

	departure, err := h.departureRepo.GetByID(departureID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if departure == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "departure not found"})
		return
	}

	group := &models.DepartureGroup{
		DepartureID:     departureID,
		Name:            req.Name,
		Price:           req.Price,
		MaxParticipants: req.MaxParticipants,
	}
	if err := h.departureRepo.CreateGroup(group); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, group)
}
