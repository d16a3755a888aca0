package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/internal/service"
	"github.com/gin-gonic/gin"
)

type WebsitesHandler struct {
	websiteSvs WebsiteServicer
}

func NewWebsitesHandler(websiteSvs WebsiteServicer) *WebsitesHandler {
	return &WebsitesHandler{websiteSvs: websiteSvs}
}

type WebsiteResponse struct {
	ID                 int64                     `json:"id"`
	Domain             string                    `json:"domain"`
	Name               string                    `json:"name"`
	Description        string                    `json:"description,omitempty"`
	PriceGuestPost     Money                     `json:"price_guest_post"`
	PriceLinkInsertion Money                     `json:"price_link_insertion"`
	PriceUrgent        Money                     `json:"price_urgent"`
	OffersUrgent       bool                      `json:"offers_urgent"`
	TurnaroundDays     int                       `json:"turnaround_days"`
	DomainAuthority    int                       `json:"domain_authority"`
	DomainRating       int                       `json:"domain_rating"`
	OrganicTraffic     int64                     `json:"organic_traffic"`
	AverageRating      float64                   `json:"average_rating"`
	RatingCount        int                       `json:"rating_count"`
	IsActive           bool                      `json:"is_active"`
	VerificationStatus domain.VerificationStatus `json:"verification_status"`
	CreatedAt          time.Time                 `json:"created_at"`
}

func newWebsiteResponse(w *domain.Website) WebsiteResponse {
	return WebsiteResponse{
		ID:                 w.ID,
		Domain:             w.Domain,
		Name:               w.Name,
		Description:        w.Description,
		PriceGuestPost:     newMoney(w.PriceGuestPost),
		PriceLinkInsertion: newMoney(w.PriceLinkInsertion),
		PriceUrgent:        newMoney(w.PriceUrgent),
		OffersUrgent:       w.OffersUrgent,
		TurnaroundDays:     w.TurnaroundDays,
		DomainAuthority:    w.DomainAuthority,
		DomainRating:       w.DomainRating,
		OrganicTraffic:     w.OrganicTraffic,
		AverageRating:      w.AverageRating,
		RatingCount:        w.RatingCount,
		IsActive:           w.IsActive,
		VerificationStatus: w.VerificationStatus,
		CreatedAt:          w.CreatedAt,
	}
}

// WebsiteSearchQuery фильтры каталога. Цены передаются в долларах.
type WebsiteSearchQuery struct {
	PageQuery
	DAMin    *int   `binding:"omitempty,min=0,max=100" form:"da_min"`
	DAMax    *int   `binding:"omitempty,min=0,max=100" form:"da_max"`
	DRMin    *int   `binding:"omitempty,min=0,max=100" form:"dr_min"`
	DRMax    *int   `binding:"omitempty,min=0,max=100" form:"dr_max"`
	PriceMin string `binding:"omitempty,numeric"       form:"price_min"`
	PriceMax string `binding:"omitempty,numeric"       form:"price_max"`
	Search   string `binding:"omitempty,max=100"       form:"search"`
	Sort     string `binding:"omitempty,oneof=da_desc da_asc dr_desc dr_asc price_asc price_desc traffic_desc" form:"sort"`
}

func (q WebsiteSearchQuery) toFilter() (repoargs.WebsiteFilter, error) {
	f := repoargs.WebsiteFilter{
		DAMin:  q.DAMin,
		DAMax:  q.DAMax,
		DRMin:  q.DRMin,
		DRMax:  q.DRMax,
		Search: strings.TrimSpace(q.Search),
		Sort:   repoargs.WebsiteSort(q.Sort),
		Page:   q.toPage(maxPageLimit),
	}
	if q.PriceMin != "" {
		cents, err := dollarsToCents(q.PriceMin)
		if err != nil {
			return f, domain.NewValidationError("price_min", "must be a number")
		}
		f.PriceMin = &cents
	}
	if q.PriceMax != "" {
		cents, err := dollarsToCents(q.PriceMax)
		if err != nil {
			return f, domain.NewValidationError("price_max", "must be a number")
		}
		f.PriceMax = &cents
	}
	return f, nil
}

// searchWebsites общий для сессионного и публичного API поиск по каталогу.
func (h *WebsitesHandler) searchWebsites(c *gin.Context) {
	var query WebsiteSearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithBindError(c, err)
		return
	}
	filter, err := query.toFilter()
	if err != nil {
		abortWithError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	list, total, err := h.websiteSvs.Search(ctx, filter)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse[WebsiteResponse]{
		Data:       mapSlice(list, newWebsiteResponse),
		Pagination: newPagination(filter.Page, total),
	})
}

// Index GET RouteGroup + WebsitesRoute. Каталог сайтов.
func (h *WebsitesHandler) Index(c *gin.Context) {
	h.searchWebsites(c)
}

// Mine GET RouteGroup + MyWebsitesRoute. Сайты текущего исполнителя с любым статусом верификации.
func (h *WebsitesHandler) Mine(c *gin.Context) {
	actor := getActorFromContext(c)
	var query PageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithBindError(c, err)
		return
	}
	page := query.toPage(maxPageLimit)

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	list, total, err := h.websiteSvs.Owned(ctx, actor, page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse[WebsiteResponse]{
		Data:       mapSlice(list, newWebsiteResponse),
		Pagination: newPagination(page, total),
	})
}

// CreateWebsiteParams цены передаются в центах.
type CreateWebsiteParams struct {
	Domain             string `binding:"required,max=253"              json:"domain"`
	Name               string `binding:"required,max=200"              json:"name"`
	Description        string `binding:"omitempty,max_bytes=5000"      json:"description"`
	PriceGuestPost     int64  `binding:"min=0"                         json:"price_guest_post"`
	PriceLinkInsertion int64  `binding:"min=0"                         json:"price_link_insertion"`
	PriceUrgent        int64  `binding:"min=0"                         json:"price_urgent"`
	OffersUrgent       bool   `json:"offers_urgent"`
	TurnaroundDays     int    `binding:"omitempty,min=1,max=90"        json:"turnaround_days"`
	DomainAuthority    int    `binding:"min=0,max=100"                 json:"domain_authority"`
	DomainRating       int    `binding:"min=0,max=100"                 json:"domain_rating"`
	OrganicTraffic     int64  `binding:"min=0"                         json:"organic_traffic"`
}

// Create POST RouteGroup + WebsitesRoute. Добавление сайта исполнителем.
func (h *WebsitesHandler) Create(c *gin.Context) {
	actor := getActorFromContext(c)
	var params CreateWebsiteParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithBindError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	site, err := h.websiteSvs.Create(ctx, actor, service.CreateWebsiteArgs{
		Domain:             params.Domain,
		Name:               strings.TrimSpace(params.Name),
		Description:        params.Description,
		PriceGuestPost:     params.PriceGuestPost,
		PriceLinkInsertion: params.PriceLinkInsertion,
		PriceUrgent:        params.PriceUrgent,
		OffersUrgent:       params.OffersUrgent,
		TurnaroundDays:     params.TurnaroundDays,
		DomainAuthority:    params.DomainAuthority,
		DomainRating:       params.DomainRating,
		OrganicTraffic:     params.OrganicTraffic,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newWebsiteResponse(site))
}

type VerifyWebsiteParams struct {
	Status domain.VerificationStatus `binding:"required,oneof=approved rejected" json:"status"`
}

// Verify POST AdminGroup + AdminVerifyWebsiteRoute.
func (h *WebsitesHandler) Verify(c *gin.Context) {
	actor := getActorFromContext(c)
	id, ok := paramID(c)
	if !ok {
		return
	}
	var params VerifyWebsiteParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithBindError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	site, err := h.websiteSvs.Verify(ctx, actor, id, params.Status)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newWebsiteResponse(site))
}
