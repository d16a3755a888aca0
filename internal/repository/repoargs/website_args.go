package repoargs

import "github.com/fsdevblog/guestmart/internal/domain"

type CreateWebsite struct {
	OwnerID            int64
	Domain             string
	Name               string
	Description        string
	PriceGuestPost     int64
	PriceLinkInsertion int64
	PriceUrgent        int64
	OffersUrgent       bool
	TurnaroundDays     int
	DomainAuthority    int
	DomainRating       int
	OrganicTraffic     int64
}

type WebsiteSort string

const (
	SortDADesc      WebsiteSort = "da_desc"
	SortDAAsc       WebsiteSort = "da_asc"
	SortDRDesc      WebsiteSort = "dr_desc"
	SortDRAsc       WebsiteSort = "dr_asc"
	SortPriceAsc    WebsiteSort = "price_asc"
	SortPriceDesc   WebsiteSort = "price_desc"
	SortTrafficDesc WebsiteSort = "traffic_desc"
)

// WebsiteFilter фильтр каталога. nil означает отсутствие ограничения.
type WebsiteFilter struct {
	DAMin, DAMax       *int
	DRMin, DRMax       *int
	PriceMin, PriceMax *int64
	Search             string
	Sort               WebsiteSort
	OwnerID            *int64
	OnlyAvailable      bool
	Page               domain.Page
}
