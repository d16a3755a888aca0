package pgrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const websiteColumns = `id, created_at, updated_at, owner_id, domain, name, description,
	price_guest_post, price_link_insertion, price_urgent, offers_urgent, turnaround_days, is_active,
	verification_status, domain_authority, domain_rating, organic_traffic, average_rating, rating_count`

type WebsiteRepository struct {
	conn uow.DBTX
}

func NewWebsiteRepository(conn uow.DBTX) *WebsiteRepository {
	return &WebsiteRepository{conn: conn}
}

func (w *WebsiteRepository) Create(ctx context.Context, args repoargs.CreateWebsite) (*domain.Website, error) {
	row := w.conn.QueryRow(ctx, `
		INSERT INTO websites (owner_id, domain, name, description, price_guest_post, price_link_insertion,
			price_urgent, offers_urgent, turnaround_days, domain_authority, domain_rating, organic_traffic)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+websiteColumns,
		args.OwnerID, args.Domain, args.Name, args.Description, args.PriceGuestPost, args.PriceLinkInsertion,
		args.PriceUrgent, args.OffersUrgent, args.TurnaroundDays, args.DomainAuthority, args.DomainRating,
		args.OrganicTraffic,
	)
	site, err := scanWebsite(row)
	if err != nil {
		return nil, convertErr(err, "creating website %s", args.Domain)
	}
	return site, nil
}

func (w *WebsiteRepository) FindByID(ctx context.Context, id int64) (*domain.Website, error) {
	site, err := scanWebsite(w.conn.QueryRow(ctx, `SELECT `+websiteColumns+` FROM websites WHERE id = $1`, id))
	if err != nil {
		return nil, convertErr(err, "finding website by id %d", id)
	}
	return site, nil
}

// SetVerification меняет статус верификации сайта.
func (w *WebsiteRepository) SetVerification(
	ctx context.Context,
	id int64,
	status domain.VerificationStatus,
) (*domain.Website, error) {
	row := w.conn.QueryRow(ctx, `
		UPDATE websites SET verification_status = $1, updated_at = now() WHERE id = $2
		RETURNING `+websiteColumns, status, id)
	site, err := scanWebsite(row)
	if err != nil {
		return nil, convertErr(err, "setting verification of website %d", id)
	}
	return site, nil
}

// RefreshRating пересчитывает средний рейтинг сайта по отзывам.
func (w *WebsiteRepository) RefreshRating(ctx context.Context, id int64) error {
	_, err := w.conn.Exec(ctx, `
		UPDATE websites SET
			average_rating = COALESCE((SELECT round(avg(rating)::numeric, 2) FROM reviews WHERE website_id = $1), 0),
			rating_count = (SELECT count(*) FROM reviews WHERE website_id = $1),
			updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return convertErr(err, "refreshing rating of website %d", id)
	}
	return nil
}

// Search возвращает страницу сайтов по фильтру и общее число подходящих записей.
func (w *WebsiteRepository) Search(ctx context.Context, f repoargs.WebsiteFilter) ([]domain.Website, int64, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.OnlyAvailable {
		where = append(where, "is_active", "verification_status = 'approved'")
	}
	if f.OwnerID != nil {
		add("owner_id = $%d", *f.OwnerID)
	}
	if f.DAMin != nil {
		add("domain_authority >= $%d", *f.DAMin)
	}
	if f.DAMax != nil {
		add("domain_authority <= $%d", *f.DAMax)
	}
	if f.DRMin != nil {
		add("domain_rating >= $%d", *f.DRMin)
	}
	if f.DRMax != nil {
		add("domain_rating <= $%d", *f.DRMax)
	}
	if f.PriceMin != nil {
		add("price_guest_post >= $%d", *f.PriceMin)
	}
	if f.PriceMax != nil {
		add("price_guest_post <= $%d", *f.PriceMax)
	}
	if f.Search != "" {
		add("(domain ILIKE $%[1]d OR name ILIKE $%[1]d)", "%"+f.Search+"%")
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := w.conn.QueryRow(ctx, `SELECT count(*) FROM websites `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, convertErr(err, "counting websites")
	}

	args = append(args, f.Page.Limit, f.Page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM websites %s ORDER BY %s, id LIMIT $%d OFFSET $%d`,
		websiteColumns, whereSQL, websiteOrderBy(f.Sort), len(args)-1, len(args))

	rows, err := w.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, convertErr(err, "searching websites")
	}
	sites, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Website, error) {
		site, scanErr := scanWebsite(row)
		if scanErr != nil {
			return domain.Website{}, scanErr
		}
		return *site, nil
	})
	if err != nil {
		return nil, 0, convertErr(err, "scanning websites")
	}
	return sites, total, nil
}

func websiteOrderBy(sort repoargs.WebsiteSort) string {
	switch sort {
	case repoargs.SortDAAsc:
		return "domain_authority ASC"
	case repoargs.SortDRDesc:
		return "domain_rating DESC"
	case repoargs.SortDRAsc:
		return "domain_rating ASC"
	case repoargs.SortPriceAsc:
		return "price_guest_post ASC"
	case repoargs.SortPriceDesc:
		return "price_guest_post DESC"
	case repoargs.SortTrafficDesc:
		return "organic_traffic DESC"
	case repoargs.SortDADesc:
	}
	return "domain_authority DESC"
}

func scanWebsite(row pgx.Row) (*domain.Website, error) {
	var s domain.Website
	err := row.Scan(
		&s.ID, &s.CreatedAt, &s.UpdatedAt, &s.OwnerID, &s.Domain, &s.Name, &s.Description,
		&s.PriceGuestPost, &s.PriceLinkInsertion, &s.PriceUrgent, &s.OffersUrgent, &s.TurnaroundDays, &s.IsActive,
		&s.VerificationStatus, &s.DomainAuthority, &s.DomainRating, &s.OrganicTraffic, &s.AverageRating,
		&s.RatingCount,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &s, nil
}
