package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/pkg/uow"
)

const maxPageLimit = 100

type WebsiteService struct {
	websiteRepo WebsiteRepository
}

func NewWebsiteService(u uow.UOW) (*WebsiteService, error) {
	websiteRepo, err := uow.GetRepositoryAs[WebsiteRepository](u, uow.RepositoryName(repoargs.WebsiteRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &WebsiteService{websiteRepo: websiteRepo}, nil
}

type CreateWebsiteArgs struct {
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

// Create добавляет сайт исполнителя. Сайт попадает в каталог после верификации администратором.
func (w *WebsiteService) Create(ctx context.Context, actor domain.Actor, args CreateWebsiteArgs) (*domain.Website, error) {
	if actor.Role != domain.RolePublisher && !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	host := normalizeDomain(args.Domain)
	if host == "" || !strings.Contains(host, ".") {
		return nil, domain.NewValidationError("domain", "must be a valid domain")
	}
	if args.PriceGuestPost <= 0 && args.PriceLinkInsertion <= 0 {
		return nil, domain.NewValidationError("price_guest_post", "at least one service price is required")
	}
	if args.OffersUrgent && args.PriceUrgent <= 0 {
		return nil, domain.NewValidationError("price_urgent", "is required when urgent service is offered")
	}
	if args.TurnaroundDays <= 0 {
		args.TurnaroundDays = 7
	}

	site, err := w.websiteRepo.Create(ctx, repoargs.CreateWebsite{
		OwnerID:            actor.UserID,
		Domain:             host,
		Name:               args.Name,
		Description:        args.Description,
		PriceGuestPost:     args.PriceGuestPost,
		PriceLinkInsertion: args.PriceLinkInsertion,
		PriceUrgent:        args.PriceUrgent,
		OffersUrgent:       args.OffersUrgent,
		TurnaroundDays:     args.TurnaroundDays,
		DomainAuthority:    args.DomainAuthority,
		DomainRating:       args.DomainRating,
		OrganicTraffic:     args.OrganicTraffic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating website: %w", err)
	}
	return site, nil
}

// Verify решение администратора по верификации сайта.
func (w *WebsiteService) Verify(
	ctx context.Context,
	actor domain.Actor,
	id int64,
	status domain.VerificationStatus,
) (*domain.Website, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if status != domain.VerificationApproved && status != domain.VerificationRejected {
		return nil, domain.NewValidationError("status", "must be approved or rejected")
	}
	site, err := w.websiteRepo.SetVerification(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("verifying website %d: %w", id, err)
	}
	return site, nil
}

// Search каталог доступных для заказа сайтов.
func (w *WebsiteService) Search(ctx context.Context, f repoargs.WebsiteFilter) ([]domain.Website, int64, error) {
	f.OnlyAvailable = true
	f.OwnerID = nil
	f.Page = clampPage(f.Page)
	list, total, err := w.websiteRepo.Search(ctx, f)
	if err != nil {
		return nil, 0, err //nolint:wrapcheck
	}
	return list, total, nil
}

// Owned сайты исполнителя независимо от статуса верификации.
func (w *WebsiteService) Owned(ctx context.Context, actor domain.Actor, page domain.Page) ([]domain.Website, int64, error) {
	ownerID := actor.UserID
	list, total, err := w.websiteRepo.Search(ctx, repoargs.WebsiteFilter{OwnerID: &ownerID, Page: clampPage(page)})
	if err != nil {
		return nil, 0, err //nolint:wrapcheck
	}
	return list, total, nil
}

func normalizeDomain(raw string) string {
	host := strings.ToLower(strings.TrimSpace(raw))
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimPrefix(host, "www.")
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	return host
}

func clampPage(p domain.Page) domain.Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}
