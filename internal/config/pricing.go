package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrInvalidPricing = errors.New("invalid pricing policy")

// pricingFile формат файла политики цен. Незаданные ключи берутся из domain.DefaultPricingPolicy.
//
//	platform_fee_rate = "0.25"
//	affiliate_fee_rate = "0.075"
//	min_payout_cents = 500
//	confirmation_window = "72h"
//	dispute_protection = "2160h"
//	api_rate_limit = 100
type pricingFile struct {
	PlatformFeeRate    *string `toml:"platform_fee_rate"`
	AffiliateFeeRate   *string `toml:"affiliate_fee_rate"`
	MinPayoutCents     *int64  `toml:"min_payout_cents"`
	ConfirmationWindow *string `toml:"confirmation_window"`
	DisputeProtection  *string `toml:"dispute_protection"`
	APIRateLimit       *int    `toml:"api_rate_limit"`
}

// LoadPricing читает политику цен из TOML файла. Пустой путь возвращает политику по умолчанию.
func LoadPricing(path string) (domain.PricingPolicy, error) {
	policy := domain.DefaultPricingPolicy()
	if path == "" {
		return policy, nil
	}

	var f pricingFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return policy, fmt.Errorf("load pricing %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return policy, fmt.Errorf("%w: unknown keys %s", ErrInvalidPricing, strings.Join(keys, ", "))
	}

	if err = f.apply(&policy); err != nil {
		return policy, fmt.Errorf("load pricing %s: %w", path, err)
	}
	if err = validatePricing(policy); err != nil {
		return policy, fmt.Errorf("load pricing %s: %w", path, err)
	}
	return policy, nil
}

func (f pricingFile) apply(p *domain.PricingPolicy) error {
	var err error
	if f.PlatformFeeRate != nil {
		if p.PlatformFeeRate, err = decimal.NewFromString(*f.PlatformFeeRate); err != nil {
			return fmt.Errorf("%w: platform_fee_rate: %s", ErrInvalidPricing, err.Error())
		}
	}
	if f.AffiliateFeeRate != nil {
		if p.AffiliateFeeRate, err = decimal.NewFromString(*f.AffiliateFeeRate); err != nil {
			return fmt.Errorf("%w: affiliate_fee_rate: %s", ErrInvalidPricing, err.Error())
		}
	}
	if f.MinPayoutCents != nil {
		p.MinPayout = *f.MinPayoutCents
	}
	if f.ConfirmationWindow != nil {
		if p.ConfirmationWindow, err = time.ParseDuration(*f.ConfirmationWindow); err != nil {
			return fmt.Errorf("%w: confirmation_window: %s", ErrInvalidPricing, err.Error())
		}
	}
	if f.DisputeProtection != nil {
		if p.DisputeProtection, err = time.ParseDuration(*f.DisputeProtection); err != nil {
			return fmt.Errorf("%w: dispute_protection: %s", ErrInvalidPricing, err.Error())
		}
	}
	if f.APIRateLimit != nil {
		p.APIRateLimit = *f.APIRateLimit
	}
	return nil
}

func validatePricing(p domain.PricingPolicy) error {
	one := decimal.NewFromInt(1)
	switch {
	case p.PlatformFeeRate.IsNegative() || p.PlatformFeeRate.GreaterThanOrEqual(one):
		return fmt.Errorf("%w: platform_fee_rate must be in [0, 1)", ErrInvalidPricing)
	case p.AffiliateFeeRate.IsNegative() || p.AffiliateFeeRate.GreaterThanOrEqual(one):
		return fmt.Errorf("%w: affiliate_fee_rate must be in [0, 1)", ErrInvalidPricing)
	case p.MinPayout <= 0:
		return fmt.Errorf("%w: min_payout_cents must be positive", ErrInvalidPricing)
	case p.ConfirmationWindow <= 0 || p.DisputeProtection <= 0:
		return fmt.Errorf("%w: windows must be positive", ErrInvalidPricing)
	case p.APIRateLimit <= 0:
		return fmt.Errorf("%w: api_rate_limit must be positive", ErrInvalidPricing)
	}
	return nil
}
