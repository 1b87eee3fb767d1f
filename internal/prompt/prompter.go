package prompt

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/seisreport/internal/domain"
	"github.com/couchcryptid/seisreport/internal/observability"
)

const (
	inputHeader   = "########## INPUT PARAMETERS ##########"
	addressPrompt = "Please enter the project address: "
	addressError  = "Input address is invalid or does not produce unique result. Please try again."
)

var (
	riskCategoryPrompt = "Please enter the project risk category (" + domain.RiskCategoryChoices() + "): "
	riskCategoryError  = "Input risk category is invalid. Please input one of the following: " + domain.RiskCategoryChoices() + " and try again."
	siteClassPrompt    = "Please enter the project site class (" + domain.SiteClassChoices() + "): "
	siteClassError     = "Input site class is invalid. Please input one of the following: " + domain.SiteClassChoices() + " and try again."
)

// Prompter asks for the project inputs until each one validates.
type Prompter struct {
	console  *Console
	geocoder domain.Geocoder
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewPrompter creates a Prompter. The geocoder validates addresses; the
// coordinates it returns are kept so the address is looked up only once.
func NewPrompter(console *Console, geocoder domain.Geocoder, metrics *observability.Metrics, logger *slog.Logger) *Prompter {
	return &Prompter{
		console:  console,
		geocoder: geocoder,
		metrics:  metrics,
		logger:   logger,
	}
}

// Collect gathers address, risk category and site class in that order.
func (p *Prompter) Collect(ctx context.Context) (domain.ProjectInput, domain.Coordinates, error) {
	p.console.Println(inputHeader)

	address, coords, err := p.Address(ctx)
	if err != nil {
		return domain.ProjectInput{}, domain.Coordinates{}, err
	}
	rc, err := p.RiskCategory(ctx)
	if err != nil {
		return domain.ProjectInput{}, domain.Coordinates{}, err
	}
	sc, err := p.SiteClass(ctx)
	if err != nil {
		return domain.ProjectInput{}, domain.Coordinates{}, err
	}

	return domain.ProjectInput{Address: address, RiskCategory: rc, SiteClass: sc}, coords, nil
}

type resolvedAddress struct {
	address string
	coords  domain.Coordinates
}

// Address asks until the geocoder resolves the answer. Any geocoding
// failure, transport errors included, counts as an invalid address.
func (p *Prompter) Address(ctx context.Context) (string, domain.Coordinates, error) {
	r, err := askUntilValid(ctx, p, "address", addressPrompt, addressError, func(s string) (resolvedAddress, error) {
		coords, err := p.geocoder.Resolve(ctx, s)
		if err != nil {
			return resolvedAddress{}, err
		}
		return resolvedAddress{address: s, coords: coords}, nil
	})
	return r.address, r.coords, err
}

// RiskCategory asks until the answer is exactly one of I, II, III, IV.
func (p *Prompter) RiskCategory(ctx context.Context) (domain.RiskCategory, error) {
	return askUntilValid(ctx, p, "risk_category", riskCategoryPrompt, riskCategoryError, domain.ParseRiskCategory)
}

// SiteClass asks until the answer is exactly one of A, B, C, D, D-default.
func (p *Prompter) SiteClass(ctx context.Context) (domain.SiteClass, error) {
	return askUntilValid(ctx, p, "site_class", siteClassPrompt, siteClassError, domain.ParseSiteClass)
}

// askUntilValid loops without a retry cap. Only console failures (EOF,
// cancellation) end the loop early.
func askUntilValid[T any](ctx context.Context, p *Prompter, field, prompt, invalid string, parse func(string) (T, error)) (T, error) {
	for {
		answer, err := p.console.Ask(ctx, prompt)
		if err != nil {
			var zero T
			return zero, err
		}

		v, err := parse(answer)
		if err == nil {
			return v, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			var zero T
			return zero, ctxErr
		}

		p.metrics.PromptRejections.WithLabelValues(field).Inc()
		p.logger.Debug("input rejected", "field", field, "input", answer, "error", err)
		p.console.Println(invalid)
	}
}
