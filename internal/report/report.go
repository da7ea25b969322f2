// Package report assembles the channel post from both price services.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/nerkh/internal/catalog"
	"github.com/navid-fn/nerkh/internal/format"
	"github.com/navid-fn/nerkh/internal/models"
)

// Source is one price service as seen by the report.
type Source interface {
	Name() string
	Refresh(ctx context.Context) (*models.PriceTable, error)
	Latest() (*models.PriceTable, error)
	RenderRow(symbol, lang, noPriceMessage string) string
}

var headers = map[string]map[catalog.Section]string{
	"en": {
		catalog.SectionFiat:   "💱 Currencies",
		catalog.SectionGold:   "🏅 Gold & Commodities",
		catalog.SectionCrypto: "🪙 Crypto",
	},
	format.LangFa: {
		catalog.SectionFiat:   "💱 ارز",
		catalog.SectionGold:   "🏅 طلا و سکه",
		catalog.SectionCrypto: "🪙 ارز دیجیتال",
	},
}

var unavailable = map[string]string{
	"en":          "n/a",
	format.LangFa: "ناموجود",
}

var sectionOrder = []catalog.Section{catalog.SectionFiat, catalog.SectionGold, catalog.SectionCrypto}

type Builder struct {
	currency Source
	crypto   Source
	catalog  *catalog.Catalog
	logger   *logrus.Entry
	now      func() time.Time
}

func NewBuilder(currency, crypto Source, cat *catalog.Catalog, logger *logrus.Logger) *Builder {
	return &Builder{
		currency: currency,
		crypto:   crypto,
		catalog:  cat,
		logger:   logger.WithField("component", "report"),
		now:      time.Now,
	}
}

// BuildReport renders a timestamp line followed by the fiat, gold and
// crypto sections. With useCache false both services are refreshed first;
// a failed refresh falls back to that service's last table. A service
// without any data drops its sections. Only when neither service has data
// is models.ErrNoData returned.
func (b *Builder) BuildReport(ctx context.Context, symbols []string, lang string, useCache bool) (string, error) {
	if len(symbols) == 0 {
		symbols = b.defaultSymbols()
	}

	if !useCache {
		b.refresh(ctx, b.currency)
		b.refresh(ctx, b.crypto)
	}

	currencyOK := b.hasData(b.currency)
	cryptoOK := b.hasData(b.crypto)
	if !currencyOK && !cryptoOK {
		return "", fmt.Errorf("report: %w", models.ErrNoData)
	}

	grouped := make(map[catalog.Section][]string)
	for _, symbol := range symbols {
		section := b.sectionOf(symbol, currencyOK)
		grouped[section] = append(grouped[section], symbol)
	}

	message := unavailable[lang]
	if message == "" {
		message = unavailable["en"]
	}

	var blocks []string
	blocks = append(blocks, "🕒 "+format.Timestamp(b.now(), lang))
	for _, section := range sectionOrder {
		list := grouped[section]
		if len(list) == 0 {
			continue
		}
		source, ok := b.currency, currencyOK
		if section == catalog.SectionCrypto {
			source, ok = b.crypto, cryptoOK
		}
		if !ok {
			continue
		}

		lines := []string{header(lang, section)}
		for _, symbol := range list {
			lines = append(lines, source.RenderRow(symbol, lang, message))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	return strings.Join(blocks, "\n\n"), nil
}

func (b *Builder) refresh(ctx context.Context, source Source) {
	if source == nil {
		return
	}
	if _, err := source.Refresh(ctx); err != nil {
		b.logger.Infof("Using cached %s data: %v", source.Name(), err)
	}
}

func (b *Builder) hasData(source Source) bool {
	if source == nil {
		return false
	}
	_, err := source.Latest()
	return err == nil
}

// sectionOf places unknown symbols with the currency service when it has
// data, so they still get an explicit row.
func (b *Builder) sectionOf(symbol string, currencyOK bool) catalog.Section {
	if inst, ok := b.catalog.Lookup(symbol); ok {
		return inst.Section
	}
	if inst, ok := b.catalog.Lookup(b.catalog.Resolve(symbol)); ok {
		return inst.Section
	}
	if currencyOK {
		return catalog.SectionFiat
	}
	return catalog.SectionCrypto
}

func (b *Builder) defaultSymbols() []string {
	var out []string
	for _, section := range sectionOrder {
		out = append(out, b.catalog.Symbols(section)...)
	}
	return out
}

func header(lang string, section catalog.Section) string {
	if h, ok := headers[lang]; ok {
		return h[section]
	}
	return headers["en"][section]
}
