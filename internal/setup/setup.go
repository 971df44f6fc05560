// Package setup provisions the storefront catalog with the payment provider.
package setup

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/imrishuroy/checkout-orderflow/internal/orders"
	"github.com/imrishuroy/checkout-orderflow/internal/provider"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

const inventoryInfinite = "infinite"

// ErrAlreadyProvisioned is returned when the catalog was created by an earlier run.
var ErrAlreadyProvisioned = errors.New("setup: products have already been registered")

type Fixtures struct {
	Products []ProductFixture `yaml:"products"`
}

type ProductFixture struct {
	ID         string       `yaml:"id"`
	Name       string       `yaml:"name"`
	Type       string       `yaml:"type"`
	Attributes []string     `yaml:"attributes"`
	SKUs       []SKUFixture `yaml:"skus"`
}

type SKUFixture struct {
	ID         string            `yaml:"id"`
	Attributes map[string]string `yaml:"attributes"`
	Price      int64             `yaml:"price"`
}

// ParseFixtures decodes a fixtures document.
func ParseFixtures(data []byte) (Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixtures{}, fmt.Errorf("parse fixtures: %w", err)
	}
	if len(f.Products) == 0 {
		return Fixtures{}, errors.New("parse fixtures: no products")
	}
	return f, nil
}

// DefaultFixtures returns the embedded storefront catalog.
func DefaultFixtures() Fixtures {
	f, err := ParseFixtures(defaultFixtures)
	if err != nil {
		panic(err)
	}
	return f
}

// CatalogAPI is the part of the provider API used for provisioning.
type CatalogAPI interface {
	CreateProduct(ctx context.Context, params provider.ProductParams) (*provider.Product, error)
	CreateSKU(ctx context.Context, params provider.SKUParams) (*provider.SKU, error)
	ListProducts(ctx context.Context) (*provider.ProductList, error)
}

// Runner provisions fixtures. Concurrent Run calls share a single provisioning pass.
type Runner struct {
	api      CatalogAPI
	currency string
	fixtures Fixtures
	logger   *zap.Logger

	group singleflight.Group
}

func NewRunner(api CatalogAPI, currency string, fixtures Fixtures, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{api: api, currency: currency, fixtures: fixtures, logger: logger}
}

// Run creates the products and their SKUs. A catalog that already exists yields
// ErrAlreadyProvisioned.
func (r *Runner) Run(ctx context.Context) error {
	_, err, shared := r.group.Do("setup", func() (interface{}, error) {
		return nil, r.provision(ctx)
	})
	if shared {
		r.logger.Info("setup already in progress, joined running pass")
	}
	return err
}

func (r *Runner) provision(ctx context.Context) error {
	for _, p := range r.fixtures.Products {
		_, err := r.api.CreateProduct(ctx, provider.ProductParams{
			ID:         p.ID,
			Type:       p.Type,
			Name:       p.Name,
			Attributes: p.Attributes,
		})
		if provider.IsAlreadyExists(err) {
			r.logger.Warn("products have already been registered; delete them from the dashboard to run setup again",
				zap.String("product_id", p.ID))
			return ErrAlreadyProvisioned
		}
		if err != nil {
			return fmt.Errorf("create product %s: %w", p.ID, err)
		}

		for _, s := range p.SKUs {
			_, err := r.api.CreateSKU(ctx, provider.SKUParams{
				ID:         s.ID,
				Product:    p.ID,
				Attributes: s.Attributes,
				Price:      s.Price,
				Currency:   r.currency,
				Inventory:  provider.Inventory{Type: inventoryInfinite},
			})
			if err != nil {
				return fmt.Errorf("create sku %s: %w", s.ID, err)
			}
		}
		r.logger.Info("product provisioned", zap.String("product_id", p.ID), zap.Int("skus", len(p.SKUs)))
	}
	r.logger.Info("setup complete")
	return nil
}

// Verify lists the catalog and reports whether it matches the storefront.
func (r *Runner) Verify(ctx context.Context) (bool, error) {
	list, err := r.api.ListProducts(ctx)
	if err != nil {
		return false, fmt.Errorf("list products: %w", err)
	}
	ok := orders.ValidateCatalog(list)
	r.logger.Info("catalog checked", zap.Bool("valid", ok), zap.Int("products", len(list.Data)))
	return ok, nil
}
