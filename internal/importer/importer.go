package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"buildmart/internal/domain"
	"go.uber.org/zap"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type CategoryWriter interface {
	Upsert(ctx context.Context, c domain.Category) (*domain.Category, error)
}

// Kind is the type of sheet a CSV export holds.
type Kind string

const (
	KindProducts   Kind = "products"
	KindCategories Kind = "categories"
)

// CSVImporter reads catalog sheet exports and inserts/updates products or categories.
type CSVImporter struct {
	reader       *csv.Reader
	productRepo  ProductWriter
	categoryRepo CategoryWriter
	logger       *zap.Logger
	seenCategory map[string]bool
}

func NewCSVImporter(r io.Reader, products ProductWriter, categories CategoryWriter, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVImporter{
		reader:       csvr,
		productRepo:  products,
		categoryRepo: categories,
		logger:       logger,
		seenCategory: make(map[string]bool),
	}
}

// DetectKind reads the header row of r and reports which sheet it is.
func DetectKind(r io.Reader) (Kind, error) {
	headers, err := csv.NewReader(r).Read()
	if err != nil {
		return "", fmt.Errorf("read headers: %w", err)
	}
	return kindOf(headerIndex(headers))
}

func kindOf(index map[string]int) (Kind, error) {
	if _, ok := index["sku"]; ok {
		return KindProducts, nil
	}
	if _, ok := index["price_cents"]; ok {
		return KindProducts, nil
	}
	if _, ok := index["slug"]; ok {
		return KindCategories, nil
	}
	return "", errors.New("unrecognised sheet: expected product (sku, price_cents) or category (slug) columns")
}

type productRow struct {
	ID            string
	Key           string
	Name          string
	Desc          string
	SKU           string
	Category      string
	Cents         int64
	DiscountCents *int64
	Currency      string
	Colors        []string
	ImageURLs     []string
	Variants      []domain.Variant
}

// Run parses the sheet and returns how many products or categories were written.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	kind, err := kindOf(index)
	if err != nil {
		return 0, err
	}
	i.logger.Info("import started", zap.String("kind", string(kind)))
	if kind == KindCategories {
		return i.runCategories(ctx, index)
	}
	return i.runProducts(ctx, index)
}

func (i *CSVImporter) runProducts(ctx context.Context, index map[string]int) (int, error) {
	if i.productRepo == nil {
		return 0, errors.New("product writer required for product sheets")
	}
	var (
		current  *productRow
		imported int
	)

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		row, err := parseProductRow(record, index)
		if err != nil {
			return imported, err
		}
		if row == nil {
			continue
		}

		if row.Key != "" {
			if current != nil {
				if err := i.saveProduct(ctx, current); err != nil {
					return imported, err
				}
				imported++
			}
			current = row
			continue
		}

		// Continuation rows add colors, images and variants to the current product.
		if current != nil {
			current.Colors = appendUnique(current.Colors, row.Colors...)
			current.ImageURLs = append(current.ImageURLs, row.ImageURLs...)
			current.Variants = append(current.Variants, row.Variants...)
		}
	}

	if current != nil {
		if err := i.saveProduct(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}
	i.logger.Info("import finished", zap.Int("products", imported))
	return imported, nil
}

func (i *CSVImporter) saveProduct(ctx context.Context, row *productRow) error {
	if row.Key == "" || row.Name == "" || row.SKU == "" || row.Cents <= 0 || row.Currency == "" {
		return fmt.Errorf("invalid product row (missing required fields) for key %q", row.Key)
	}
	if row.ID != "" && len(row.ID) != 36 {
		return fmt.Errorf("invalid id for key %q: %s", row.Key, row.ID)
	}
	if row.DiscountCents != nil && *row.DiscountCents >= row.Cents {
		return fmt.Errorf("discount price for key %q must be below the price", row.Key)
	}

	if row.Category != "" {
		if err := i.ensureCategory(ctx, row.Category); err != nil {
			return err
		}
	}

	p := domain.Product{
		ID:                 row.ID,
		Key:                row.Key,
		SKU:                row.SKU,
		Name:               row.Name,
		Description:        row.Desc,
		CategoryKey:        row.Category,
		PriceCents:         row.Cents,
		DiscountPriceCents: row.DiscountCents,
		Currency:           row.Currency,
		Colors:             row.Colors,
		Variants:           row.Variants,
		Images:             row.ImageURLs,
	}

	if _, err := i.productRepo.Upsert(ctx, p); err != nil {
		return fmt.Errorf("upsert product %q: %w", row.Key, err)
	}
	return nil
}

// ensureCategory creates categories referenced by products once per run.
func (i *CSVImporter) ensureCategory(ctx context.Context, key string) error {
	if i.categoryRepo == nil || i.seenCategory[key] {
		return nil
	}
	i.seenCategory[key] = true
	if _, err := i.categoryRepo.Upsert(ctx, domain.Category{Key: key, Name: titleFromKey(key), Slug: key}); err != nil {
		return fmt.Errorf("upsert category %q: %w", key, err)
	}
	return nil
}

func (i *CSVImporter) runCategories(ctx context.Context, index map[string]int) (int, error) {
	if i.categoryRepo == nil {
		return 0, errors.New("category writer required for category sheets")
	}
	imported := 0
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		c := domain.Category{
			Key:         pick(record, index, "key"),
			Name:        pick(record, index, "name"),
			Slug:        pick(record, index, "slug"),
			Description: pick(record, index, "description"),
		}
		if c.Key == "" {
			c.Key = c.Slug
		}
		if c.Key == "" {
			continue
		}
		if c.Name == "" {
			c.Name = titleFromKey(c.Key)
		}
		if c.Slug == "" {
			c.Slug = c.Key
		}
		if _, err := i.categoryRepo.Upsert(ctx, c); err != nil {
			return imported, fmt.Errorf("upsert category %q: %w", c.Key, err)
		}
		imported++
	}
	i.logger.Info("import finished", zap.Int("categories", imported))
	return imported, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseProductRow(record []string, index map[string]int) (*productRow, error) {
	key := pick(record, index, "key")
	color := pick(record, index, "color")
	imageURL := pick(record, index, "image_url")
	variantID := pick(record, index, "variant_id")

	if key == "" && color == "" && imageURL == "" && variantID == "" {
		return nil, nil
	}

	row := &productRow{
		ID:       pick(record, index, "id"),
		Key:      key,
		Name:     pick(record, index, "name"),
		Desc:     pick(record, index, "description"),
		SKU:      pick(record, index, "sku"),
		Category: pick(record, index, "category"),
		Currency: strings.ToUpper(pick(record, index, "currency")),
	}

	var err error
	if row.Cents, err = parseCents(pick(record, index, "price_cents")); err != nil {
		return nil, fmt.Errorf("price for key %q: %w", key, err)
	}
	if s := pick(record, index, "discount_price_cents"); s != "" {
		cents, err := parseCents(s)
		if err != nil {
			return nil, fmt.Errorf("discount price for key %q: %w", key, err)
		}
		row.DiscountCents = &cents
	}
	if color != "" {
		row.Colors = []string{color}
	}
	if imageURL != "" {
		row.ImageURLs = []string{imageURL}
	}
	if variantID != "" {
		v := domain.Variant{ID: variantID, Name: pick(record, index, "variant_name")}
		if v.Name == "" {
			v.Name = variantID
		}
		if s := pick(record, index, "variant_price_cents"); s != "" {
			cents, err := parseCents(s)
			if err != nil {
				return nil, fmt.Errorf("variant %q price: %w", variantID, err)
			}
			v.PriceCents = &cents
		}
		row.Variants = []domain.Variant{v}
	}
	return row, nil
}

func parseCents(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	cents, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if cents < 0 {
		return 0, fmt.Errorf("negative amount %d", cents)
	}
	return cents, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, existing := range dst {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}

func titleFromKey(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '-' || r == '_' })
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
