package command

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vbonduro/shopexplore/internal/db"
	"github.com/vbonduro/shopexplore/internal/geo"
	"github.com/vbonduro/shopexplore/internal/logging"
	"github.com/vbonduro/shopexplore/internal/service"
	"github.com/vbonduro/shopexplore/internal/store"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load ownerless shops from a JSON file",
	Long: `seed reads a JSON array of shops in the API's shop format and inserts
them without an owner. Seeded shops are read-only through the API.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "JSON file with an array of shops")
	_ = seedCmd.MarkFlagRequired("file")
}

type seedItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type seedShop struct {
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Address      string     `json:"address"`
	Location     geo.Point  `json:"location"`
	PosterURL    string     `json:"posterUrl"`
	Items        []seedItem `json:"items"`
	Owner        string     `json:"owner"`
	Phone        string     `json:"phone"`
	Email        string     `json:"email"`
	OpeningHours string     `json:"openingHours"`
	Category     string     `json:"category"`
	IsOpen       *bool      `json:"isOpen"`
}

// loadSeed decodes and converts the seed file. A bad location fails the
// whole file so nothing is half-loaded.
func loadSeed(r io.Reader) ([]service.ShopInput, error) {
	var shops []seedShop
	if err := json.NewDecoder(r).Decode(&shops); err != nil {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}

	inputs := make([]service.ShopInput, 0, len(shops))
	for i, s := range shops {
		loc, err := s.Location.Coordinate()
		if err != nil {
			return nil, fmt.Errorf("shop %d (%q): %w", i, s.Name, err)
		}
		items := make([]service.ItemInput, 0, len(s.Items))
		for _, item := range s.Items {
			items = append(items, service.ItemInput{Name: item.Name, Quantity: item.Quantity})
		}
		isOpen := s.IsOpen == nil || *s.IsOpen
		inputs = append(inputs, service.ShopInput{
			Name:         s.Name,
			Description:  s.Description,
			Address:      s.Address,
			Location:     loc,
			PosterURL:    s.PosterURL,
			Owner:        s.Owner,
			Phone:        s.Phone,
			Email:        s.Email,
			OpeningHours: s.OpeningHours,
			Category:     s.Category,
			IsOpen:       isOpen,
			Items:        items,
		})
	}
	return inputs, nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()
	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer cleanup()

	f, err := os.Open(seedFile)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()

	inputs, err := loadSeed(f)
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	publisher := newPublisher(cfg, logger)
	defer func() { _ = publisher.Close() }()

	// Seeding never touches posters.
	svc := service.NewShopService(store.NewShopStore(database), nil, publisher, cfg.NearbyRadiusKm, logger)
	return seed(cmd.Context(), svc, inputs, logger.Info)
}

func seed(ctx context.Context, svc *service.ShopService, inputs []service.ShopInput, logf func(string, ...any)) error {
	for _, input := range inputs {
		shop, err := svc.CreateShop(ctx, nil, input)
		if err != nil {
			return fmt.Errorf("failed to seed %q: %w", input.Name, err)
		}
		logf("seeded shop", "shop_id", shop.ID, "name", shop.Name)
	}
	logf("seed complete", "shops", len(inputs))
	return nil
}
