package main

import (
	"context"
	"log"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"sickfits/internal/auth"
	"sickfits/internal/config"
	"sickfits/internal/db"
	"sickfits/internal/model"
	"sickfits/internal/repository"
)

type seedItem struct {
	Title       string
	Description string
	Price       string
	Image       string
	LargeImage  string
}

var demoItems = []seedItem{
	{
		Title:       "Dogs Are The Best",
		Description: "A shirt for people who know dogs are the best.",
		Price:       "19.99",
		Image:       "dog.jpg",
		LargeImage:  "dog-large.jpg",
	},
	{
		Title:       "Yeti Cooler",
		Description: "Keeps drinks cold for a week.",
		Price:       "349.00",
		Image:       "cooler.jpg",
		LargeImage:  "cooler-large.jpg",
	},
	{
		Title:       "Naked and Famous Denim",
		Description: "Raw selvedge denim, fades included.",
		Price:       "165.00",
		Image:       "denim.jpg",
		LargeImage:  "denim-large.jpg",
	},
}

const (
	demoEmail    = "demo@sickfits.local"
	demoPassword = "sickfits-demo"
)

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.User{}, &model.Item{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	ctx := context.Background()
	userRepo := repository.NewUserRepository(gormDB)
	itemRepo := repository.NewItemRepository(gormDB)

	user, err := seedDemoUser(ctx, userRepo)
	if err != nil {
		log.Fatalf("Failed to seed demo user: %v", err)
	}
	log.Printf("Demo user ready: %s", user.Email)

	created, err := seedDemoItems(ctx, itemRepo, user)
	if err != nil {
		log.Fatalf("Failed to seed items: %v", err)
	}
	log.Printf("Seed completed: %d new items created", created)
}

func seedDemoUser(ctx context.Context, repo repository.UserRepository) (*model.User, error) {
	existing, err := repo.FindByEmail(ctx, demoEmail)
	if err == nil {
		return existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	hashed, err := auth.NewBcryptHasher().Hash(demoPassword)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Name:         "Demo User",
		Email:        strings.ToLower(demoEmail),
		PasswordHash: hashed,
		Permissions:  []model.Permission{model.PermissionUser, model.PermissionAdmin},
	}
	if err := repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func seedDemoItems(ctx context.Context, repo repository.ItemRepository, owner *model.User) (int, error) {
	existing, err := repo.List(ctx)
	if err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, item := range existing {
		have[item.Title] = true
	}

	created := 0
	for _, seed := range demoItems {
		if have[seed.Title] {
			continue
		}
		price, err := decimal.NewFromString(seed.Price)
		if err != nil {
			log.Printf("Skipping item %q with invalid price: %s", seed.Title, seed.Price)
			continue
		}
		item := &model.Item{
			Title:       seed.Title,
			Description: seed.Description,
			Price:       price,
			Image:       seed.Image,
			LargeImage:  seed.LargeImage,
			UserID:      &owner.ID,
		}
		if err := repo.Create(ctx, item); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
