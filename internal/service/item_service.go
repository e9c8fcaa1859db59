package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sickfits/internal/cache"
	apperrors "sickfits/internal/errors"
	"sickfits/internal/model"
	"sickfits/internal/repository"
)

const itemCacheTTL = 5 * time.Minute

// ItemService exposes catalog operations. Mutations are pass-throughs to the
// store; reads go through a cache-aside Redis layer.
type ItemService interface {
	CreateItem(ctx context.Context, item *model.Item) (*model.Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*model.Item, error)
	UpdateItem(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*model.Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	ListItems(ctx context.Context) ([]model.Item, error)
}

type itemService struct {
	repo  repository.ItemRepository
	cache *cache.Client
}

// NewItemService builds an ItemService with repository and cache.
func NewItemService(repo repository.ItemRepository, cache *cache.Client) ItemService {
	return &itemService{repo: repo, cache: cache}
}

func (s *itemService) cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("item:%s", id)
}

// TODO: check that the caller is signed in before allowing mutations.
func (s *itemService) CreateItem(ctx context.Context, item *model.Item) (*model.Item, error) {
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *itemService) GetItem(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
		var cached model.Item
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrItemNotFound
		}
		return nil, err
	}

	if payload, err := json.Marshal(item); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(id), payload, itemCacheTTL)
	}
	return item, nil
}

func (s *itemService) UpdateItem(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*model.Item, error) {
	item, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrItemNotFound
		}
		return nil, err
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return item, nil
}

// TODO: check that the caller owns the item or has delete permission.
func (s *itemService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrItemNotFound
		}
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return nil
}

func (s *itemService) ListItems(ctx context.Context) ([]model.Item, error) {
	return s.repo.List(ctx)
}
