package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rentshare-backend-go/internal/db"
	"rentshare-backend-go/internal/models"
)

// Custom errors for the ListingService.
var (
	ErrItemNotFound     = errors.New("item not found")
	ErrNotItemOwner     = errors.New("user is not the owner of this item")
	ErrItemUnavailable  = errors.New("item is not available")
	ErrTooManyImages    = errors.New("item already has the maximum number of images")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrClassifierFailed = errors.New("image classification failed")
)

const maxItemImages = 8

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// listingService implements the ListingService interface.
type listingService struct {
	store      db.Store
	itemRepo   db.ItemRepository
	objects    ObjectStore
	classifier ImageClassifier
	notifier   Notifier
	logger     *zap.Logger
}

// NewListingService creates a new ListingService instance.
func NewListingService(store db.Store, itemRepo db.ItemRepository, objects ObjectStore, classifier ImageClassifier, notifier Notifier, logger *zap.Logger) ListingService {
	return &listingService{
		store:      store,
		itemRepo:   itemRepo,
		objects:    objects,
		classifier: classifier,
		notifier:   notifier,
		logger:     logger,
	}
}

// CreateListing consumes one list unit and creates the item in the same transaction.
func (s *listingService) CreateListing(ctx context.Context, ownerID string, req models.CreateItemRequest) (*models.Item, error) {
	item := &models.Item{
		ItemName:      strings.TrimSpace(req.ItemName),
		ItemDesc:      strings.TrimSpace(req.ItemDesc),
		ItemPrice:     req.ItemPrice,
		ItemCondition: req.ItemCondition,
		ItemLocation:  strings.TrimSpace(req.ItemLocation),
		Category:      strings.TrimSpace(req.Category),
		Images:        []string{},
		ItemStatus:    models.ItemStatusAvailable,
	}

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		item.ID = ""
		owner, err := tx.GetUser(ownerID)
		if err != nil {
			return mapNotFound(err, ErrUserNotFound)
		}
		plan := owner.CurrentPlan
		if err := consumeQuota(plan, models.QuotaActionList); err != nil {
			return err
		}
		item.Owner = models.ItemOwner{ID: ownerID, Fullname: owner.Fullname}
		if err := tx.SetCurrentPlan(ownerID, plan); err != nil {
			return err
		}
		return tx.CreateItem(item)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, ownerID, models.NotifyListingPublished, "Listing published",
		fmt.Sprintf("%s is now visible to renters.", item.ItemName), map[string]string{"itemId": item.ID})
	return item, nil
}

// UploadItemImage stores a photo under items/{itemId}/ and appends its URL.
func (s *listingService) UploadItemImage(ctx context.Context, ownerID, itemID string, upload FileUpload) (*models.Item, error) {
	ext, ok := imageExtensions[upload.ContentType]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedImage, upload.ContentType)
	}
	item, err := s.GetListing(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Owner.ID != ownerID {
		return nil, fmt.Errorf("%w: item '%s'", ErrNotItemOwner, itemID)
	}
	if len(item.Images) >= maxItemImages {
		return nil, ErrTooManyImages
	}

	objectPath := path.Join("items", itemID, uuid.NewString()+ext)
	url, err := s.objects.Upload(ctx, objectPath, upload.ContentType, upload.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image for item '%s': %w", itemID, err)
	}
	if err := s.itemRepo.AppendImage(ctx, itemID, url); err != nil {
		return nil, mapNotFound(err, ErrItemNotFound)
	}
	item.Images = append(item.Images, url)
	return item, nil
}

// DeleteListing removes the item and frees one list unit. A listing that is
// already gone is reported as ErrItemNotFound and releases nothing.
func (s *listingService) DeleteListing(ctx context.Context, ownerID, itemID string) error {
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		item, err := tx.GetItem(itemID)
		if err != nil {
			return mapNotFound(err, ErrItemNotFound)
		}
		if item.Owner.ID != ownerID {
			return fmt.Errorf("%w: item '%s'", ErrNotItemOwner, itemID)
		}
		if item.ItemStatus != models.ItemStatusAvailable {
			return fmt.Errorf("%w: item '%s' is %s", ErrItemUnavailable, itemID, item.ItemStatus)
		}
		owner, err := tx.GetUser(ownerID)
		if err != nil {
			return mapNotFound(err, ErrUserNotFound)
		}
		if owner.CurrentPlan != nil {
			releaseQuota(owner.CurrentPlan, models.QuotaActionList)
			if err := tx.SetCurrentPlan(ownerID, owner.CurrentPlan); err != nil {
				return err
			}
		}
		return tx.DeleteItem(itemID)
	})
	if err != nil {
		return err
	}

	removed, err := s.objects.DeletePrefix(ctx, "items/"+itemID+"/")
	if err != nil {
		s.logger.Warn("Failed to delete item images", zap.String("itemID", itemID), zap.Error(err))
	} else {
		s.logger.Debug("Item images deleted", zap.String("itemID", itemID), zap.Int("count", removed))
	}
	return nil
}

func (s *listingService) GetListing(ctx context.Context, itemID string) (*models.Item, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, mapNotFound(err, ErrItemNotFound)
	}
	return item, nil
}

func (s *listingService) ListMyListings(ctx context.Context, ownerID string, limit int) ([]*models.Item, error) {
	items, err := s.itemRepo.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list items for owner '%s': %w", ownerID, err)
	}
	return items, nil
}

func (s *listingService) SearchListings(ctx context.Context, search models.ItemSearch) ([]*models.Item, error) {
	items, err := s.itemRepo.Search(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}
	return items, nil
}

// ClassifyImage asks the classifier what the photo shows.
func (s *listingService) ClassifyImage(ctx context.Context, upload FileUpload) ([]models.ItemPrediction, error) {
	if _, ok := imageExtensions[upload.ContentType]; !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedImage, upload.ContentType)
	}
	predictions, err := s.classifier.Classify(ctx, upload.Filename, bytes.NewReader(upload.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassifierFailed, err)
	}
	return predictions, nil
}

func (s *listingService) notify(ctx context.Context, userID, kind, title, body string, data map[string]string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, kind, title, body, data); err != nil {
		s.logger.Warn("Failed to queue notification", zap.String("kind", kind), zap.String("userID", userID), zap.Error(err))
	}
}
