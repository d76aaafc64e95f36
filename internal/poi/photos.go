package poi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Photos lists a POI's photos hero-first, then by caption and insertion order.
func (s *Service) Photos(ctx context.Context, poiID string) ([]Photo, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, poi_id, storage_url, COALESCE(caption,''), is_hero, created_at
		FROM poi_photos WHERE poi_id=$1
		ORDER BY is_hero DESC, caption, created_at
	`, poiID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer rows.Close()

	var photos []Photo
	for rows.Next() {
		var p Photo
		if err := rows.Scan(&p.ID, &p.POIID, &p.StorageURL, &p.Caption, &p.IsHero, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return photos, nil
}

// UploadPhoto puts the binary first, then inserts the metadata row with the
// store's returned URL. If the insert fails the orphaned binary is removed
// again, so no photo ever appears to exist without its record. New photos
// are never the hero; that takes an explicit SetHero.
func (s *Service) UploadPhoto(ctx context.Context, poiID, filename, contentType string, body io.Reader, caption string) (Photo, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM pois WHERE id=$1)`, poiID).Scan(&exists); err != nil {
		return Photo{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if !exists {
		return Photo{}, fmt.Errorf("%w: poi %s", ErrNotFound, poiID)
	}

	photo := Photo{
		ID:      uuid.NewString(),
		POIID:   poiID,
		Caption: caption,
	}

	key := "pois/" + poiID + "/" + photo.ID + strings.ToLower(path.Ext(filename))
	url, err := s.objects.Upload(ctx, key, contentType, body)
	if err != nil {
		return Photo{}, fmt.Errorf("%w: %v", ErrWriteRejected, err)
	}
	photo.StorageURL = url

	row := s.db.QueryRow(ctx, `
		INSERT INTO poi_photos (id, poi_id, storage_url, caption, is_hero)
		VALUES ($1,$2,$3,$4,false)
		RETURNING created_at
	`, photo.ID, photo.POIID, photo.StorageURL, textOrNil(photo.Caption))
	if err := row.Scan(&photo.CreatedAt); err != nil {
		// compensate: the binary must not outlive the failed insert
		if rmErr := s.objects.Remove(ctx, url); rmErr != nil {
			log.Printf("orphaned photo binary %s: %v", url, rmErr)
		}
		return Photo{}, fmt.Errorf("%w: %v", ErrWriteRejected, err)
	}
	return photo, nil
}

// SetHero clears the sibling flags and sets the target in one transaction.
// Readers never observe two heroes. If the transaction cannot complete, the
// hero state is re-read from the store instead of trusting local state.
func (s *Service) SetHero(ctx context.Context, poiID, photoID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteRejected, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE poi_photos SET is_hero=false WHERE poi_id=$1 AND is_hero`, poiID); err != nil {
		s.refreshHero(ctx, poiID)
		return fmt.Errorf("%w: %v", ErrWriteRejected, err)
	}

	var url string
	err = tx.QueryRow(ctx, `
		UPDATE poi_photos SET is_hero=true WHERE id=$1 AND poi_id=$2
		RETURNING storage_url
	`, photoID, poiID).Scan(&url)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: photo %s", ErrNotFound, photoID)
		}
		s.refreshHero(ctx, poiID)
		return fmt.Errorf("%w: %v", ErrWriteRejected, err)
	}

	if err := tx.Commit(ctx); err != nil {
		s.refreshHero(ctx, poiID)
		return fmt.Errorf("%w: %v", ErrWriteRejected, err)
	}

	s.cache.setHeroURL(ctx, poiID, url)
	return nil
}

// DeletePhoto removes the binary, then the record. Deleting the hero leaves
// the POI with no hero photo; nothing is promoted in its place.
func (s *Service) DeletePhoto(ctx context.Context, photoID string) error {
	var poiID, url string
	var isHero bool
	err := s.db.QueryRow(ctx, `
		SELECT poi_id, storage_url, is_hero FROM poi_photos WHERE id=$1
	`, photoID).Scan(&poiID, &url, &isHero)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: photo %s", ErrNotFound, photoID)
		}
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	if err := s.objects.Remove(ctx, url); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteRejected, err)
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM poi_photos WHERE id=$1`, photoID); err != nil {
		s.cache.Invalidate(ctx)
		return fmt.Errorf("%w: binary removed, record remains: %v", ErrPartialDelete, err)
	}

	if isHero {
		s.cache.setHeroURL(ctx, poiID, "")
	}
	return nil
}

// refreshHero re-reads which photo, if any, is the hero and reconciles the
// snapshot. Unreadable truth invalidates the snapshot outright.
func (s *Service) refreshHero(ctx context.Context, poiID string) {
	var url string
	err := s.db.QueryRow(ctx, `
		SELECT storage_url FROM poi_photos WHERE poi_id=$1 AND is_hero
	`, poiID).Scan(&url)
	switch {
	case err == nil:
		s.cache.setHeroURL(ctx, poiID, url)
	case errors.Is(err, pgx.ErrNoRows):
		s.cache.setHeroURL(ctx, poiID, "")
	default:
		s.cache.Invalidate(ctx)
	}
}
