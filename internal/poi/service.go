package poi

import (
	"context"
	"fmt"
	"time"

	"github.com/vilnisdev/catoctin-mountain/internal/db"
	"github.com/vilnisdev/catoctin-mountain/internal/shared/geo"
	"github.com/vilnisdev/catoctin-mountain/internal/storage"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Service sequences POI and photo operations against Postgres and the object
// store and reconciles the snapshot cache after each one.
type Service struct {
	db      db.Querier
	objects storage.ObjectStore
	bounds  geo.Bounds
	cache   *Cache
}

func NewService(q db.Querier, objects storage.ObjectStore, bounds geo.Bounds, redisClient *redis.Client) *Service {
	return &Service{
		db:      q,
		objects: objects,
		bounds:  bounds,
		cache:   NewCache(redisClient),
	}
}

const poiColumns = `p.id, p.name, p.lat, p.lng, to_char(p.visited_date,'YYYY-MM-DD'),
		       COALESCE(p.notes,''), COALESCE(p.trail_name,''), COALESCE(p.distance_miles,0),
		       COALESCE(p.elevation_gain_ft,0), COALESCE(p.difficulty,''), p.created_at`

// Load fetches every POI plus its hero photo URL in one read and replaces
// the snapshot. Other photos are fetched on demand via Photos. On failure
// the snapshot is invalidated; a stale set is never passed off as fresh.
func (s *Service) Load(ctx context.Context) ([]POI, error) {
	gen := s.cache.beginLoad()

	if pois, ok := s.cache.fromRedis(ctx); ok {
		s.cache.completeLoad(ctx, gen, pois)
		return pois, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+poiColumns+`, COALESCE(ph.storage_url,'')
		FROM pois p
		LEFT JOIN poi_photos ph ON ph.poi_id = p.id AND ph.is_hero
		ORDER BY p.visited_date DESC, p.created_at DESC
	`)
	if err != nil {
		s.cache.Invalidate(ctx)
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer rows.Close()

	var pois []POI
	for rows.Next() {
		var p POI
		if err := rows.Scan(&p.ID, &p.Name, &p.Lat, &p.Lng, &p.VisitedDate,
			&p.Notes, &p.TrailName, &p.DistanceMiles, &p.ElevationGainFt,
			&p.Difficulty, &p.CreatedAt, &p.HeroPhotoURL); err != nil {
			s.cache.Invalidate(ctx)
			return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}
		pois = append(pois, p)
	}
	if err := rows.Err(); err != nil {
		s.cache.Invalidate(ctx)
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	s.cache.completeLoad(ctx, gen, pois)
	return pois, nil
}

// Pois serves the snapshot, loading it first when cold.
func (s *Service) Pois(ctx context.Context) ([]POI, error) {
	if pois, ok := s.cache.Snapshot(); ok {
		return pois, nil
	}
	return s.Load(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (POI, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+poiColumns+`, COALESCE(ph.storage_url,'')
		FROM pois p
		LEFT JOIN poi_photos ph ON ph.poi_id = p.id AND ph.is_hero
		WHERE p.id = $1
	`, id)

	var p POI
	if err := row.Scan(&p.ID, &p.Name, &p.Lat, &p.Lng, &p.VisitedDate,
		&p.Notes, &p.TrailName, &p.DistanceMiles, &p.ElevationGainFt,
		&p.Difficulty, &p.CreatedAt, &p.HeroPhotoURL); err != nil {
		return POI{}, fmt.Errorf("%w: poi %s", ErrNotFound, id)
	}
	return p, nil
}

// Near filters the snapshot by great-circle distance from a point.
func (s *Service) Near(ctx context.Context, lat, lng, radiusKm float64) ([]POI, error) {
	pois, err := s.Pois(ctx)
	if err != nil {
		return nil, err
	}
	var out []POI
	for _, p := range pois {
		if geo.HaversineKm(lat, lng, p.Lat, p.Lng) <= radiusKm {
			out = append(out, p)
		}
	}
	return out, nil
}

// Create validates locally before any network call, inserts the record and
// appends it to the snapshot.
func (s *Service) Create(ctx context.Context, input POI) (POI, error) {
	if err := s.validate(input); err != nil {
		return POI{}, err
	}

	input.ID = uuid.NewString()
	input.HeroPhotoURL = ""
	row := s.db.QueryRow(ctx, `
		INSERT INTO pois (id, name, lat, lng, visited_date, notes, trail_name, distance_miles, elevation_gain_ft, difficulty)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at
	`, input.ID, input.Name, input.Lat, input.Lng, input.VisitedDate,
		textOrNil(input.Notes), textOrNil(input.TrailName),
		numOrNil(input.DistanceMiles), numOrNil(input.ElevationGainFt),
		textOrNil(input.Difficulty))
	if err := row.Scan(&input.CreatedAt); err != nil {
		return POI{}, fmt.Errorf("%w: %v", ErrWriteRejected, err)
	}

	s.cache.upsert(ctx, input)
	return input, nil
}

// Update replaces all editable fields and the matching snapshot entry.
func (s *Service) Update(ctx context.Context, id string, input POI) (POI, error) {
	if err := s.validate(input); err != nil {
		return POI{}, err
	}

	input.ID = id
	row := s.db.QueryRow(ctx, `
		UPDATE pois
		SET name=$2, lat=$3, lng=$4, visited_date=$5, notes=$6, trail_name=$7,
		    distance_miles=$8, elevation_gain_ft=$9, difficulty=$10
		WHERE id=$1
		RETURNING created_at
	`, id, input.Name, input.Lat, input.Lng, input.VisitedDate,
		textOrNil(input.Notes), textOrNil(input.TrailName),
		numOrNil(input.DistanceMiles), numOrNil(input.ElevationGainFt),
		textOrNil(input.Difficulty))
	if err := row.Scan(&input.CreatedAt); err != nil {
		return POI{}, fmt.Errorf("%w: poi %s", ErrNotFound, id)
	}

	input.HeroPhotoURL = ""
	s.cache.upsert(ctx, input)
	return input, nil
}

// Delete cascades over the POI's photos: binaries first, then rows. Once any
// step has partially completed, the snapshot is invalidated and the caller
// gets ErrPartialDelete rather than a guess at the resulting state.
func (s *Service) Delete(ctx context.Context, id string) error {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM pois WHERE id=$1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if !exists {
		return fmt.Errorf("%w: poi %s", ErrNotFound, id)
	}

	urls, err := s.photoURLs(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	removed := 0
	for _, u := range urls {
		if err := s.objects.Remove(ctx, u); err != nil {
			if removed > 0 {
				s.cache.Invalidate(ctx)
				return fmt.Errorf("%w: %d of %d binaries removed: %v", ErrPartialDelete, removed, len(urls), err)
			}
			return fmt.Errorf("%w: %v", ErrWriteRejected, err)
		}
		removed++
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM poi_photos WHERE poi_id=$1`, id); err != nil {
		s.cache.Invalidate(ctx)
		return fmt.Errorf("%w: binaries removed, photo rows remain: %v", ErrPartialDelete, err)
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM pois WHERE id=$1`, id); err != nil {
		s.cache.Invalidate(ctx)
		return fmt.Errorf("%w: photos removed, poi row remains: %v", ErrPartialDelete, err)
	}

	s.cache.remove(ctx, id)
	return nil
}

func (s *Service) photoURLs(ctx context.Context, poiID string) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT storage_url FROM poi_photos WHERE poi_id=$1`, poiID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

func (s *Service) validate(input POI) error {
	if input.Name == "" {
		return fmt.Errorf("%w: name required", ErrValidationFailed)
	}
	if input.VisitedDate == "" {
		return fmt.Errorf("%w: visited_date required", ErrValidationFailed)
	}
	if _, err := time.Parse("2006-01-02", input.VisitedDate); err != nil {
		return fmt.Errorf("%w: visited_date must be YYYY-MM-DD", ErrValidationFailed)
	}
	if !s.bounds.Contains(input.Lat, input.Lng) {
		return fmt.Errorf("%w: coordinates outside the park", ErrValidationFailed)
	}
	switch input.Difficulty {
	case "", DifficultyEasy, DifficultyModerate, DifficultyHard:
	default:
		return fmt.Errorf("%w: difficulty must be easy, moderate or hard", ErrValidationFailed)
	}
	if input.DistanceMiles < 0 {
		return fmt.Errorf("%w: distance_miles must not be negative", ErrValidationFailed)
	}
	if input.ElevationGainFt < 0 {
		return fmt.Errorf("%w: elevation_gain_ft must not be negative", ErrValidationFailed)
	}
	return nil
}

func textOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func numOrNil(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}
