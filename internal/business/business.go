// Package business manages directory listings: registration, claiming,
// status and trust-tier administration. Status changes feed the stats
// projector's active-only rule, so both directions trigger a recompute.
package business

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/trustrail/trustrail/internal/models"
)

// Service errors
var (
	ErrBusinessNotFound  = errors.New("business not found")
	ErrAlreadyClaimed    = errors.New("business has already been claimed")
	ErrInvalidTrustLevel = errors.New("invalid trust level")
)

// Recomputer refreshes a business's derived stats after a status change
type Recomputer interface {
	Recompute(ctx context.Context, businessID uuid.UUID) error
}

// Service handles directory listing operations
type Service struct {
	db    *pgxpool.Pool
	stats Recomputer
}

// NewService creates a new business service
func NewService(db *pgxpool.Pool, stats Recomputer) *Service {
	return &Service{db: db, stats: stats}
}

// RegisterRequest carries a new directory listing
type RegisterRequest struct {
	Name     string  `json:"name" binding:"required,min=1,max=200"`
	Type     string  `json:"type" binding:"required"`
	Industry *string `json:"industry,omitempty"`
	Contact  *string `json:"contact,omitempty"`
	Location *string `json:"location,omitempty"`
}

// ListResponse is a paginated directory page
type ListResponse struct {
	Businesses []models.Business `json:"businesses"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
}

const businessColumns = `id, name, type, industry, contact, location, is_verified,
	trust_level, claimed_by_business, status, average_rating, review_count,
	created_at, updated_at`

func scanBusiness(row pgx.Row) (*models.Business, error) {
	var b models.Business
	err := row.Scan(
		&b.ID, &b.Name, &b.Type, &b.Industry, &b.Contact, &b.Location,
		&b.IsVerified, &b.TrustLevel, &b.ClaimedByBusiness, &b.Status,
		&b.AverageRating, &b.ReviewCount, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Register creates a new active listing with basic trust level
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*models.Business, error) {
	b, err := scanBusiness(s.db.QueryRow(ctx, `
		INSERT INTO businesses (name, type, industry, contact, location, trust_level, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+businessColumns,
		req.Name, req.Type, req.Industry, req.Contact, req.Location,
		models.TrustLevelBasic, models.BusinessStatusActive,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to register business: %w", err)
	}
	return b, nil
}

// GetByID retrieves a listing
func (s *Service) GetByID(ctx context.Context, businessID uuid.UUID) (*models.Business, error) {
	b, err := scanBusiness(s.db.QueryRow(ctx, `
		SELECT `+businessColumns+` FROM businesses WHERE id = $1
	`, businessID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBusinessNotFound
		}
		return nil, fmt.Errorf("failed to get business: %w", err)
	}
	return b, nil
}

// List returns a page of active listings ordered by rating for directory
// and homepage views.
func (s *Service) List(ctx context.Context, page, pageSize int) (*ListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var total int64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM businesses WHERE status = $1
	`, models.BusinessStatusActive).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count businesses: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+businessColumns+` FROM businesses
		WHERE status = $1
		ORDER BY average_rating DESC, review_count DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`, models.BusinessStatusActive, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	defer rows.Close()

	var businesses []models.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan business: %w", err)
		}
		businesses = append(businesses, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate businesses: %w", err)
	}

	return &ListResponse{
		Businesses: businesses,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// SetStatus activates or deactivates a listing. Either direction changes
// the counted set, so the aggregate is recomputed.
func (s *Service) SetStatus(ctx context.Context, businessID uuid.UUID, status models.BusinessStatus) (*models.Business, error) {
	b, err := scanBusiness(s.db.QueryRow(ctx, `
		UPDATE businesses SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+businessColumns,
		status, businessID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBusinessNotFound
		}
		return nil, fmt.Errorf("failed to set business status: %w", err)
	}

	if s.stats != nil {
		if err := s.stats.Recompute(ctx, businessID); err != nil {
			log.Error().Err(err).Str("business_id", businessID.String()).
				Msg("Stats recompute after status change failed, deferring")
		}
	}
	return b, nil
}

// Claim marks a listing as claimed by its business owner
func (s *Service) Claim(ctx context.Context, businessID uuid.UUID) (*models.Business, error) {
	var claimed bool
	err := s.db.QueryRow(ctx, `
		SELECT claimed_by_business FROM businesses WHERE id = $1
	`, businessID).Scan(&claimed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBusinessNotFound
		}
		return nil, fmt.Errorf("failed to check claim status: %w", err)
	}
	if claimed {
		return nil, ErrAlreadyClaimed
	}

	b, err := scanBusiness(s.db.QueryRow(ctx, `
		UPDATE businesses SET claimed_by_business = TRUE, updated_at = NOW()
		WHERE id = $1
		RETURNING `+businessColumns,
		businessID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to claim business: %w", err)
	}
	return b, nil
}

// SetTrustLevel assigns the admin-controlled trust tier
func (s *Service) SetTrustLevel(ctx context.Context, businessID uuid.UUID, level models.TrustLevel) (*models.Business, error) {
	switch level {
	case models.TrustLevelBasic, models.TrustLevelVerified, models.TrustLevelTrustedPartner:
	default:
		return nil, ErrInvalidTrustLevel
	}

	b, err := scanBusiness(s.db.QueryRow(ctx, `
		UPDATE businesses SET
			trust_level = $1, is_verified = ($1 <> 'basic'), updated_at = NOW()
		WHERE id = $2
		RETURNING `+businessColumns,
		level, businessID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBusinessNotFound
		}
		return nil, fmt.Errorf("failed to set trust level: %w", err)
	}
	return b, nil
}
