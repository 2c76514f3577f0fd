package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sailchat/internal/logger"
	"github.com/sailchat/internal/model"
)

// SailRepository covers the sail, property and address tables; the chat
// engine always walks them together.
type SailRepository struct {
	pool *pgxpool.Pool
}

func NewSailRepository(pool *pgxpool.Pool) *SailRepository {
	return &SailRepository{pool: pool}
}

func (r *SailRepository) GetSail(ctx context.Context, sailID string) (*model.SailRecord, error) {
	defer logger.DeferLogDuration("sail.GetSail", time.Now())()
	s := &model.SailRecord{}
	var status int
	err := r.pool.QueryRow(ctx,
		`SELECT sail_id, property, buyer, agent, agent_agreement_id, sail_status
		 FROM sails WHERE sail_id = $1`, sailID,
	).Scan(&s.SailID, &s.Property, &s.Buyer, &s.Agent, &s.AgentAgreementID, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sailRepo.GetSail: %w", err)
	}
	s.SailStatus = model.SailStatus(status)
	return s, nil
}

// OpenSailByPropertyBuyer finds the buyer's non-terminal sail on a property.
// Rejected and sold sails never match: they leave the door open for a new enquiry.
func (r *SailRepository) OpenSailByPropertyBuyer(ctx context.Context, propertyID, buyer string) (*model.SailRecord, error) {
	defer logger.DeferLogDuration("sail.OpenSailByPropertyBuyer", time.Now())()
	s := &model.SailRecord{}
	var status int
	err := r.pool.QueryRow(ctx,
		`SELECT sail_id, property, buyer, agent, agent_agreement_id, sail_status
		 FROM sails WHERE property = $1 AND buyer = $2 AND sail_status IN ($3, $4, $5)`,
		propertyID, buyer, int(model.SailNotified), int(model.SailContacted), int(model.SailInProgress),
	).Scan(&s.SailID, &s.Property, &s.Buyer, &s.Agent, &s.AgentAgreementID, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sailRepo.OpenSailByPropertyBuyer: %w", err)
	}
	s.SailStatus = model.SailStatus(status)
	return s, nil
}

func (r *SailRepository) InsertSail(ctx context.Context, s *model.SailRecord) error {
	defer logger.DeferLogDuration("sail.InsertSail", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sails (sail_id, property, buyer, agent, agent_agreement_id, sail_status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.SailID, s.Property, s.Buyer, s.Agent, s.AgentAgreementID, int(s.SailStatus),
	)
	if err != nil {
		return fmt.Errorf("sailRepo.InsertSail: %w", err)
	}
	return nil
}

// UpdateSail rewrites the negotiation fields as a unit: agent and agreement
// are pinned together on acceptance and cleared together on rejection.
func (r *SailRepository) UpdateSail(ctx context.Context, sailID string, agent, agreementID *string, status model.SailStatus) error {
	defer logger.DeferLogDuration("sail.UpdateSail", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE sails SET agent = $2, agent_agreement_id = $3, sail_status = $4 WHERE sail_id = $1`,
		sailID, agent, agreementID, int(status),
	)
	if err != nil {
		return fmt.Errorf("sailRepo.UpdateSail: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const propertyCols = `property_id, property_name, owner, address, agent1, agent2`

func (r *SailRepository) GetProperty(ctx context.Context, propertyID string) (*model.Property, error) {
	defer logger.DeferLogDuration("sail.GetProperty", time.Now())()
	p := &model.Property{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+propertyCols+` FROM properties WHERE property_id = $1`, propertyID,
	).Scan(&p.PropertyID, &p.PropertyName, &p.Owner, &p.Address, &p.Agent1, &p.Agent2)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sailRepo.GetProperty: %w", err)
	}
	return p, nil
}

func (r *SailRepository) PropertyByOwner(ctx context.Context, owner string) (*model.Property, error) {
	defer logger.DeferLogDuration("sail.PropertyByOwner", time.Now())()
	p := &model.Property{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+propertyCols+` FROM properties WHERE owner = $1`, owner,
	).Scan(&p.PropertyID, &p.PropertyName, &p.Owner, &p.Address, &p.Agent1, &p.Agent2)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sailRepo.PropertyByOwner: %w", err)
	}
	return p, nil
}

func (r *SailRepository) PropertyByAgent(ctx context.Context, agent string) (*model.Property, error) {
	defer logger.DeferLogDuration("sail.PropertyByAgent", time.Now())()
	p := &model.Property{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+propertyCols+` FROM properties WHERE agent1 = $1 OR agent2 = $1`, agent,
	).Scan(&p.PropertyID, &p.PropertyName, &p.Owner, &p.Address, &p.Agent1, &p.Agent2)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sailRepo.PropertyByAgent: %w", err)
	}
	return p, nil
}

func (r *SailRepository) GetAddress(ctx context.Context, addressID string) (*model.Address, error) {
	defer logger.DeferLogDuration("sail.GetAddress", time.Now())()
	a := &model.Address{}
	err := r.pool.QueryRow(ctx,
		`SELECT address_id, address_line1, COALESCE(address_line2,'')
		 FROM addresses WHERE address_id = $1`, addressID,
	).Scan(&a.AddressID, &a.AddressLine1, &a.AddressLine2)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sailRepo.GetAddress: %w", err)
	}
	return a, nil
}
