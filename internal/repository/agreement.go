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

const agreementCols = `agent_agreement_id, agreement_text, agent, buyer, sail_id, status, sent_time, resolution_time`

type AgreementRepository struct {
	pool *pgxpool.Pool
}

func NewAgreementRepository(pool *pgxpool.Pool) *AgreementRepository {
	return &AgreementRepository{pool: pool}
}

func (r *AgreementRepository) GetAgreement(ctx context.Context, id string) (*model.AgentAgreement, error) {
	defer logger.DeferLogDuration("agreement.GetAgreement", time.Now())()
	a := &model.AgentAgreement{}
	var status int
	err := r.pool.QueryRow(ctx,
		`SELECT `+agreementCols+` FROM agent_agreements WHERE agent_agreement_id = $1`, id,
	).Scan(&a.AgentAgreementID, &a.AgreementText, &a.Agent, &a.Buyer, &a.SailID, &status, &a.SentTime, &a.ResolutionTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("agreementRepo.GetAgreement: %w", err)
	}
	a.Status = model.AgreementStatus(status)
	return a, nil
}

func (r *AgreementRepository) InsertAgreement(ctx context.Context, a *model.AgentAgreement) error {
	defer logger.DeferLogDuration("agreement.InsertAgreement", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO agent_agreements (agent_agreement_id, agreement_text, agent, buyer, sail_id, status, sent_time, resolution_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.AgentAgreementID, a.AgreementText, a.Agent, a.Buyer, a.SailID, int(a.Status), a.SentTime, a.ResolutionTime,
	)
	if err != nil {
		return fmt.Errorf("agreementRepo.InsertAgreement: %w", err)
	}
	return nil
}

// ResolveAgreement records the buyer's decision. Only a still-pending row
// qualifies; a second decision reports ErrNotFound.
func (r *AgreementRepository) ResolveAgreement(ctx context.Context, id string, status model.AgreementStatus, at time.Time) error {
	defer logger.DeferLogDuration("agreement.ResolveAgreement", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE agent_agreements SET status = $2, resolution_time = $3
		 WHERE agent_agreement_id = $1 AND status = $4`,
		id, int(status), at, int(model.AgreementStatusSent),
	)
	if err != nil {
		return fmt.Errorf("agreementRepo.ResolveAgreement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AgreementRepository) AgreementsBySail(ctx context.Context, sailID string) ([]model.AgentAgreement, error) {
	defer logger.DeferLogDuration("agreement.AgreementsBySail", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+agreementCols+` FROM agent_agreements WHERE sail_id = $1 ORDER BY sent_time`, sailID,
	)
	if err != nil {
		return nil, fmt.Errorf("agreementRepo.AgreementsBySail query: %w", err)
	}
	defer rows.Close()

	agreements := make([]model.AgentAgreement, 0, 4)
	for rows.Next() {
		var a model.AgentAgreement
		var status int
		if err := rows.Scan(&a.AgentAgreementID, &a.AgreementText, &a.Agent, &a.Buyer, &a.SailID, &status, &a.SentTime, &a.ResolutionTime); err != nil {
			return nil, fmt.Errorf("agreementRepo.AgreementsBySail scan: %w", err)
		}
		a.Status = model.AgreementStatus(status)
		agreements = append(agreements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("agreementRepo.AgreementsBySail rows: %w", err)
	}
	return agreements, nil
}
