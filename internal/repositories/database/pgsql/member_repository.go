package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/domain"
	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
)

type PgxMemberRepository struct {
	BaseRepository
}

// Ensure PgxMemberRepository implements portsrepo.MemberRepositoryFacade
var _ portsrepo.MemberRepositoryFacade = (*PgxMemberRepository)(nil)

const memberColumns = `member_id, tenant_id, member_number, name, status, joined_at, left_at,
	created_at, created_by, last_updated_at, last_updated_by`

func scanMember(row rowScanner) (domain.Member, error) {
	var m domain.Member
	err := row.Scan(
		&m.MemberID,
		&m.TenantID,
		&m.MemberNumber,
		&m.Name,
		&m.Status,
		&m.JoinedAt,
		&m.LeftAt,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

func (r *PgxMemberRepository) FindMemberByID(ctx context.Context, memberID string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE member_id = $1;`
	m, err := scanMember(r.db.QueryRow(ctx, query, memberID))
	if err != nil {
		return nil, mapError(err, "member "+memberID)
	}
	if err := r.checkTenant(m.TenantID, "member", memberID); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListEligibleMembers walks active members in member_id order. An empty
// afterMemberID starts from the beginning.
func (r *PgxMemberRepository) ListEligibleMembers(ctx context.Context, joinedBy time.Time, afterMemberID string, limit int) ([]domain.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE tenant_id = $1
			AND status = 'active'
			AND joined_at <= $2
			AND ($3 = '' OR member_id > $3::uuid)
		ORDER BY member_id
		LIMIT $4;
	`
	rows, err := r.db.Query(ctx, query, r.tenantID, domain.DateOf(joinedBy), afterMemberID, limit)
	if err != nil {
		return nil, mapError(err, "list eligible members")
	}
	defer rows.Close()

	members := make([]domain.Member, 0, limit)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, mapError(err, "scan member")
		}
		members = append(members, m)
	}
	return members, mapError(rows.Err(), "iterate members")
}

func (r *PgxMemberRepository) SaveMember(ctx context.Context, member domain.Member) error {
	if err := r.checkTenant(member.TenantID, "member", member.MemberID); err != nil {
		return err
	}
	query := `
		INSERT INTO members (` + memberColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := r.db.Exec(ctx, query,
		member.MemberID,
		member.TenantID,
		member.MemberNumber,
		member.Name,
		member.Status,
		member.JoinedAt,
		member.LeftAt,
		member.CreatedAt,
		member.CreatedBy,
		member.LastUpdatedAt,
		member.LastUpdatedBy,
	)
	return mapError(err, fmt.Sprintf("save member number %s", member.MemberNumber))
}

func (r *PgxMemberRepository) UpdateMember(ctx context.Context, member domain.Member) error {
	query := `
		UPDATE members
		SET name = $3, status = $4, left_at = $5, last_updated_at = $6, last_updated_by = $7
		WHERE tenant_id = $1 AND member_id = $2;
	`
	tag, err := r.db.Exec(ctx, query,
		r.tenantID,
		member.MemberID,
		member.Name,
		member.Status,
		member.LeftAt,
		member.LastUpdatedAt,
		member.LastUpdatedBy,
	)
	if err != nil {
		return mapError(err, "update member "+member.MemberID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "member "+member.MemberID)
	}
	return nil
}
