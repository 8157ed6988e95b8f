package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
	apperrors "github.com/dscatalog/catalog-admin/internal/errors"
)

var (
	// ErrEmailRequired is returned when a lookup or grant has no email.
	ErrEmailRequired = errors.New("email is required")
	// ErrUnknownRole is returned when granting a role absent from tb_role.
	ErrUnknownRole = errors.New("unknown role")
)

// UserRoles is a user row together with its granted roles.
type UserRoles struct {
	Email     string
	FirstName string
	LastName  string
	Roles     []domainauth.Role
}

// GrantRoleRequest describes a role grant. The user row is created when missing.
type GrantRoleRequest struct {
	Email     string
	FirstName string
	LastName  string
	Role      domainauth.Role
}

// UserRoleRepo reads and writes role grants stored in tb_user / tb_role / tb_user_role.
type UserRoleRepo struct {
	DB     *sql.DB
	logger *slog.Logger

	warnedMissingSchema atomic.Bool
}

// NewUserRoleRepo creates a UserRoleRepo. A nil logger falls back to slog.Default().
func NewUserRoleRepo(db *sql.DB, logger *slog.Logger) *UserRoleRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserRoleRepo{DB: db, logger: logger.With("component", "user_role_repo")}
}

const rolesForEmailQuery = `
	SELECT r.authority
	FROM tb_user u
	JOIN tb_user_role ur ON ur.user_id = u.id
	JOIN tb_role r ON r.id = ur.role_id
	WHERE lower(u.email) = lower($1)
	ORDER BY r.authority`

// RolesForEmail returns the roles granted to email. An unknown user has no roles.
// A missing role schema or an unreachable server comes back as an ErrCodeUnavailable
// error so callers can carry on without stored roles; the missing schema is logged once.
func (r *UserRoleRepo) RolesForEmail(ctx context.Context, email string) ([]domainauth.Role, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	rows, err := r.DB.QueryContext(ctx, rolesForEmailQuery, email)
	if err != nil {
		return r.degrade(ctx, err)
	}
	defer rows.Close()

	var raw []string
	for rows.Next() {
		var authority string
		if scanErr := rows.Scan(&authority); scanErr != nil {
			return nil, fmt.Errorf("scan role: %w", apperrors.MapDBError(scanErr))
		}
		raw = append(raw, authority)
	}
	if iterErr := rows.Err(); iterErr != nil {
		return r.degrade(ctx, iterErr)
	}
	return domainauth.ParseRoles(raw), nil
}

func (r *UserRoleRepo) degrade(ctx context.Context, err error) ([]domainauth.Role, error) {
	if isMissingSchema(err) && r.warnedMissingSchema.CompareAndSwap(false, true) {
		r.logger.WarnContext(ctx, "role schema missing; stored roles disabled until migrated", "error", err)
	}
	return nil, fmt.Errorf("query roles: %w", apperrors.MapDBError(err))
}

func isMissingSchema(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.UndefinedTable || pgErr.Code == pgerrcode.UndefinedColumn
}

// GrantRole ensures the user exists and holds req.Role. Granting an existing grant is a no-op.
func (r *UserRoleRepo) GrantRole(ctx context.Context, req GrantRoleRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return ErrEmailRequired
	}
	if req.Role == "" {
		return apperrors.ValidationField("role", "role is required")
	}

	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var userID int64
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO tb_user (email, first_name, last_name)
			VALUES ($1, $2, $3)
			ON CONFLICT (email) DO UPDATE
			SET first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), tb_user.first_name),
			    last_name = COALESCE(NULLIF(EXCLUDED.last_name, ''), tb_user.last_name)
			RETURNING id`,
			email, req.FirstName, req.LastName,
		).Scan(&userID); err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}

		var roleID int64
		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM tb_role WHERE authority = $1`, string(req.Role),
		).Scan(&roleID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrUnknownRole, req.Role)
			}
			return fmt.Errorf("lookup role: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tb_user_role (user_id, role_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, userID, roleID,
		); err != nil {
			return fmt.Errorf("insert grant: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUnknownRole) {
			return err
		}
		return fmt.Errorf("grant role: %w", apperrors.MapDBError(err))
	}
	return nil
}

// RevokeRole removes role from email and reports whether a grant was deleted.
func (r *UserRoleRepo) RevokeRole(ctx context.Context, email string, role domainauth.Role) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, ErrEmailRequired
	}
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM tb_user_role ur
		USING tb_user u, tb_role r
		WHERE ur.user_id = u.id AND ur.role_id = r.id
		  AND lower(u.email) = lower($1) AND r.authority = $2`,
		email, string(role),
	)
	if err != nil {
		return false, fmt.Errorf("revoke role: %w", apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke role rows: %w", err)
	}
	return n > 0, nil
}

// ListUsers returns users ordered by email with their roles.
func (r *UserRoleRepo) ListUsers(ctx context.Context, limit, offset int) ([]UserRoles, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT u.email, u.first_name, u.last_name,
		       COALESCE(string_agg(r.authority, ',' ORDER BY r.authority), '')
		FROM tb_user u
		LEFT JOIN tb_user_role ur ON ur.user_id = u.id
		LEFT JOIN tb_role r ON r.id = ur.role_id
		GROUP BY u.id, u.email, u.first_name, u.last_name
		ORDER BY u.email
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var out []UserRoles
	for rows.Next() {
		var (
			u     UserRoles
			roles string
		)
		if scanErr := rows.Scan(&u.Email, &u.FirstName, &u.LastName, &roles); scanErr != nil {
			return nil, fmt.Errorf("scan user: %w", scanErr)
		}
		if roles != "" {
			u.Roles = domainauth.ParseRoles(strings.Split(roles, ","))
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", apperrors.MapDBError(err))
	}
	return out, nil
}
