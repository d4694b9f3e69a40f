package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// AdminAccount is an operator allowed to manage stored presets.
type AdminAccount struct {
	Username    string         `db:"username" json:"username"`
	DisplayName string         `db:"display_name" json:"display_name"`
	TokenHash   string         `db:"token_hash" json:"-"`
	Roles       pq.StringArray `db:"roles" json:"roles"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// HasRole reports whether the account carries role.
func (a *AdminAccount) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AdminAudit is one entry of the admin action log.
type AdminAudit struct {
	ID            int            `db:"id" json:"id"`
	AdminUsername string         `db:"admin_username" json:"admin_username"`
	IP            string         `db:"ip" json:"ip"`
	Route         string         `db:"route" json:"route"`
	Action        string         `db:"action" json:"action"`
	Details       types.JSONText `db:"details" json:"details"`
	Success       bool           `db:"success" json:"success"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// LabPreset is a stored starting configuration. Balls holds a JSON array of
// {mass, position, velocity} objects.
type LabPreset struct {
	ID               int            `db:"id" json:"id"`
	Name             string         `db:"name" json:"name"`
	Description      string         `db:"description" json:"description"`
	Balls            types.JSONText `db:"balls" json:"balls"`
	BallCount        int            `db:"ball_count" json:"ball_count"`
	Elasticity       float64        `db:"elasticity" json:"elasticity"`
	ReflectingBorder bool           `db:"reflecting_border" json:"reflecting_border"`
	ConstantSize     bool           `db:"constant_size" json:"constant_size"`
	CreatedBy        string         `db:"created_by" json:"created_by"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}
