package admin

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/playmatatu/collisionlab/internal/lab"
	"github.com/playmatatu/collisionlab/internal/models"
	"github.com/playmatatu/collisionlab/internal/physics"
)

var ErrBuiltinPreset = errors.New("built-in presets cannot be changed")

const presetColumns = `id, name, description, balls, ball_count, elasticity, reflecting_border, constant_size, created_by, created_at, updated_at`

// ListStoredPresets returns every preset saved in the database, by name.
func ListStoredPresets(db *sqlx.DB) ([]models.LabPreset, error) {
	var presets []models.LabPreset
	err := db.Select(&presets, `SELECT `+presetColumns+` FROM lab_presets ORDER BY name`)
	return presets, err
}

// GetStoredPreset returns one stored preset.
func GetStoredPreset(db *sqlx.DB, name string) (*models.LabPreset, error) {
	var p models.LabPreset
	if err := db.Get(&p, `SELECT `+presetColumns+` FROM lab_presets WHERE name=$1`, name); err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePreset validates p and inserts or replaces it. Built-in names are reserved.
func SavePreset(db *sqlx.DB, p lab.Preset, createdBy string) error {
	if _, ok := lab.BuiltinPresets[p.Name]; ok {
		return ErrBuiltinPreset
	}
	if err := p.Validate(); err != nil {
		return err
	}
	row, err := FromPreset(p, createdBy)
	if err != nil {
		return err
	}

	_, err = db.NamedExec(`
		INSERT INTO lab_presets (name, description, balls, ball_count, elasticity, reflecting_border, constant_size, created_by, created_at, updated_at)
		VALUES (:name, :description, :balls, :ball_count, :elasticity, :reflecting_border, :constant_size, :created_by, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			balls = EXCLUDED.balls,
			ball_count = EXCLUDED.ball_count,
			elasticity = EXCLUDED.elasticity,
			reflecting_border = EXCLUDED.reflecting_border,
			constant_size = EXCLUDED.constant_size,
			created_by = EXCLUDED.created_by,
			updated_at = NOW()
	`, row)
	return err
}

// DeletePreset removes a stored preset. It returns sql.ErrNoRows when there
// is none with that name.
func DeletePreset(db *sqlx.DB, name string) error {
	if _, ok := lab.BuiltinPresets[name]; ok {
		return ErrBuiltinPreset
	}
	res, err := db.Exec(`DELETE FROM lab_presets WHERE name=$1`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// LookupPreset finds a preset by name among the built-ins, then the database.
// db may be nil, in which case only built-ins are searched.
func LookupPreset(db *sqlx.DB, name string) (lab.Preset, error) {
	if p, ok := lab.BuiltinPresets[name]; ok {
		p.Builtin = true
		return p, nil
	}
	if db == nil {
		return lab.Preset{}, lab.ErrUnknownPreset
	}
	row, err := GetStoredPreset(db, name)
	if errors.Is(err, sql.ErrNoRows) {
		return lab.Preset{}, lab.ErrUnknownPreset
	}
	if err != nil {
		return lab.Preset{}, err
	}
	return ToPreset(row)
}

// AllPresets lists the built-ins followed by the stored presets.
func AllPresets(db *sqlx.DB) ([]lab.Preset, error) {
	presets := lab.BuiltinPresetList()
	if db == nil {
		return presets, nil
	}
	rows, err := ListStoredPresets(db)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		p, err := ToPreset(&rows[i])
		if err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	return presets, nil
}

// ToPreset converts a stored row into a lab preset.
func ToPreset(row *models.LabPreset) (lab.Preset, error) {
	var balls []physics.BallValues
	if err := json.Unmarshal(row.Balls, &balls); err != nil {
		return lab.Preset{}, fmt.Errorf("preset %q: decode balls: %w", row.Name, err)
	}
	return lab.Preset{
		Name:             row.Name,
		Description:      row.Description,
		Balls:            balls,
		BallCount:        row.BallCount,
		Elasticity:       row.Elasticity,
		ReflectingBorder: row.ReflectingBorder,
		ConstantSize:     row.ConstantSize,
	}, nil
}

// FromPreset converts a lab preset into a row ready to store.
func FromPreset(p lab.Preset, createdBy string) (*models.LabPreset, error) {
	balls, err := json.Marshal(p.Balls)
	if err != nil {
		return nil, fmt.Errorf("preset %q: encode balls: %w", p.Name, err)
	}
	return &models.LabPreset{
		Name:             p.Name,
		Description:      p.Description,
		Balls:            types.JSONText(balls),
		BallCount:        p.BallCount,
		Elasticity:       p.Elasticity,
		ReflectingBorder: p.ReflectingBorder,
		ConstantSize:     p.ConstantSize,
		CreatedBy:        createdBy,
	}, nil
}
