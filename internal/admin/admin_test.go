package admin

import (
	"errors"
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/playmatatu/collisionlab/internal/lab"
	"github.com/playmatatu/collisionlab/internal/models"
)

func TestHashAndVerifyAdminToken(t *testing.T) {
	hash, err := HashAdminToken("s3cret-token")
	if err != nil {
		t.Fatalf("HashAdminToken: %v", err)
	}
	if hash == "s3cret-token" {
		t.Fatalf("token stored in plain text")
	}
	if !VerifyAdminToken(hash, "s3cret-token") {
		t.Errorf("correct token rejected")
	}
	if VerifyAdminToken(hash, "wrong") {
		t.Errorf("wrong token accepted")
	}
}

func TestLookupPresetWithoutDatabase(t *testing.T) {
	p, err := LookupPreset(nil, "head-on")
	if err != nil {
		t.Fatalf("LookupPreset: %v", err)
	}
	if !p.Builtin || p.Name != "head-on" {
		t.Errorf("preset = %+v", p)
	}
	if _, err := LookupPreset(nil, "custom"); !errors.Is(err, lab.ErrUnknownPreset) {
		t.Errorf("expected ErrUnknownPreset, got %v", err)
	}

	all, err := AllPresets(nil)
	if err != nil || len(all) != len(lab.BuiltinPresets) {
		t.Errorf("AllPresets(nil) = %d presets, %v", len(all), err)
	}
}

func TestBuiltinPresetsAreReserved(t *testing.T) {
	if err := SavePreset(nil, lab.BuiltinPresets["default"], "alice"); !errors.Is(err, ErrBuiltinPreset) {
		t.Errorf("SavePreset: expected ErrBuiltinPreset, got %v", err)
	}
	if err := DeletePreset(nil, "default"); !errors.Is(err, ErrBuiltinPreset) {
		t.Errorf("DeletePreset: expected ErrBuiltinPreset, got %v", err)
	}

	bad := lab.BuiltinPresets["head-on"]
	bad.Name = "custom"
	bad.Elasticity = 4
	if err := SavePreset(nil, bad, "alice"); !errors.Is(err, lab.ErrInvalidValue) {
		t.Errorf("SavePreset: expected ErrInvalidValue, got %v", err)
	}
}

func TestStoredPresetConversion(t *testing.T) {
	p := lab.BuiltinPresets["newtons-cradle"]
	p.Name = "cradle-copy"

	row, err := FromPreset(p, "alice")
	if err != nil {
		t.Fatalf("FromPreset: %v", err)
	}
	if row.CreatedBy != "alice" || row.BallCount != 5 {
		t.Errorf("row = %+v", row)
	}

	back, err := ToPreset(row)
	if err != nil {
		t.Fatalf("ToPreset: %v", err)
	}
	if len(back.Balls) != len(p.Balls) || back.Balls[0] != p.Balls[0] {
		t.Errorf("balls changed: %+v", back.Balls)
	}
	if err := back.Validate(); err != nil {
		t.Errorf("converted preset invalid: %v", err)
	}

	if _, err := ToPreset(&models.LabPreset{Name: "broken", Balls: types.JSONText(`{"mass":1}`)}); err == nil {
		t.Errorf("expected an error for a non-array balls column")
	}
}

func TestHasRole(t *testing.T) {
	acc := &models.AdminAccount{Roles: []string{RolePresetEditor}}
	if !acc.HasRole(RolePresetEditor) || acc.HasRole(RoleSuperAdmin) {
		t.Errorf("HasRole gave wrong answers for %v", acc.Roles)
	}
}
