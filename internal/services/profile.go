package services

import (
	"context"
	"crypto/subtle"
	"fmt"

	"struk/internal/core"
	applog "struk/internal/log"
)

// DefaultProfile is stored on first start.
var DefaultProfile = core.UserProfile{Name: "User"}

type ProfileStore interface {
	GetProfile(ctx context.Context) (core.UserProfile, bool, error)
	MergeProfile(ctx context.Context, patch core.ProfilePatch) (core.UserProfile, error)
	InitDefaultsIfNeeded(ctx context.Context, def core.UserProfile) (core.UserProfile, []core.Category, error)
}

// Profile manages the single user profile.
type Profile struct {
	store  ProfileStore
	logger *applog.Logger
}

func NewProfile(store ProfileStore) *Profile {
	return &Profile{store: store, logger: applog.Default().WithComponent(applog.ComponentProfile)}
}

// Bootstrap seeds the default profile and starter categories if missing.
func (p *Profile) Bootstrap(ctx context.Context) (core.UserProfile, []core.Category, error) {
	prof, cats, err := p.store.InitDefaultsIfNeeded(ctx, DefaultProfile)
	if err != nil {
		return core.UserProfile{}, nil, fmt.Errorf("bootstrap: %w", err)
	}
	return prof, cats, nil
}

// Get returns the stored profile, or DefaultProfile before Bootstrap.
func (p *Profile) Get(ctx context.Context) (core.UserProfile, error) {
	prof, ok, err := p.store.GetProfile(ctx)
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("get profile: %w", err)
	}
	if !ok {
		return DefaultProfile, nil
	}
	return prof, nil
}

func (p *Profile) Update(ctx context.Context, patch core.ProfilePatch) (core.UserProfile, error) {
	prof, err := p.store.MergeProfile(ctx, patch)
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("update profile: %w", err)
	}
	return prof, nil
}

// SetPIN sets a six digit PIN. An empty pin removes the lock.
func (p *Profile) SetPIN(ctx context.Context, pin string) error {
	if pin != "" && !core.ValidPIN(pin) {
		return core.ErrInvalidPIN
	}
	_, err := p.Update(ctx, core.ProfilePatch{PIN: &pin})
	return err
}

// CheckPIN reports whether pin unlocks the profile. A profile without a PIN
// is always unlocked.
func (p *Profile) CheckPIN(ctx context.Context, pin string) (bool, error) {
	prof, err := p.Get(ctx)
	if err != nil {
		return false, err
	}
	if prof.PIN == "" {
		return true, nil
	}
	return subtle.ConstantTimeCompare([]byte(prof.PIN), []byte(pin)) == 1, nil
}

// LinkSheet records the backup spreadsheet.
func (p *Profile) LinkSheet(ctx context.Context, sheetID, sheetName string) (core.UserProfile, error) {
	if sheetID == "" {
		return core.UserProfile{}, fmt.Errorf("link sheet: %w", core.ErrEmptyID)
	}
	prof, err := p.Update(ctx, core.ProfilePatch{GoogleSheetID: &sheetID, GoogleSheetName: &sheetName})
	if err != nil {
		return core.UserProfile{}, err
	}
	p.logger.InfoContext(ctx, "Linked spreadsheet", applog.FieldSheetID, sheetID)
	return prof, nil
}

// UnlinkSheet forgets the spreadsheet and the Google account details.
func (p *Profile) UnlinkSheet(ctx context.Context) (core.UserProfile, error) {
	empty := ""
	return p.Update(ctx, core.ProfilePatch{
		GoogleSheetID:   &empty,
		GoogleSheetName: &empty,
		GoogleEmail:     &empty,
		GooglePhotoURL:  &empty,
	})
}

// SetAccount stores the signed-in Google account's email and photo.
func (p *Profile) SetAccount(ctx context.Context, email, photoURL string) (core.UserProfile, error) {
	return p.Update(ctx, core.ProfilePatch{GoogleEmail: &email, GooglePhotoURL: &photoURL})
}
