package view

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.io/infrasutra/orgmail/internal/imagepick"
	"github.io/infrasutra/orgmail/internal/store"
)

type ProfileSource interface {
	Profile() (store.UserProfile, bool)
}

type ProfileStore interface {
	ProfileSource
	UpdateProfile(ctx context.Context, update store.ProfileUpdate) (store.UserProfile, error)
	DeleteAccount(ctx context.Context) error
}

type Subscriber interface {
	Subscribe(fn store.Observer) func()
}

type ProfileDraft struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

// ProfileEditor holds unsaved profile edits. Nothing is written until Save.
type ProfileEditor struct {
	mu     sync.Mutex
	draft  ProfileDraft
	loaded bool
	Avatar imagepick.Field

	picker *imagepick.Picker
}

func NewProfileEditor(picker *imagepick.Picker) *ProfileEditor {
	if picker == nil {
		picker = imagepick.New(0)
	}
	return &ProfileEditor{picker: picker}
}

// Enter prefills the draft from the active profile. Without one there is
// nothing to edit and store.ErrNotLoggedIn is returned.
func (e *ProfileEditor) Enter(src ProfileSource) error {
	profile, ok := src.Profile()
	e.fill(profile, ok)
	if !ok {
		return store.ErrNotLoggedIn
	}
	return nil
}

// Watch refills the draft whenever the active profile changes.
func (e *ProfileEditor) Watch(src interface {
	ProfileSource
	Subscriber
}) func() {
	return src.Subscribe(func(change store.Change) {
		for _, c := range change.Collections {
			if c == store.CollectionUser {
				profile, ok := src.Profile()
				e.fill(profile, ok)
				return
			}
		}
	})
}

func (e *ProfileEditor) fill(profile store.UserProfile, ok bool) {
	e.mu.Lock()
	e.loaded = ok
	e.draft = ProfileDraft{Name: profile.Name, Email: profile.Email, Department: profile.Department}
	e.mu.Unlock()
	e.Avatar.Clear()
	if ok {
		e.Avatar.Set(profile.Avatar)
	}
}

func (e *ProfileEditor) LoggedIn() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

func (e *ProfileEditor) Draft() ProfileDraft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// Edit applies the non-nil fields of update to the draft.
func (e *ProfileEditor) Edit(update store.ProfileUpdate) {
	e.mu.Lock()
	if update.Name != nil {
		e.draft.Name = *update.Name
	}
	if update.Email != nil {
		e.draft.Email = *update.Email
	}
	if update.Department != nil {
		e.draft.Department = *update.Department
	}
	e.mu.Unlock()
	if update.Avatar != nil {
		if *update.Avatar == "" {
			e.RemoveAvatar()
		} else {
			e.Avatar.Set(*update.Avatar)
		}
	}
}

func (e *ProfileEditor) PickAvatar(ctx context.Context, r io.Reader, contentType string) <-chan imagepick.Result {
	return e.Avatar.Pick(ctx, e.picker, r, contentType)
}

func (e *ProfileEditor) RemoveAvatar() {
	e.Avatar.Clear()
}

// Save writes the whole draft to the active profile.
func (e *ProfileEditor) Save(ctx context.Context, s ProfileStore) (store.UserProfile, error) {
	if !e.LoggedIn() {
		return store.UserProfile{}, store.ErrNotLoggedIn
	}
	draft := e.Draft()
	avatar := e.Avatar.Value()
	if avatar != "" {
		if err := e.picker.Check(avatar); err != nil {
			return store.UserProfile{}, fmt.Errorf("avatar: %w", err)
		}
	}
	profile, err := s.UpdateProfile(ctx, store.ProfileUpdate{
		Name:       &draft.Name,
		Email:      &draft.Email,
		Department: &draft.Department,
		Avatar:     &avatar,
	})
	if err != nil {
		return store.UserProfile{}, err
	}
	e.fill(profile, true)
	return profile, nil
}

// Delete removes the active profile. Mail records are kept.
func (e *ProfileEditor) Delete(ctx context.Context, s ProfileStore) error {
	if !e.LoggedIn() {
		return store.ErrNotLoggedIn
	}
	if err := s.DeleteAccount(ctx); err != nil {
		return err
	}
	e.fill(store.UserProfile{}, false)
	return nil
}
