package uistate

import (
	"encoding/json"
	"fmt"
)

// SnapshotKey is the row holding the persisted snapshot.
const SnapshotKey = "ui-storage"

// CurrentVersion is the snapshot schema written by this build.
const CurrentVersion = 2

type envelope struct {
	Version int            `json:"version"`
	State   map[string]any `json:"state"`
}

// persisted is the CurrentVersion layout of the state object.
type persisted struct {
	Theme                    Theme   `json:"theme"`
	OnboardingDone           bool    `json:"onboardingDone"`
	IsAuthenticated          bool    `json:"isAuthenticated"`
	CurrentTab               string  `json:"currentTab"`
	EmailPendingVerification *string `json:"emailPendingVerification"`
}

// migrations[v] upgrades a version v state object to v+1.
var migrations = map[int]func(map[string]any) map[string]any{
	0: func(s map[string]any) map[string]any {
		defaults := map[string]any{
			"theme":                string(ThemeSystem),
			"onboardingDone":       false,
			"isAuthenticated":      false,
			"currentTab":           DefaultTab,
			"formData":             map[string]any{},
			"emailForVerification": nil,
		}
		for k, v := range defaults {
			if _, ok := s[k]; !ok {
				s[k] = v
			}
		}
		return s
	},
	1: func(s map[string]any) map[string]any {
		if v, ok := s["emailForVerification"]; ok {
			if _, exists := s["emailPendingVerification"]; !exists {
				s["emailPendingVerification"] = v
			}
			delete(s, "emailForVerification")
		}
		delete(s, "formData")
		return s
	},
}

// FutureVersionError is returned for snapshots written by a newer build.
type FutureVersionError struct{ Version int }

func (e *FutureVersionError) Error() string {
	return fmt.Sprintf("ui snapshot version %d is newer than supported %d", e.Version, CurrentVersion)
}

// decodeSnapshot parses raw, applies pending migrations in order and returns
// the persisted fields over Defaults. migrated reports whether the stored
// form is out of date.
func decodeSnapshot(raw []byte) (st State, migrated bool, err error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Defaults(), false, fmt.Errorf("decode ui snapshot: %w", err)
	}
	if env.Version > CurrentVersion {
		return Defaults(), false, &FutureVersionError{Version: env.Version}
	}
	if env.State == nil {
		env.State = map[string]any{}
	}

	for v := env.Version; v < CurrentVersion; v++ {
		m, ok := migrations[v]
		if !ok {
			return Defaults(), false, fmt.Errorf("no ui snapshot migration from version %d", v)
		}
		env.State = m(env.State)
		migrated = true
	}

	b, err := json.Marshal(env.State)
	if err != nil {
		return Defaults(), false, fmt.Errorf("re-encode ui snapshot: %w", err)
	}
	p := persisted{Theme: ThemeSystem, CurrentTab: DefaultTab}
	if err := json.Unmarshal(b, &p); err != nil {
		return Defaults(), false, fmt.Errorf("decode ui snapshot state: %w", err)
	}

	st = Defaults()
	st.Theme = normalizeTheme(p.Theme)
	st.OnboardingDone = p.OnboardingDone
	st.IsAuthenticated = p.IsAuthenticated
	if p.CurrentTab != "" {
		st.CurrentTab = p.CurrentTab
	}
	if p.EmailPendingVerification != nil {
		st.EmailPendingVerification = *p.EmailPendingVerification
	}
	return st, migrated, nil
}

func encodeSnapshot(st State) ([]byte, error) {
	p := persisted{
		Theme:           st.Theme,
		OnboardingDone:  st.OnboardingDone,
		IsAuthenticated: st.IsAuthenticated,
		CurrentTab:      st.CurrentTab,
	}
	if st.EmailPendingVerification != "" {
		email := st.EmailPendingVerification
		p.EmailPendingVerification = &email
	}

	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Version int             `json:"version"`
		State   json.RawMessage `json:"state"`
	}{CurrentVersion, b})
}

func normalizeTheme(t Theme) Theme {
	switch t {
	case ThemeLight, ThemeDark:
		return t
	default:
		return ThemeSystem
	}
}
