package store

import (
	"context"
	"sort"
	"sync"

	"consentd/internal/template"
	"consentd/pkg/platform/sentinel"
)

// Memory keeps templates in a slice per group. Version assignment happens
// under the store lock so concurrent CreateVersion calls in one group cannot
// collide.
type Memory struct {
	mu     sync.RWMutex
	groups map[template.GroupKey][]*template.Template
	byID   map[string]*template.Template
}

func NewMemory() *Memory {
	return &Memory{
		groups: make(map[template.GroupKey][]*template.Template),
		byID:   make(map[string]*template.Template),
	}
}

// CreateVersion assigns next version = 1 + max(version) in the group and
// inserts. The passed template's Version field is ignored.
func (s *Memory) CreateVersion(_ context.Context, tmpl *template.Template) (*template.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group := tmpl.Group()
	maxVersion := 0
	for _, existing := range s.groups[group] {
		if existing.Version > maxVersion {
			maxVersion = existing.Version
		}
	}

	cp := *tmpl
	cp.Version = maxVersion + 1
	s.groups[group] = append(s.groups[group], &cp)
	s.byID[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (s *Memory) FindByID(_ context.Context, id string) (*template.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tmpl, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *tmpl
	return &cp, nil
}

// FindActive returns the highest-versioned active row matching product and
// purpose, and tenant when supplied. Version is the only ordering key.
func (s *Memory) FindActive(_ context.Context, tenantID, productID, purpose string) (*template.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *template.Template
	for _, versions := range s.groups {
		for _, tmpl := range versions {
			if !tmpl.IsActive || tmpl.ProductID != productID || tmpl.Purpose != purpose {
				continue
			}
			if tenantID != "" && tmpl.TenantID != tenantID {
				continue
			}
			if best == nil || tmpl.Version > best.Version {
				best = tmpl
			}
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

// SetActive flips the active flag. Rows themselves stay immutable otherwise.
func (s *Memory) SetActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tmpl, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	tmpl.IsActive = active
	return nil
}

func (s *Memory) List(_ context.Context, filter template.Filter) ([]*template.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*template.Template
	for _, versions := range s.groups {
		for _, tmpl := range versions {
			if filter.TenantID != "" && tmpl.TenantID != filter.TenantID {
				continue
			}
			if filter.ProductID != "" && tmpl.ProductID != filter.ProductID {
				continue
			}
			if filter.Purpose != "" && tmpl.Purpose != filter.Purpose {
				continue
			}
			cp := *tmpl
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		if out[i].Purpose != out[j].Purpose {
			return out[i].Purpose < out[j].Purpose
		}
		return out[i].Version < out[j].Version
	})
	return out, nil
}
