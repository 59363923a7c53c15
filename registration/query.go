package registration

import (
	"context"
	"sort"
	"strings"

	"github.com/classof2022/reunion-registration/slices"
)

const listPageSize = 100

// Filter narrows the admin view. Search is a substring match on name and
// email (case-insensitive) and phone; Status is an exact match when set.
type Filter struct {
	Search string
	Status *PaymentStatus
}

func (f Filter) Matches(reg Registration) bool {
	if f.Status != nil && reg.PaymentStatus != *f.Status {
		return false
	}

	search := strings.TrimSpace(f.Search)
	if search == "" {
		return true
	}

	lowered := strings.ToLower(search)
	return strings.Contains(strings.ToLower(reg.Name), lowered) ||
		strings.Contains(strings.ToLower(reg.Email), lowered) ||
		strings.Contains(reg.Phone, search)
}

func FilterRegistrations(regs []Registration, f Filter) []Registration {
	return slices.Filter(regs, f.Matches)
}

type Stats struct {
	Total      int
	Completed  int
	Pending    int
	Failed     int
	WithPhotos int
}

func ComputeStats(regs []Registration) Stats {
	var s Stats
	for _, reg := range regs {
		s.Total++
		switch reg.PaymentStatus {
		case COMPLETED:
			s.Completed++
		case PENDING:
			s.Pending++
		case FAILED:
			s.Failed++
		}
		if reg.HasPhoto() {
			s.WithPhotos++
		}
	}
	return s
}

// ListAll pages through the repository and returns every registration,
// newest first.
func ListAll(ctx context.Context, repo Repository) ([]Registration, error) {
	var all []Registration
	var cursor *string

	for {
		page, err := repo.ListRegistrations(ctx, listPageSize, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Data...)

		if !page.HasNextPage || page.Cursor == nil {
			break
		}
		cursor = page.Cursor
	}

	SortNewestFirst(all)
	return all, nil
}

func SortNewestFirst(regs []Registration) {
	sort.SliceStable(regs, func(i, j int) bool {
		return regs[i].RegisteredAt.After(regs[j].RegisteredAt)
	})
}
