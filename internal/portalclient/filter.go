package portalclient

import (
	"sort"
	"strings"

	"tax-portal/internal/dto"
	"tax-portal/internal/entities"
)

type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
	SortByStatus    SortField = "status"
)

// RequestQuery narrows a list already fetched from the portal.
type RequestQuery struct {
	Search string
	Status []entities.RequestStatus
	SortBy SortField
	Desc   bool
}

// FilterRequests returns a new slice; the input is not modified.
// Search matches id, submitter name, email and phone, case-insensitively.
func FilterRequests(list []dto.ServiceRequestDTO, q RequestQuery) []dto.ServiceRequestDTO {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	statuses := make(map[string]bool, len(q.Status))
	for _, st := range q.Status {
		statuses[string(st)] = true
	}

	out := make([]dto.ServiceRequestDTO, 0, len(list))
	for _, r := range list {
		if len(statuses) > 0 && !statuses[r.Status] {
			continue
		}
		if search != "" && !matches(r, search) {
			continue
		}
		out = append(out, r)
	}

	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = SortByCreatedAt
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if q.Desc {
			a, b = b, a
		}
		switch sortBy {
		case SortByUpdatedAt:
			return a.UpdatedAt.Before(b.UpdatedAt)
		case SortByStatus:
			return statusRank(a.Status) < statusRank(b.Status)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
	return out
}

func matches(r dto.ServiceRequestDTO, search string) bool {
	for _, field := range []string{r.ID, r.Submitter.Name, r.Submitter.Email, r.Submitter.Phone} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// statusRank orders by lifecycle position.
func statusRank(s string) int {
	for i, st := range entities.AllStatuses {
		if string(st) == s {
			return i
		}
	}
	return len(entities.AllStatuses)
}
