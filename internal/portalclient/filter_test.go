package portalclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tax-portal/internal/dto"
	"tax-portal/internal/entities"
)

func sampleRequests() []dto.ServiceRequestDTO {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []dto.ServiceRequestDTO{
		{ID: "r1", Status: "COMPLETED", Submitter: dto.SubmitterDTO{Name: "Asha Rao", Email: "asha@example.com", Phone: "9876543210"}, CreatedAt: base, UpdatedAt: base.Add(5 * time.Hour)},
		{ID: "r2", Status: "PENDING", Submitter: dto.SubmitterDTO{Name: "Vikram Shah", Email: "vikram@example.com", Phone: "9123456780"}, CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)},
		{ID: "r3", Status: "DECLINED", Submitter: dto.SubmitterDTO{Name: "Meera Iyer", Email: "meera@example.com", Phone: "9988776655"}, CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base.Add(3 * time.Hour)},
	}
}

func ids(list []dto.ServiceRequestDTO) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}

func TestFilterRequests(t *testing.T) {
	list := sampleRequests()

	assert.Equal(t, []string{"r1", "r2", "r3"}, ids(FilterRequests(list, RequestQuery{})))
	assert.Equal(t, []string{"r3", "r2", "r1"}, ids(FilterRequests(list, RequestQuery{Desc: true})))
	assert.Equal(t, []string{"r2", "r3", "r1"}, ids(FilterRequests(list, RequestQuery{SortBy: SortByUpdatedAt})))
	assert.Equal(t, []string{"r2", "r1", "r3"}, ids(FilterRequests(list, RequestQuery{SortBy: SortByStatus})))

	assert.Equal(t, []string{"r2"}, ids(FilterRequests(list, RequestQuery{Search: "VIKRAM"})))
	assert.Equal(t, []string{"r3"}, ids(FilterRequests(list, RequestQuery{Search: "99887"})))
	assert.Equal(t, []string{"r1", "r3"}, ids(FilterRequests(list, RequestQuery{
		Status: []entities.RequestStatus{entities.StatusCompleted, entities.StatusDeclined},
	})))
	assert.Empty(t, FilterRequests(list, RequestQuery{Search: "nobody"}))

	assert.Equal(t, "r1", list[0].ID, "input untouched")
}
