package management

import (
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/transport"
)

func ToLeadResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                lead.ID,
		Name:              lead.DisplayName,
		ChannelAddress:    lead.ChannelAddress,
		Status:            string(lead.Status),
		AssignedAgentID:   lead.AssignedAgentID,
		AssignedAgentName: lead.AssignedAgentName,
		CreatedAt:         lead.CreatedAt,
		UpdatedAt:         lead.UpdatedAt,
	}
}

func toLeadListResponse(leads []repository.Lead) transport.LeadListResponse {
	items := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, ToLeadResponse(lead))
	}
	return transport.LeadListResponse{Items: items, Total: len(items)}
}

func toMetricsResponse(counts map[domain.Status]int) transport.MetricsResponse {
	funnel := transport.FunnelCounts{
		New:        counts[domain.StatusNew],
		InProgress: counts[domain.StatusInProgress],
		Won:        counts[domain.StatusWon],
		Lost:       counts[domain.StatusLost],
	}
	return transport.MetricsResponse{
		TotalLeads: funnel.New + funnel.InProgress + funnel.Won + funnel.Lost,
		Won:        funnel.Won,
		Lost:       funnel.Lost,
		Active:     funnel.New + funnel.InProgress,
		Funnel:     funnel,
	}
}
