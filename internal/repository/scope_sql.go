package repository

import (
	"fmt"
	"strings"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/scope"
)

// queryArgs collects positional arguments while a WHERE clause is built.
type queryArgs struct {
	values []any
}

func (a *queryArgs) add(v any) string {
	a.values = append(a.values, v)
	return fmt.Sprintf("$%d", len(a.values))
}

func orClause(parts []string) string {
	if len(parts) == 0 {
		return "FALSE"
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// ticketScopeSQL translates a ticket predicate for a query aliasing tickets as t.
func ticketScopeSQL(pred scope.TicketPredicate, args *queryArgs) string {
	switch pred.Kind {
	case scope.KindAll:
		return "TRUE"
	case scope.KindNone:
		return "FALSE"
	}
	var parts []string
	if pred.ParticipantID != "" {
		p := args.add(pred.ParticipantID)
		parts = append(parts, fmt.Sprintf("(t.created_by = %s OR t.assignee_id = %s)", p, p))
	}
	if len(pred.AssigneeTeamIDs) > 0 {
		p := args.add(pred.AssigneeTeamIDs)
		parts = append(parts, fmt.Sprintf("t.assignee_id IN (SELECT tu.user_id FROM team_user tu WHERE tu.team_id = ANY(%s::uuid[]))", p))
	}
	if pred.ClientID != "" {
		p := args.add(pred.ClientID)
		parts = append(parts, fmt.Sprintf("t.project_id IN (SELECT sp.id FROM projects sp WHERE sp.client_id = %s)", p))
	}
	return orClause(parts)
}

// projectScopeSQL translates a project predicate for a query aliasing projects as p.
func projectScopeSQL(pred scope.ProjectPredicate, args *queryArgs) string {
	switch pred.Kind {
	case scope.KindAll:
		return "TRUE"
	case scope.KindNone:
		return "FALSE"
	}
	var parts []string
	if pred.ManagerID != "" {
		parts = append(parts, "p.manager_id = "+args.add(pred.ManagerID))
	}
	if len(pred.TeamIDs) > 0 {
		p := args.add(pred.TeamIDs)
		parts = append(parts, fmt.Sprintf("p.id IN (SELECT pt.project_id FROM project_team pt WHERE pt.team_id = ANY(%s::uuid[]))", p))
	}
	if pred.ClientID != "" {
		parts = append(parts, "p.client_id = "+args.add(pred.ClientID))
	}
	if pred.ParticipantID != "" {
		p := args.add(pred.ParticipantID)
		parts = append(parts, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM tickets pt2 WHERE pt2.project_id = p.id AND pt2.deleted_at IS NULL AND (pt2.created_by = %s OR pt2.assignee_id = %s))", p, p))
	}
	return orClause(parts)
}

// requestScopeSQL translates a request predicate for a query aliasing ticket_requests as r.
func requestScopeSQL(pred scope.RequestPredicate, args *queryArgs) string {
	switch pred.Kind {
	case scope.KindAll:
		return "TRUE"
	case scope.KindRestricted:
		if pred.ClientID != "" {
			return "r.client_id = " + args.add(pred.ClientID)
		}
	}
	return "FALSE"
}

// userScopeSQL translates a user predicate against the column userCol.
func userScopeSQL(pred scope.UserPredicate, userCol string, args *queryArgs) string {
	switch pred.Kind {
	case scope.KindAll:
		return "TRUE"
	case scope.KindNone:
		return "FALSE"
	}
	var parts []string
	if pred.UserID != "" {
		parts = append(parts, fmt.Sprintf("%s = %s", userCol, args.add(pred.UserID)))
	}
	if len(pred.TeamIDs) > 0 {
		p := args.add(pred.TeamIDs)
		parts = append(parts, fmt.Sprintf("%s IN (SELECT tu.user_id FROM team_user tu WHERE tu.team_id = ANY(%s::uuid[]))", userCol, p))
	}
	return orClause(parts)
}

// statusValues expands canonical statuses with the retired values that normalize onto them.
func statusValues(statuses []domain.TicketStatus) []string {
	out := make([]string, 0, len(statuses)+2)
	for _, s := range statuses {
		out = append(out, string(s))
		switch s {
		case domain.TicketStatusInProgress:
			out = append(out, "open")
		case domain.TicketStatusClosed:
			out = append(out, "rejected")
		}
	}
	return out
}
