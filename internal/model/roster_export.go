package model

import (
	"sort"
	"strconv"
)

// RosterRow is one line of a roster CSV export
type RosterRow struct {
	RaidID       string `csv:"raid_id"`
	Title        string `csv:"title"`
	Role         string `csv:"role"`
	Availability string `csv:"availability"`
	UserID       string `csv:"user_id"`
	DisplayName  string `csv:"display_name"`
	AccountName  string `csv:"account_name"`
	Placeholder  bool   `csv:"placeholder"`
}

// RosterRows flattens the raid's direct entries and flex pool into export rows.
// Direct entries come first in role order, then the flex pool.
func (r *Raid) RosterRows() []RosterRow {
	roleOrder := make(map[string]int, len(r.Roles))
	roleNames := make(map[string]string, len(r.Roles))
	for i, role := range r.Roles {
		roleOrder[role.ID] = i
		roleNames[role.ID] = role.Name
	}

	direct := make([]RosterEntry, 0, len(r.Users))
	for _, entry := range r.Users {
		direct = append(direct, entry)
	}
	sort.Slice(direct, func(i, j int) bool {
		a, b := direct[i], direct[j]
		if roleOrder[a.RoleID] != roleOrder[b.RoleID] {
			return roleOrder[a.RoleID] < roleOrder[b.RoleID]
		}
		if a.Availability != b.Availability {
			return a.Availability.Rank() < b.Availability.Rank()
		}
		return a.DisplayName < b.DisplayName
	})

	rows := make([]RosterRow, 0, len(direct)+len(r.FlexRoles))
	for _, entry := range append(direct, r.FlexRoles...) {
		name := roleNames[entry.RoleID]
		if name == "" {
			name = entry.RoleID
		}
		rows = append(rows, RosterRow{
			RaidID:       r.ID,
			Title:        r.Title,
			Role:         name,
			Availability: string(entry.Availability),
			UserID:       strconv.FormatUint(entry.UserID, 10),
			DisplayName:  entry.DisplayName,
			AccountName:  entry.AccountName,
			Placeholder:  entry.IsPlaceholder(),
		})
	}
	return rows
}

// Rank orders availabilities for display: yes, maybe, backup, then flex
func (a Availability) Rank() int {
	switch a {
	case AvailabilityYes:
		return 0
	case AvailabilityMaybe:
		return 1
	case AvailabilityBackup:
		return 2
	}
	return 3
}
