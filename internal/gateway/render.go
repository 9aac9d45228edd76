package gateway

import (
	"fmt"
	"sort"
	"strings"

	"github.com/danifischer/raidbot/internal/model"
)

const startTimeLayout = "Mon, 02 Jan 2006 15:04 MST"

// RosterText renders the raid as the message body shown above the reaction
// markers. Roles keep their definition order; within a role, yes entries come
// first, then maybe, then backup, each sorted by name.
func RosterText(raid *model.Raid, symbols model.ReactionSymbols) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**%s**\n", raid.Title)
	if !raid.StartTime.IsZero() {
		fmt.Fprintf(&b, "Starts: %s\n", raid.StartTime.Format(startTimeLayout))
	}
	if raid.Organizer != "" {
		fmt.Fprintf(&b, "Organizer: %s\n", raid.Organizer)
	}
	if raid.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", raid.Description)
	}

	byRole := make(map[string][]model.RosterEntry, len(raid.Roles))
	for _, entry := range raid.Users {
		byRole[entry.RoleID] = append(byRole[entry.RoleID], entry)
	}

	for _, role := range raid.Roles {
		entries := byRole[role.ID]
		sort.Slice(entries, func(i, j int) bool {
			ri, rj := entries[i].Availability.Rank(), entries[j].Availability.Rank()
			if ri != rj {
				return ri < rj
			}
			return entries[i].DisplayName < entries[j].DisplayName
		})

		fmt.Fprintf(&b, "\n**%s** (%d/%d)\n", role.Name, raid.CountInRole(role.ID, model.AvailabilityYes, 0), role.Capacity)
		for _, entry := range entries {
			fmt.Fprintf(&b, "%s %s\n", marker(symbols, entry.Availability), entryLabel(entry))
		}
	}

	if len(raid.FlexRoles) > 0 {
		names := make(map[string]string, len(raid.Roles))
		for _, role := range raid.Roles {
			names[role.ID] = role.Name
		}
		fmt.Fprintf(&b, "\n**Flex**\n")
		for _, entry := range raid.FlexRoles {
			roleName := names[entry.RoleID]
			if roleName == "" {
				roleName = entry.RoleID
			}
			fmt.Fprintf(&b, "%s %s: %s\n", symbols.Flex, entryLabel(entry), roleName)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func entryLabel(entry model.RosterEntry) string {
	if entry.AccountName == "" || entry.AccountName == entry.DisplayName {
		return entry.DisplayName
	}
	return fmt.Sprintf("%s (%s)", entry.DisplayName, entry.AccountName)
}

func marker(symbols model.ReactionSymbols, a model.Availability) string {
	switch a {
	case model.AvailabilityYes:
		return symbols.SignOn
	case model.AvailabilityMaybe:
		return symbols.Unsure
	case model.AvailabilityBackup:
		return symbols.Backup
	}
	return symbols.Flex
}
